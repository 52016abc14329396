// Package file keeps the provider collection in a single JSON document on
// disk. Every write goes to a temporary file that is renamed over the old one,
// so readers see either the previous or the next collection.
package file

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/store"
	"github.com/nulzo/model-catalog/internal/store/secrets"
	"github.com/nulzo/model-catalog/pkg/schema"
	"go.uber.org/zap"
)

// FileName is the document kept inside the data directory.
const FileName = "providers.json"

type document struct {
	Version   string            `json:"version"`
	Providers []schema.Provider `json:"providers"`
}

type Option func(*Store)

// WithSealer encrypts API keys before they reach the disk.
func WithSealer(s *secrets.Sealer) Option {
	return func(st *Store) { st.sealer = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(st *Store) { st.logger = l }
}

type Store struct {
	dir    string
	path   string
	sealer *secrets.Sealer
	logger *zap.Logger

	mu        sync.Mutex
	lastWrite [sha256.Size]byte
}

// New opens the store in dir, creating the directory when needed.
func New(dir string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}
	s := &Store{
		dir:    dir,
		path:   filepath.Join(dir, FileName),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path is the location of the JSON document.
func (s *Store) Path() string { return s.path }

func (s *Store) LoadAll(ctx context.Context) ([]schema.Provider, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *Store) ReplaceAll(ctx context.Context, providers []schema.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(providers)
}

func (s *Store) CreateProvider(ctx context.Context, p schema.Provider) error {
	return s.apply(store.InsertProvider(p))
}

func (s *Store) UpdateProvider(ctx context.Context, p schema.Provider) error {
	return s.apply(store.ReplaceProvider(p))
}

func (s *Store) DeleteProvider(ctx context.Context, id string) error {
	return s.apply(store.RemoveProvider(id))
}

func (s *Store) CreateModel(ctx context.Context, providerID string, m schema.Model) error {
	return s.apply(store.InsertModel(providerID, m))
}

func (s *Store) UpdateModel(ctx context.Context, providerID string, m schema.Model) error {
	return s.apply(store.ReplaceModel(providerID, m))
}

func (s *Store) DeleteModel(ctx context.Context, providerID, modelID string) error {
	return s.apply(store.RemoveModel(providerID, modelID))
}

func (s *Store) Close() error { return nil }

func (s *Store) apply(edit store.Edit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.read()
	if err != nil {
		return err
	}
	next, err := edit(current)
	if err != nil {
		return err
	}
	return s.write(next)
}

// read must be called with mu held.
func (s *Store) read() ([]schema.Provider, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return []schema.Provider{}, nil
	}
	if err != nil {
		return nil, domain.Persistence("read providers", err)
	}

	return s.decode(data)
}

func (s *Store) decode(data []byte) ([]schema.Provider, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return []schema.Provider{}, nil
	}

	var doc document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", domain.ErrStoreUnreadable, s.path, err)
	}
	if doc.Providers == nil {
		doc.Providers = []schema.Provider{}
	}

	if s.sealer != nil {
		for i := range doc.Providers {
			keys, err := s.sealer.OpenAll(doc.Providers[i].Credentials.APIKeys)
			if err != nil {
				return nil, fmt.Errorf("%w: credentials of %s: %v", domain.ErrStoreUnreadable, doc.Providers[i].ID, err)
			}
			doc.Providers[i].Credentials.APIKeys = keys
		}
	}
	return doc.Providers, nil
}

// write must be called with mu held.
func (s *Store) write(providers []schema.Provider) error {
	out := schema.CloneProviders(providers)
	if out == nil {
		out = []schema.Provider{}
	}

	if s.sealer != nil {
		for i := range out {
			keys, err := s.sealer.SealAll(out[i].Credentials.APIKeys)
			if err != nil {
				return domain.Persistence("seal credentials", err)
			}
			out[i].Credentials.APIKeys = keys
		}
	}

	data, err := json.MarshalIndent(document{Version: schema.SchemaVersion, Providers: out}, "", "  ")
	if err != nil {
		return domain.Persistence("encode providers", err)
	}

	tmp, err := os.CreateTemp(s.dir, ".providers-*.tmp")
	if err != nil {
		return domain.Persistence("write providers", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.Persistence("write providers", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.Persistence("write providers", err)
	}
	if err := tmp.Close(); err != nil {
		return domain.Persistence("write providers", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return domain.Persistence("write providers", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return domain.Persistence("write providers", err)
	}

	s.lastWrite = sha256.Sum256(data)
	return nil
}

// Watch calls onChange whenever the document is modified by something other
// than this store. It returns once the watcher is running; the watcher stops
// when ctx is done.
func (s *Store) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(s.dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch data dir %s: %w", s.dir, err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Base(event.Name) != FileName {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				if !s.changedExternally() {
					continue
				}
				s.logger.Info("Provider store changed on disk, reloading", zap.String("file", event.Name))
				onChange()
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("fsnotify error", zap.Error(err))
			}
		}
	}()

	return nil
}

func (s *Store) changedExternally() bool {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return sha256.Sum256(data) != s.lastWrite
}
