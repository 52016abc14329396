package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/nulzo/model-catalog/internal/core/domain"
	"github.com/nulzo/model-catalog/internal/store/model"
	"github.com/nulzo/model-catalog/internal/store/secrets"
	"github.com/nulzo/model-catalog/pkg/schema"
	"go.uber.org/zap"
)

// DB defines the interface for database operations (satisfied by *sqlx.DB and *sqlx.Tx)
type DB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type Option func(*Store)

// WithSealer encrypts API keys before they are written.
func WithSealer(s *secrets.Sealer) Option {
	return func(st *Store) { st.sealer = s }
}

func WithLogger(l *zap.Logger) Option {
	return func(st *Store) { st.logger = l }
}

// Store implements ports.ProviderStore on SQLite.
type Store struct {
	db       *sqlx.DB // Required for starting new transactions
	executor DB       // Used for actual queries (can be *sqlx.DB or *sqlx.Tx)
	sealer   *secrets.Sealer
	logger   *zap.Logger
}

func NewStore(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{
		db:       db,
		executor: db,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Close() error {
	return s.db.Close()
}

// WithTx runs fn against a store bound to a single transaction.
func (s *Store) WithTx(ctx context.Context, fn func(tx *Store) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return domain.Persistence("begin transaction", err)
	}

	txStore := &Store{
		db:       s.db, // Keep the original DB handle
		executor: tx,
		sealer:   s.sealer,
		logger:   s.logger,
	}

	if err := fn(txStore); err != nil {
		// attempt rollback, but prioritize original error
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return domain.Persistence("commit transaction", err)
	}
	return nil
}

const providerColumns = `id, position, name, is_enabled, api_keys, endpoints_json, limits_json, features_json, is_custom`

const modelColumns = `provider_id, id, position, name, is_enabled, parameters, input_cost, output_cost,
	cached_cost, currency, max_input, max_output, modalities, features_json, limits_json`

func (s *Store) LoadAll(ctx context.Context) ([]schema.Provider, error) {
	var providerRows []model.ProviderRow
	if err := s.executor.SelectContext(ctx, &providerRows,
		`SELECT `+providerColumns+` FROM providers ORDER BY position`); err != nil {
		return nil, domain.Persistence("load providers", err)
	}

	var modelRows []model.ModelRow
	if err := s.executor.SelectContext(ctx, &modelRows,
		`SELECT `+modelColumns+` FROM models ORDER BY provider_id, position`); err != nil {
		return nil, domain.Persistence("load models", err)
	}

	byProvider := make(map[string][]schema.Model, len(providerRows))
	for _, row := range modelRows {
		m, err := row.ToSchema()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnreadable, err)
		}
		byProvider[row.ProviderID] = append(byProvider[row.ProviderID], m)
	}

	providers := make([]schema.Provider, 0, len(providerRows))
	for _, row := range providerRows {
		p, err := row.ToSchema()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnreadable, err)
		}
		if s.sealer != nil {
			if p.Credentials.APIKeys, err = s.sealer.OpenAll(p.Credentials.APIKeys); err != nil {
				return nil, fmt.Errorf("%w: credentials of %s: %v", domain.ErrStoreUnreadable, p.ID, err)
			}
		}
		if models, ok := byProvider[p.ID]; ok {
			p.Models = models
		}
		providers = append(providers, p)
	}
	return providers, nil
}

// ReplaceAll swaps the whole collection inside one transaction.
func (s *Store) ReplaceAll(ctx context.Context, providers []schema.Provider) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.executor.ExecContext(ctx, `DELETE FROM models`); err != nil {
			return domain.Persistence("clear models", err)
		}
		if _, err := tx.executor.ExecContext(ctx, `DELETE FROM providers`); err != nil {
			return domain.Persistence("clear providers", err)
		}
		for i, p := range providers {
			if err := tx.insertProvider(ctx, p, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) CreateProvider(ctx context.Context, p schema.Provider) error {
	return s.WithTx(ctx, func(tx *Store) error {
		exists, err := tx.providerExists(ctx, p.ID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateID, p.ID)
		}

		var next int
		if err := tx.executor.GetContext(ctx, &next, `SELECT COALESCE(MAX(position) + 1, 0) FROM providers`); err != nil {
			return domain.Persistence("create provider", err)
		}
		return tx.insertProvider(ctx, p, next)
	})
}

func (s *Store) UpdateProvider(ctx context.Context, p schema.Provider) error {
	return s.WithTx(ctx, func(tx *Store) error {
		keys, err := tx.sealKeys(p.Credentials.APIKeys)
		if err != nil {
			return err
		}
		row, err := model.NewProviderRow(p, 0, keys)
		if err != nil {
			return domain.Persistence("encode provider", err)
		}

		res, err := tx.executor.NamedExecContext(ctx, `
		UPDATE providers SET
			name = :name,
			is_enabled = :is_enabled,
			api_keys = :api_keys,
			endpoints_json = :endpoints_json,
			limits_json = :limits_json,
			features_json = :features_json,
			is_custom = :is_custom,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = :id`, row)
		if err != nil {
			return domain.Persistence("update provider", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrProviderNotFound, p.ID)
		}

		if _, err := tx.executor.ExecContext(ctx, `DELETE FROM models WHERE provider_id = ?`, p.ID); err != nil {
			return domain.Persistence("update provider models", err)
		}
		for i, m := range p.Models {
			if err := tx.insertModel(ctx, p.ID, m, i); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) DeleteProvider(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.executor.ExecContext(ctx, `DELETE FROM models WHERE provider_id = ?`, id); err != nil {
			return domain.Persistence("delete provider models", err)
		}
		res, err := tx.executor.ExecContext(ctx, `DELETE FROM providers WHERE id = ?`, id)
		if err != nil {
			return domain.Persistence("delete provider", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return fmt.Errorf("%w: %s", domain.ErrProviderNotFound, id)
		}
		return nil
	})
}

func (s *Store) CreateModel(ctx context.Context, providerID string, m schema.Model) error {
	return s.WithTx(ctx, func(tx *Store) error {
		exists, err := tx.providerExists(ctx, providerID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerID)
		}

		var count int
		if err := tx.executor.GetContext(ctx, &count,
			`SELECT COUNT(*) FROM models WHERE provider_id = ? AND id = ?`, providerID, m.ID); err != nil {
			return domain.Persistence("create model", err)
		}
		if count > 0 {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateModel, m.ID)
		}

		var next int
		if err := tx.executor.GetContext(ctx, &next,
			`SELECT COALESCE(MAX(position) + 1, 0) FROM models WHERE provider_id = ?`, providerID); err != nil {
			return domain.Persistence("create model", err)
		}
		return tx.insertModel(ctx, providerID, m, next)
	})
}

func (s *Store) UpdateModel(ctx context.Context, providerID string, m schema.Model) error {
	return s.WithTx(ctx, func(tx *Store) error {
		row, err := model.NewModelRow(providerID, m, 0)
		if err != nil {
			return domain.Persistence("encode model", err)
		}

		res, err := tx.executor.NamedExecContext(ctx, `
		UPDATE models SET
			name = :name,
			is_enabled = :is_enabled,
			parameters = :parameters,
			input_cost = :input_cost,
			output_cost = :output_cost,
			cached_cost = :cached_cost,
			currency = :currency,
			max_input = :max_input,
			max_output = :max_output,
			modalities = :modalities,
			features_json = :features_json,
			limits_json = :limits_json,
			updated_at = CURRENT_TIMESTAMP
		WHERE provider_id = :provider_id AND id = :id`, row)
		if err != nil {
			return domain.Persistence("update model", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return tx.missingModel(ctx, providerID, m.ID)
		}
		return nil
	})
}

func (s *Store) DeleteModel(ctx context.Context, providerID, modelID string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		res, err := tx.executor.ExecContext(ctx,
			`DELETE FROM models WHERE provider_id = ? AND id = ?`, providerID, modelID)
		if err != nil {
			return domain.Persistence("delete model", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return tx.missingModel(ctx, providerID, modelID)
		}
		return nil
	})
}

func (s *Store) insertProvider(ctx context.Context, p schema.Provider, position int) error {
	keys, err := s.sealKeys(p.Credentials.APIKeys)
	if err != nil {
		return err
	}
	row, err := model.NewProviderRow(p, position, keys)
	if err != nil {
		return domain.Persistence("encode provider", err)
	}

	query := `
	INSERT INTO providers (` + providerColumns + `)
	VALUES (:id, :position, :name, :is_enabled, :api_keys, :endpoints_json, :limits_json, :features_json, :is_custom)`
	if _, err := s.executor.NamedExecContext(ctx, query, row); err != nil {
		return domain.Persistence("insert provider", err)
	}

	for i, m := range p.Models {
		if err := s.insertModel(ctx, p.ID, m, i); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) insertModel(ctx context.Context, providerID string, m schema.Model, position int) error {
	row, err := model.NewModelRow(providerID, m, position)
	if err != nil {
		return domain.Persistence("encode model", err)
	}

	query := `
	INSERT INTO models (` + modelColumns + `)
	VALUES (
		:provider_id, :id, :position, :name, :is_enabled, :parameters, :input_cost, :output_cost,
		:cached_cost, :currency, :max_input, :max_output, :modalities, :features_json, :limits_json
	)`
	if _, err := s.executor.NamedExecContext(ctx, query, row); err != nil {
		return domain.Persistence("insert model", err)
	}
	return nil
}

func (s *Store) providerExists(ctx context.Context, id string) (bool, error) {
	var count int
	if err := s.executor.GetContext(ctx, &count, `SELECT COUNT(*) FROM providers WHERE id = ?`, id); err != nil {
		return false, domain.Persistence("lookup provider", err)
	}
	return count > 0, nil
}

// missingModel tells a missing provider apart from a missing model.
func (s *Store) missingModel(ctx context.Context, providerID, modelID string) error {
	exists, err := s.providerExists(ctx, providerID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrProviderNotFound, providerID)
	}
	return fmt.Errorf("%w: %s", domain.ErrModelNotFound, modelID)
}

func (s *Store) sealKeys(keys []string) ([]string, error) {
	if s.sealer == nil {
		return keys, nil
	}
	sealed, err := s.sealer.SealAll(keys)
	if err != nil {
		return nil, domain.Persistence("seal credentials", err)
	}
	return sealed, nil
}
