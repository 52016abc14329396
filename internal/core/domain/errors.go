package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrProviderNotFound = errors.New("provider not found")
	ErrModelNotFound    = errors.New("model not found")
	ErrDuplicateModel   = errors.New("model already exists")
	ErrDuplicateID      = errors.New("provider already exists")
	// ErrStoreUnreadable is wrapped by stores when the backing data is corrupt.
	ErrStoreUnreadable = errors.New("store unreadable")
	// ErrCacheMiss is returned by cache backends for absent or expired keys.
	ErrCacheMiss = errors.New("cache miss")
	// ErrImportCancelled marks a document source that was dismissed without a choice.
	ErrImportCancelled = errors.New(ImportCancelledMessage)
)

const (
	ImportCancelledMessage = "Import cancelled"
	ExportCancelledMessage = "Export cancelled"
)

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates every failure found in one validation pass.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	msgs := make([]string, 0, len(v))
	for _, e := range v {
		msgs = append(msgs, e.Error())
	}
	return strings.Join(msgs, "; ")
}

// Fields returns the errors keyed by field, the shape used in Problem extensions.
func (v ValidationErrors) Fields() map[string]string {
	out := make(map[string]string, len(v))
	for _, e := range v {
		out[e.Field] = e.Message
	}
	return out
}

// PersistenceError wraps a failure of the storage collaborator.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// Persistence wraps err unless it is nil.
func Persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// Problem implements RFC 9457
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`

	Log error `json:"-"`
}

func (p *Problem) Error() string {
	return fmt.Sprintf("[%d] %s: %s", p.Status, p.Title, p.Detail)
}

func (p *Problem) MarshalJSON() ([]byte, error) {
	type Alias Problem

	data := make(map[string]interface{})

	for k, v := range p.Extensions {
		data[k] = v
	}

	stdJSON, _ := json.Marshal(Alias(*p))
	_ = json.Unmarshal(stdJSON, &data)

	return json.Marshal(data)
}

type ProblemOption func(*Problem)

// New creates a generic Problem
func New(status int, title, detail string, opts ...ProblemOption) *Problem {
	p := &Problem{
		Type:       "about:blank",
		Title:      title,
		Status:     status,
		Detail:     detail,
		Extensions: make(map[string]interface{}),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// WithExtension adds a custom key-value pair to the response
func WithExtension(key string, value interface{}) ProblemOption {
	return func(p *Problem) {
		p.Extensions[key] = value
	}
}

// WithLog attaches an internal error for server-side logging
func WithLog(err error) ProblemOption {
	return func(p *Problem) {
		p.Log = err
	}
}

// WithType sets the RFC "type" URI
func WithType(uri string) ProblemOption {
	return func(p *Problem) {
		p.Type = uri
	}
}

// ValidationProblem creates a rich validation error
func ValidationProblem(errs ValidationErrors) *Problem {
	return New(
		http.StatusBadRequest,
		"Validation Error",
		"One or more fields failed validation",
		WithExtension("errors", errs.Fields()),
	)
}

// BadRequestError creates a standard error for a bad request
func BadRequestError(detail string, opts ...ProblemOption) *Problem {
	return New(http.StatusBadRequest, "Bad Request", detail, opts...)
}

// NotFoundError creates a standard 404 error
func NotFoundError(detail string) *Problem {
	return New(http.StatusNotFound, "Not Found", detail)
}

// ConflictError creates a standard 409 error
func ConflictError(detail string) *Problem {
	return New(http.StatusConflict, "Conflict", detail)
}

// InternalError creates a standard error for any internal server error
func InternalError(detail string, err error) *Problem {
	return New(http.StatusInternalServerError, "Internal Server Error", detail, WithLog(err))
}

// ProblemFrom maps a domain error onto the matching Problem.
func ProblemFrom(err error) *Problem {
	var p *Problem
	if errors.As(err, &p) {
		return p
	}

	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return ValidationProblem(verrs)
	}

	switch {
	case errors.Is(err, ErrProviderNotFound), errors.Is(err, ErrModelNotFound):
		return NotFoundError(err.Error())
	case errors.Is(err, ErrDuplicateModel), errors.Is(err, ErrDuplicateID):
		return ConflictError(err.Error())
	}

	var perr *PersistenceError
	if errors.As(err, &perr) {
		return InternalError("Storage operation failed", err)
	}

	return InternalError("An unexpected error occurred.", err)
}
