package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
)

// ErrNotFound is returned when no state is stored for an instance id.
var ErrNotFound = errors.New("store: form state not found")

// Record is one stored form state row.
type Record struct {
	ID         string `db:"id"`
	InstanceID string `db:"instance_id"`
	Form       string `db:"form"`
	Payload    string `db:"payload"`
	CreatedAt  int64  `db:"created_at"`
	UpdatedAt  int64  `db:"updated_at"`
}

// Persisted decodes the stored payload.
func (r Record) Persisted() (model.Persisted, error) {
	return model.UnmarshalPersisted([]byte(r.Payload))
}

// Updated returns UpdatedAt as a time.
func (r Record) Updated() time.Time {
	return time.UnixMilli(r.UpdatedAt).UTC()
}

// Option customises a Store.
type Option func(*Store)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// Store saves and loads persisted form state.
type Store struct {
	db      *sqlx.DB
	queries *queries
	logger  *slog.Logger
	now     func() time.Time
}

// New prepares a Store on db, creating the schema when missing.
func New(ctx context.Context, db *sqlx.DB, options ...Option) (*Store, error) {
	if db == nil {
		return nil, errors.New("store: database is nil")
	}
	q, err := loadQueries(db)
	if err != nil {
		return nil, err
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, err
	}

	s := &Store{
		db:      db,
		queries: q,
		logger:  slog.New(slog.DiscardHandler),
		now:     time.Now,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(s)
	}
	return s, nil
}

// Save stores p under instanceID, replacing any earlier state.
func (s *Store) Save(ctx context.Context, instanceID, formName string, p model.Persisted) error {
	instanceID = strings.TrimSpace(instanceID)
	if instanceID == "" {
		return errors.New("store: instance id is required")
	}
	payload, err := model.MarshalPersisted(p)
	if err != nil {
		return fmt.Errorf("store: encode state: %w", err)
	}

	now := s.now().UnixMilli()
	id := uuid.Must(uuid.NewV7()).String()
	if _, err := s.queries.exec(ctx, "upsert-form-state", id, instanceID, formName, string(payload), now, now); err != nil {
		return fmt.Errorf("store: save %q: %w", instanceID, err)
	}
	s.logger.Debug("form state saved", slog.String("instance", instanceID), slog.String("form", formName))
	return nil
}

// Load returns the state stored under instanceID.
func (s *Store) Load(ctx context.Context, instanceID string) (model.Persisted, error) {
	record, err := s.Get(ctx, instanceID)
	if err != nil {
		return model.Persisted{}, err
	}
	p, err := record.Persisted()
	if err != nil {
		return model.Persisted{}, fmt.Errorf("store: decode %q: %w", instanceID, err)
	}
	return p, nil
}

// Get returns the raw record stored under instanceID.
func (s *Store) Get(ctx context.Context, instanceID string) (Record, error) {
	var record Record
	if err := s.queries.get(ctx, "get-form-state", &record, instanceID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, fmt.Errorf("%w: %q", ErrNotFound, instanceID)
		}
		return Record{}, fmt.Errorf("store: load %q: %w", instanceID, err)
	}
	return record, nil
}

// List returns stored records, most recently updated first. A non-empty
// formName restricts the result to that form.
func (s *Store) List(ctx context.Context, formName string) ([]Record, error) {
	var records []Record
	var err error
	if formName == "" {
		err = s.queries.selectAll(ctx, "list-form-states", &records)
	} else {
		err = s.queries.selectAll(ctx, "list-form-states-by-form", &records, formName)
	}
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	return records, nil
}

// Delete removes the state stored under instanceID.
func (s *Store) Delete(ctx context.Context, instanceID string) error {
	result, err := s.queries.exec(ctx, "delete-form-state", instanceID)
	if err != nil {
		return fmt.Errorf("store: delete %q: %w", instanceID, err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, instanceID)
	}
	return nil
}

// SaveInstance stores the current state of inst.
func (s *Store) SaveInstance(ctx context.Context, instanceID string, inst *form.Instance) error {
	if inst == nil {
		return errors.New("store: instance is nil")
	}
	return s.Save(ctx, instanceID, inst.Name(), inst.State().Persisted())
}

// Autosave subscribes to inst and stores every committed state. Failures are
// logged. The returned function stops saving.
func (s *Store) Autosave(ctx context.Context, instanceID string, inst *form.Instance) func() {
	if inst == nil {
		return func() {}
	}
	return inst.Subscribe(func(state *model.FormState) {
		if err := s.Save(ctx, instanceID, inst.Name(), state.Persisted()); err != nil {
			s.logger.Warn("form state autosave failed",
				slog.String("instance", instanceID),
				slog.Any("error", err),
			)
		}
	})
}
