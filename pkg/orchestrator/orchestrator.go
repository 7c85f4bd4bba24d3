package orchestrator

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/goliatone/go-formflow/pkg/form"
)

var (
	// ErrNotFound is returned when no instance is mounted under an id.
	ErrNotFound = errors.New("orchestrator: instance not found")
	// ErrAlreadyMounted is returned when an id is already taken.
	ErrAlreadyMounted = errors.New("orchestrator: instance already mounted")
)

// Option customises the orchestrator configuration.
type Option func(*Orchestrator)

// WithLogger sets the structured logger used for mount lifecycle events.
func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithIDGenerator overrides how MountNew names instances. Defaults to UUIDv7.
func WithIDGenerator(fn func() string) Option {
	return func(o *Orchestrator) {
		if fn != nil {
			o.newID = fn
		}
	}
}

// Orchestrator maps instance ids to mounted form instances. The map is only
// mutated on mount and unmount; reads share a read lock.
type Orchestrator struct {
	mu        sync.RWMutex
	instances map[string]*form.Instance
	order     map[string]int
	seq       int
	logger    *slog.Logger
	newID     func() string
}

// New constructs an empty Orchestrator.
func New(options ...Option) *Orchestrator {
	o := &Orchestrator{
		instances: make(map[string]*form.Instance),
		order:     make(map[string]int),
		logger:    slog.New(slog.DiscardHandler),
		newID:     defaultID,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(o)
	}
	return o
}

func defaultID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Mount registers inst under id.
func (o *Orchestrator) Mount(id string, inst *form.Instance) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("orchestrator: instance id is required")
	}
	if inst == nil {
		return fmt.Errorf("orchestrator: instance %q is nil", id)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.instances[id]; exists {
		return fmt.Errorf("%w: %q", ErrAlreadyMounted, id)
	}
	o.seq++
	o.instances[id] = inst
	o.order[id] = o.seq
	o.logger.Debug("form instance mounted", slog.String("id", id), slog.String("form", inst.Name()))
	return nil
}

// MountNew registers inst under a generated id and returns it.
func (o *Orchestrator) MountNew(inst *form.Instance) (string, error) {
	id := o.newID()
	if err := o.Mount(id, inst); err != nil {
		return "", err
	}
	return id, nil
}

// Unmount removes the instance and closes it: history is released and
// subscriptions are dropped.
func (o *Orchestrator) Unmount(id string) error {
	o.mu.Lock()
	inst, ok := o.instances[id]
	if ok {
		delete(o.instances, id)
		delete(o.order, id)
	}
	o.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	inst.Close()
	o.logger.Debug("form instance unmounted", slog.String("id", id), slog.String("form", inst.Name()))
	return nil
}

// Get returns the instance mounted under id.
func (o *Orchestrator) Get(id string) (*form.Instance, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()

	inst, ok := o.instances[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return inst, nil
}

// Context returns the façade of the instance mounted under id.
func (o *Orchestrator) Context(id string) (form.Context, error) {
	inst, err := o.Get(id)
	if err != nil {
		return nil, err
	}
	return inst.Context(), nil
}

// IDs lists mounted ids in mount order.
func (o *Orchestrator) IDs() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ids := make([]string, 0, len(o.instances))
	for id := range o.instances {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		return o.order[ids[i]] < o.order[ids[j]]
	})
	return ids
}

// Len reports how many instances are mounted.
func (o *Orchestrator) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.instances)
}

// Close unmounts every instance.
func (o *Orchestrator) Close() {
	for _, id := range o.IDs() {
		_ = o.Unmount(id)
	}
}
