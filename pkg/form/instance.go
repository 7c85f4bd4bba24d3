package form

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/goliatone/go-formflow/pkg/analytics"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Instance owns the state of one mounted form: its field declarations, the
// current FormState, rules, validators, history and service.
type Instance struct {
	name          string
	fields        []model.FieldDefinition
	declared      map[string]struct{}
	engine        *Engine
	registry      *Registry
	history       *History
	service       Service
	rawSink       analytics.Sink
	sink          analytics.Sink
	logger        *slog.Logger
	maxCascade    int
	initialiseErr error

	// editMu serializes edit transactions.
	editMu sync.Mutex

	mu          sync.RWMutex
	state       *model.FormState
	subscribers []subscriber
	nextSubID   int
	closed      bool
}

type subscriber struct {
	id int
	fn func(*model.FormState)
}

// New constructs an instance for fields. Declarations, rule dependencies and
// validator targets are checked up front; any mistake is returned as an
// ErrConfiguration.
func New(fields []model.FieldDefinition, options ...Option) (*Instance, error) {
	if err := model.ValidateDefinitions(fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrConfiguration, err)
	}

	inst := &Instance{
		fields:     append([]model.FieldDefinition(nil), fields...),
		declared:   make(map[string]struct{}, len(fields)),
		engine:     NewEngine(),
		registry:   NewRegistry(),
		history:    NewHistory(0),
		service:    BaseService{},
		logger:     slog.New(slog.DiscardHandler),
		maxCascade: defaultMaxCascade,
	}
	for _, field := range fields {
		inst.declared[field.ID] = struct{}{}
	}
	inst.state = model.NewState(inst.fields)

	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(inst)
	}
	if inst.initialiseErr != nil {
		return nil, inst.initialiseErr
	}

	for _, ref := range inst.engine.References() {
		if err := inst.checkField(ref); err != nil {
			return nil, fmt.Errorf("form: rule dependency: %w", err)
		}
	}
	for _, ref := range inst.registry.Fields() {
		if err := inst.checkField(ref); err != nil {
			return nil, fmt.Errorf("form: validator target: %w", err)
		}
	}

	inst.sink = analytics.Safe(inst.rawSink, inst.logger)
	return inst, nil
}

// Name returns the instance name.
func (i *Instance) Name() string {
	return i.name
}

// Fields returns the field declarations in declaration order.
func (i *Instance) Fields() []model.FieldDefinition {
	return append([]model.FieldDefinition(nil), i.fields...)
}

// Context returns the façade for presentation collaborators and other
// instances' services.
func (i *Instance) Context() Context {
	return &formContext{inst: i}
}

// State returns the current immutable snapshot.
func (i *Instance) State() *model.FormState {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.state
}

// Engine exposes the rule engine.
func (i *Instance) Engine() *Engine {
	return i.engine
}

// Registry exposes the validator registry.
func (i *Instance) Registry() *Registry {
	return i.registry
}

// History exposes the undo/redo stacks.
func (i *Instance) History() *History {
	return i.history
}

// Subscribe registers fn to receive every committed state. The returned
// function removes the subscription. Subscribers run synchronously on the
// committing goroutine and must not block.
func (i *Instance) Subscribe(fn func(*model.FormState)) func() {
	if fn == nil {
		return func() {}
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	if i.closed {
		return func() {}
	}
	i.nextSubID++
	id := i.nextSubID
	i.subscribers = append(i.subscribers, subscriber{id: id, fn: fn})

	return func() {
		i.mu.Lock()
		defer i.mu.Unlock()
		for idx, sub := range i.subscribers {
			if sub.id == id {
				i.subscribers = append(i.subscribers[:idx:idx], i.subscribers[idx+1:]...)
				return
			}
		}
	}
}

// Init applies every rule once, in priority order, then runs the service
// OnInit hook.
func (i *Instance) Init() error {
	return i.transact(func(tx *transaction) error {
		if err := i.engine.Apply(tx.ctx); err != nil {
			return err
		}
		if err := i.service.OnInit(tx.ctx); err != nil {
			return fmt.Errorf("form: init hook: %w", err)
		}
		return nil
	})
}

// Resume runs the optional Resumer hook of the service.
func (i *Instance) Resume() error {
	resumer, ok := i.service.(Resumer)
	if !ok {
		return nil
	}
	return i.transact(func(tx *transaction) error {
		if err := resumer.OnResume(tx.ctx); err != nil {
			return fmt.Errorf("form: resume hook: %w", err)
		}
		return nil
	})
}

// Submit delegates to the service OnSubmit hook and reports the outcome to
// analytics.
func (i *Instance) Submit(ctx context.Context) (SubmitResult, error) {
	if ctx == nil {
		return SubmitResult{}, errors.New("form: context is required")
	}
	if i.isClosed() {
		return SubmitResult{}, ErrClosed
	}
	result, err := i.service.OnSubmit(ctx, i.Context())
	i.sink.Submitted(i.name, err == nil && result.Submitted)
	if err != nil {
		i.logger.Debug("form submission failed", slog.String("form", i.name), slog.Any("error", err))
	}
	return result, err
}

// Close releases history and subscriptions. Later mutations fail with
// ErrClosed; reads keep returning the last state.
func (i *Instance) Close() {
	i.mu.Lock()
	i.closed = true
	i.subscribers = nil
	i.mu.Unlock()
	i.history.Release()
}

func (i *Instance) isClosed() bool {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.closed
}

func (i *Instance) checkField(id string) error {
	if _, ok := i.declared[id]; !ok {
		return unknownField(id)
	}
	return nil
}

func (i *Instance) setValue(id string, value any) error {
	if err := i.checkField(id); err != nil {
		return err
	}
	return i.transact(func(tx *transaction) error {
		if err := i.commitValue(id, value); err != nil {
			return err
		}
		tx.enqueue(edit{field: id, value: value})
		return nil
	})
}

func (i *Instance) commitValue(id string, value any) error {
	return i.update(func(state *model.FormState) (*model.FormState, error) {
		return state.WithValue(id, value), nil
	})
}

func (i *Instance) setVisible(id string, visible bool) error {
	if err := i.checkField(id); err != nil {
		return err
	}
	return i.update(func(state *model.FormState) (*model.FormState, error) {
		if state.Visible(id) == visible {
			return state, nil
		}
		return state.WithVisible(id, visible), nil
	})
}

func (i *Instance) setEnabled(id string, enabled bool) error {
	if err := i.checkField(id); err != nil {
		return err
	}
	return i.update(func(state *model.FormState) (*model.FormState, error) {
		if state.IsEnabled(id) == enabled {
			return state, nil
		}
		return state.WithEnabled(id, enabled), nil
	})
}

func (i *Instance) setFieldError(id, message string) error {
	if err := i.checkField(id); err != nil {
		return err
	}
	return i.update(func(state *model.FormState) (*model.FormState, error) {
		return state.WithFieldError(id, message), nil
	})
}

func (i *Instance) setAllErrors(errs []model.FormError) error {
	for _, err := range errs {
		if field := model.ErrorField(err); field != "" {
			if checkErr := i.checkField(field); checkErr != nil {
				return checkErr
			}
		}
	}
	return i.update(func(state *model.FormState) (*model.FormState, error) {
		return state.WithErrors(errs), nil
	})
}

func (i *Instance) updateErrors(fn func([]model.FormError) []model.FormError) error {
	return i.update(func(state *model.FormState) (*model.FormState, error) {
		return state.WithErrors(fn(state.Errors())), nil
	})
}

func (i *Instance) snapshot() (Snapshot, error) {
	if i.isClosed() {
		return Snapshot{}, ErrClosed
	}
	return i.history.Push(i.State()), nil
}

func (i *Instance) undo() (bool, error) {
	restored := false
	err := i.update(func(state *model.FormState) (*model.FormState, error) {
		var prev *model.FormState
		prev, restored = i.history.Undo(state)
		return prev, nil
	})
	return restored, err
}

func (i *Instance) redo() (bool, error) {
	restored := false
	err := i.update(func(state *model.FormState) (*model.FormState, error) {
		var next *model.FormState
		next, restored = i.history.Redo(state)
		return next, nil
	})
	return restored, err
}

// update commits the state returned by fn and notifies subscribers once the
// lock is released. Returning the same pointer skips the commit.
func (i *Instance) update(fn func(*model.FormState) (*model.FormState, error)) error {
	i.mu.Lock()
	if i.closed {
		i.mu.Unlock()
		return ErrClosed
	}
	next, err := fn(i.state)
	if err != nil || next == nil || next == i.state {
		i.mu.Unlock()
		return err
	}
	i.state = next
	subs := append([]subscriber(nil), i.subscribers...)
	i.mu.Unlock()

	for _, sub := range subs {
		sub.fn(next)
	}
	return nil
}

type edit struct {
	field string
	value any
}

// transaction is one serialized unit of work: the edit that opened it plus
// every follow-up edit issued by rules and hooks while it runs.
type transaction struct {
	inst  *Instance
	ctx   *formContext
	mu    sync.Mutex
	queue []edit
	done  bool
	count int
}

func (i *Instance) transact(fn func(*transaction) error) error {
	if i.isClosed() {
		return ErrClosed
	}
	i.editMu.Lock()
	defer i.editMu.Unlock()

	tx := &transaction{inst: i}
	tx.ctx = &formContext{inst: i, tx: tx}

	if err := fn(tx); err != nil {
		tx.finish()
		i.logger.Error("form transaction failed", slog.String("form", i.name), slog.Any("error", err))
		return err
	}
	if err := tx.drain(); err != nil {
		i.logger.Error("form transaction failed", slog.String("form", i.name), slog.Any("error", err))
		return err
	}
	return nil
}

// setValue handles a SetValue issued from inside the transaction. It reports
// false once the transaction finished so the caller falls back to a fresh
// transaction.
func (tx *transaction) setValue(id string, value any) (bool, error) {
	if err := tx.inst.checkField(id); err != nil {
		return true, err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return false, nil
	}
	if current, ok := tx.inst.State().Value(id); ok && model.EqualValues(current, value) {
		return true, nil
	}
	if err := tx.inst.commitValue(id, value); err != nil {
		return true, err
	}
	tx.queue = append(tx.queue, edit{field: id, value: value})
	return true, nil
}

func (tx *transaction) enqueue(e edit) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.queue = append(tx.queue, e)
}

func (tx *transaction) next() (edit, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if len(tx.queue) == 0 {
		tx.done = true
		return edit{}, false
	}
	e := tx.queue[0]
	tx.queue = tx.queue[1:]
	return e, true
}

func (tx *transaction) finish() {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	tx.queue = nil
	tx.done = true
}

func (tx *transaction) drain() error {
	inst := tx.inst
	for {
		e, ok := tx.next()
		if !ok {
			return nil
		}
		tx.count++
		if tx.count > inst.maxCascade {
			tx.finish()
			return fmt.Errorf("%w after %d edits (last field %q)", ErrCascade, inst.maxCascade, e.field)
		}
		if err := inst.engine.ApplyFor(tx.ctx, e.field); err != nil {
			tx.finish()
			return err
		}
		if err := inst.service.OnFieldChanged(tx.ctx, e.field, e.value); err != nil {
			tx.finish()
			return fmt.Errorf("form: field changed hook for %q: %w", e.field, err)
		}
		inst.sink.FieldChanged(inst.name, e.field, e.value)
	}
}
