package query

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/phrazzld/shelf-api/internal/domain"
	"github.com/phrazzld/shelf-api/internal/platform/logger"
	"github.com/phrazzld/shelf-api/internal/redact"
	"github.com/phrazzld/shelf-api/internal/resolve"
	"github.com/phrazzld/shelf-api/internal/store"
	"golang.org/x/sync/errgroup"
)

// Mutator performs the writes behind mutation fields.
type Mutator interface {
	AddAuthor(ctx context.Context, name string) (*domain.Author, error)
	AddBook(ctx context.Context, name string, authorID int) (*domain.Book, error)
}

// Outcome summarises how a request ended, for metrics.
type Outcome string

// Request outcomes
const (
	OutcomeOK       Outcome = "ok"
	OutcomePartial  Outcome = "partial"
	OutcomeRejected Outcome = "rejected"
	OutcomeTimeout  Outcome = "timeout"
)

// Observer receives execution measurements. Implementations must be safe for
// concurrent use.
type Observer interface {
	ObserveRequest(op OperationType, outcome Outcome, elapsed time.Duration)
	ObserveFieldError(code Code)
}

// Options configures an Executor.
type Options struct {
	Limits
	// Parallelism bounds the list items resolved concurrently per request.
	// Values below 1 resolve serially.
	Parallelism int
	// Timeout is the per-request deadline. Zero means no deadline beyond the caller's.
	Timeout time.Duration
}

// Request is one query to execute.
type Request struct {
	Query         string
	Variables     map[string]any
	OperationName string
	// ReadOnly rejects mutation operations with ErrMutationNotAllowed.
	ReadOnly bool
}

// Executor runs queries and mutations against the catalogue schema.
type Executor struct {
	store    store.EntityStore
	resolver *resolve.Resolver
	mutator  Mutator
	observer Observer
	schema   *Schema
	opts     Options
	logger   *slog.Logger
}

// NewExecutor creates an Executor. mutator and observer may be nil; without a
// mutator every mutation is rejected. If logger is nil, a default logger will be used.
func NewExecutor(
	s store.EntityStore,
	r *resolve.Resolver,
	mutator Mutator,
	observer Observer,
	opts Options,
	logger *slog.Logger,
) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{
		store:    s,
		resolver: r,
		mutator:  mutator,
		observer: observer,
		schema:   Catalogue,
		opts:     opts,
		logger:   logger.With(slog.String("component", "query_executor")),
	}
}

// Execute parses, validates and runs req.
//
// The returned Response is always non-nil and ready to encode. The error is
// non-nil only for request-level failures: it wraps domain.ErrValidation for
// malformed or invalid requests, and is ErrMutationNotAllowed,
// ErrDeadlineExceeded or ErrCanceled otherwise. Field-level failures are
// reported in Response.Errors with a nil error.
func (ex *Executor) Execute(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	doc, err := Parse(req.Query)
	if err != nil {
		return ex.reject(ctx, OperationQuery, start, err)
	}

	op, err := selectOperation(doc, req.OperationName)
	if err != nil {
		return ex.reject(ctx, OperationQuery, start, err)
	}

	if req.ReadOnly && op.Type == OperationMutation {
		ex.observe(op.Type, OutcomeRejected, start)
		return &Response{Errors: []*Error{
			requestError(CodeValidationFailed, ErrMutationNotAllowed.Error(), &op.Pos),
		}}, ErrMutationNotAllowed
	}

	return ex.run(ctx, op, req.Variables, start)
}

// ExecuteOperation validates and runs an already built operation.
func (ex *Executor) ExecuteOperation(ctx context.Context, op *Operation, variables map[string]any) (*Response, error) {
	return ex.run(ctx, op, variables, time.Now())
}

func (ex *Executor) run(ctx context.Context, op *Operation, variables map[string]any, start time.Time) (*Response, error) {
	log := logger.FromContextOrDefault(ctx, ex.logger)

	vars, err := coerceVariables(ex.schema, op, variables)
	if err != nil {
		return ex.reject(ctx, op.Type, start, err)
	}

	p, err := validate(ex.schema, op, vars, ex.opts.Limits, ex.mutator != nil)
	if err != nil {
		return ex.reject(ctx, op.Type, start, err)
	}

	if ex.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ex.opts.Timeout)
		defer cancel()
	}

	e := &execution{
		ex:      ex,
		plan:    p,
		session: ex.resolver.Session(),
		log:     log,
	}
	if ex.opts.Parallelism > 1 {
		e.sem = make(chan struct{}, ex.opts.Parallelism-1)
	}

	data := e.executeRoot(ctx)

	if err := ctx.Err(); err != nil {
		outcome, code, msg, reqErr := OutcomeTimeout, CodeDeadlineExceeded, "request deadline exceeded", ErrDeadlineExceeded
		if errors.Is(err, context.Canceled) {
			code, msg, reqErr = CodeInternal, "request cancelled", ErrCanceled
		}
		log.Warn("query execution aborted",
			slog.String("operation", string(op.Type)),
			slog.String("reason", err.Error()),
			slog.Int("committed", e.committed),
			slog.Duration("elapsed", time.Since(start)))
		ex.observe(op.Type, outcome, start)

		// Writes already made stay visible; the fields that never ran are null.
		if e.committed > 0 {
			errs := append(e.sortedErrors(), requestError(code, msg, nil))
			return &Response{Data: data, Errors: errs}, nil
		}
		return &Response{Errors: []*Error{requestError(code, msg, nil)}}, reqErr
	}

	resp := &Response{Data: data, Errors: e.sortedErrors()}
	outcome := OutcomeOK
	if len(resp.Errors) > 0 {
		outcome = OutcomePartial
	}
	ex.observe(op.Type, outcome, start)

	log.Debug("query executed",
		slog.String("operation", string(op.Type)),
		slog.String("operation_name", op.Name),
		slog.Int("fields", p.fields),
		slog.Int("depth", p.depth),
		slog.Int("errors", len(resp.Errors)),
		slog.Duration("elapsed", time.Since(start)))
	return resp, nil
}

func (ex *Executor) reject(ctx context.Context, op OperationType, start time.Time, err error) (*Response, error) {
	msg, pos := validationMessage(err)
	logger.FromContextOrDefault(ctx, ex.logger).Debug("query rejected",
		slog.String("operation", string(op)),
		slog.String("reason", msg))
	ex.observe(op, OutcomeRejected, start)
	return &Response{Errors: []*Error{requestError(CodeValidationFailed, msg, pos)}}, err
}

func (ex *Executor) observe(op OperationType, outcome Outcome, start time.Time) {
	if ex.observer != nil {
		ex.observer.ObserveRequest(op, outcome, time.Since(start))
	}
}

// execution is the state of one pass over a validated plan.
type execution struct {
	ex      *Executor
	plan    *plan
	session *resolve.Session
	sem     chan struct{}
	log     *slog.Logger

	mu      sync.Mutex
	errs    []orderedError
	aborted bool

	// committed counts root mutation fields whose write returned a value.
	committed int
}

// orderedError remembers where in document order an error occurred, so the
// final list does not depend on goroutine scheduling.
type orderedError struct {
	order []int
	err   *Error
}

func (e *execution) executeRoot(ctx context.Context) *Object {
	if e.plan.op.Type != OperationMutation {
		return e.executeSelections(ctx, e.plan.root, nil, e.plan.op.Selections, nil, nil)
	}

	// Mutation fields run one at a time in document order, each read back
	// through a fresh session so no memo predates the write.
	fields := e.plan.op.Selections
	obj := newObject(fields)
	for i, f := range fields {
		if ctx.Err() != nil || e.aborted {
			break
		}
		e.session = e.ex.resolver.Session()
		val := e.resolveField(ctx, e.plan.root, nil, f, []any{f.ResponseKey()}, []int{i})
		obj.set(f.ResponseKey(), val)
		if val != nil {
			e.committed++
		}
	}
	return obj
}

func (e *execution) executeSelections(
	ctx context.Context,
	objType *ObjectType,
	parent any,
	fields []*Field,
	path []any,
	order []int,
) *Object {
	obj := newObject(fields)
	for i, f := range fields {
		if ctx.Err() != nil {
			return obj
		}
		obj.set(f.ResponseKey(), e.resolveField(ctx, objType, parent, f, extend(path, any(f.ResponseKey())), extend(order, i)))
	}
	return obj
}

func (e *execution) resolveField(
	ctx context.Context,
	objType *ObjectType,
	parent any,
	f *Field,
	path []any,
	order []int,
) any {
	if f.Name == typenameField {
		return objType.Name
	}

	def, _ := objType.Field(f.Name)
	val, err := def.resolve(ctx, e, parent, e.plan.args[f])
	if err != nil {
		e.fieldError(ctx, f, path, order, err)
		return nil
	}
	return e.completeValue(ctx, def, f, val, path, order)
}

func (e *execution) completeValue(
	ctx context.Context,
	def *FieldDef,
	f *Field,
	val any,
	path []any,
	order []int,
) any {
	if val == nil {
		return nil
	}

	child, isObject := e.ex.schema.Type(def.Type)
	if !isObject {
		return val
	}

	if !def.List {
		return e.executeSelections(ctx, child, val, f.Selections, path, order)
	}

	items := val.([]any)
	out := make([]any, len(items))
	var g errgroup.Group
	for i, item := range items {
		resolveItem := func() {
			out[i] = e.executeSelections(ctx, child, item, f.Selections, extend(path, any(i)), extend(order, i))
		}
		if e.tryAcquire() {
			g.Go(func() error {
				defer e.release()
				resolveItem()
				return nil
			})
			continue
		}
		resolveItem()
	}
	_ = g.Wait()
	return out
}

// tryAcquire reserves a worker slot without blocking. When none is free the
// caller resolves inline, so nested lists cannot deadlock on the semaphore.
func (e *execution) tryAcquire() bool {
	if e.sem == nil {
		return false
	}
	select {
	case e.sem <- struct{}{}:
		return true
	default:
		return false
	}
}

func (e *execution) release() {
	<-e.sem
}

func (e *execution) fieldError(ctx context.Context, f *Field, path []any, order []int, err error) {
	// Deadline and cancellation are reported once for the whole request.
	if ctx.Err() != nil && (errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)) {
		return
	}

	code, msg, safe := classify(err)
	if safe {
		e.log.Warn("field resolution failed",
			slog.Any("path", path),
			slog.String("code", string(code)),
			slog.String("error", err.Error()))
	} else {
		e.log.Error("field resolution failed",
			slog.Any("path", path),
			slog.String("code", string(code)),
			slog.String("error", redact.Error(err)))
	}

	if e.ex.observer != nil {
		e.ex.observer.ObserveFieldError(code)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.plan.op.Type == OperationMutation && len(path) == 1 && code == CodeValidationFailed {
		e.aborted = true
	}
	e.errs = append(e.errs, orderedError{
		order: order,
		err: &Error{
			Message:    msg,
			Locations:  []Position{f.Pos},
			Path:       path,
			Extensions: ErrorExtensions{Code: code},
		},
	})
}

func (e *execution) sortedErrors() []*Error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.errs) == 0 {
		return nil
	}

	slices.SortFunc(e.errs, func(a, b orderedError) int {
		return slices.Compare(a.order, b.order)
	})
	out := make([]*Error, len(e.errs))
	for i, oe := range e.errs {
		out[i] = oe.err
	}
	return out
}

func extend[T any](s []T, v T) []T {
	out := make([]T, len(s), len(s)+1)
	copy(out, s)
	return append(out, v)
}
