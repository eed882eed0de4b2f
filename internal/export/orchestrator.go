package export

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/okian/bjjscore/internal/adapters/handle"
	"github.com/okian/bjjscore/internal/composition"
	"github.com/okian/bjjscore/pkg/logger"
	"github.com/okian/bjjscore/pkg/metrics"
	"github.com/okian/bjjscore/pkg/tracing"
)

const (
	// DefaultPollInterval is the encoder progress sampling period.
	DefaultPollInterval = 200 * time.Millisecond

	defaultProgressBuffer = 64
)

// State is the orchestrator lifecycle state.
type State string

const (
	StateIdle      State = "idle"
	StateExporting State = "exporting"
)

// Outcome is the terminal result of a run.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
)

// RefreshFunc receives a freshly minted handle for a project whose stored
// handle resolved as stale.
type RefreshFunc func(projectID uuid.UUID, fresh handle.Handle)

// Request starts one export.
type Request struct {
	ProjectID   uuid.UUID
	Handle      handle.Handle
	Composition composition.Request
	OnRefresh   RefreshFunc
}

// Result is the terminal outcome of a run.
type Result struct {
	RunID       uuid.UUID `json:"runId"`
	Outcome     Outcome   `json:"outcome"`
	Destination string    `json:"destination,omitempty"`
	FileKind    string    `json:"fileKind,omitempty"`
	Err         error     `json:"-"`
}

// Run exposes the streams of one export. Progress carries strictly
// increasing values in [0,1] and closes when the run ends. Result delivers
// exactly one value and then closes.
type Run struct {
	ID       uuid.UUID
	Progress <-chan float64
	Result   <-chan Result
}

// Status is a point-in-time view of the orchestrator. Destination and
// FileKind hold the last successful export and survive later failures.
type Status struct {
	State       State     `json:"state"`
	RunID       uuid.UUID `json:"runId,omitempty"`
	ProjectID   uuid.UUID `json:"projectId,omitempty"`
	Progress    float64   `json:"progress"`
	Destination string    `json:"destination,omitempty"`
	FileKind    string    `json:"fileKind,omitempty"`
	Err         error     `json:"-"`
	StartedAt   time.Time `json:"startedAt,omitempty"`
}

// Orchestrator runs at most one export at a time.
type Orchestrator struct {
	resolver Resolver
	builder  PackageBuilder
	factory  EncoderFactory

	interval       time.Duration
	progressBuffer int
	logger         logger.Logger

	mu          sync.Mutex
	state       State
	closed      bool
	runID       uuid.UUID
	projectID   uuid.UUID
	startedAt   time.Time
	progress    float64
	destination string
	fileKind    string
	lastErr     error
	cancel      context.CancelFunc
	done        chan struct{}

	wg sync.WaitGroup
}

// New returns an idle orchestrator.
func New(resolver Resolver, builder PackageBuilder, factory EncoderFactory, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		resolver:       resolver,
		builder:        builder,
		factory:        factory,
		interval:       DefaultPollInterval,
		progressBuffer: defaultProgressBuffer,
		logger:         logger.Named("export"),
		state:          StateIdle,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Start begins an export. It returns false without side effects when an
// export is already running or the orchestrator is closed.
func (o *Orchestrator) Start(ctx context.Context, req Request) (*Run, bool) {
	o.mu.Lock()
	if o.closed || o.state == StateExporting {
		state, closed := o.state, o.closed
		o.mu.Unlock()
		metrics.RecordExportRejected()
		o.logger.Debug(ctx, "export start ignored", logger.String("state", string(state)), logger.Bool("closed", closed))
		return nil, false
	}
	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		id:       uuid.New(),
		req:      req,
		progress: make(chan float64, o.progressBuffer),
		result:   make(chan Result, 1),
		done:     make(chan struct{}),
	}
	o.state = StateExporting
	o.runID = r.id
	o.projectID = req.ProjectID
	o.startedAt = time.Now()
	o.progress = 0
	o.lastErr = nil
	o.cancel = cancel
	o.done = r.done
	o.wg.Add(1)
	o.mu.Unlock()

	metrics.RecordExportStarted()
	o.logger.Info(ctx, "export started", logger.String("run", r.id.String()), logger.String("project", req.ProjectID.String()))

	go o.run(runCtx, cancel, r)
	return &Run{ID: r.id, Progress: r.progress, Result: r.result}, true
}

// Cancel stops the running export and waits until its encoder is released.
// It reports whether an export was running.
func (o *Orchestrator) Cancel() bool {
	o.mu.Lock()
	if o.state != StateExporting {
		o.mu.Unlock()
		return false
	}
	cancel, done := o.cancel, o.done
	o.mu.Unlock()

	cancel()
	<-done
	return true
}

// Close cancels any running export and waits for every background task,
// including pending handle refreshes.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	cancel := o.cancel
	o.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	o.wg.Wait()
	return nil
}

// IsExporting reports whether a run is in flight.
func (o *Orchestrator) IsExporting() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state == StateExporting
}

// Status returns the current state and the error slot.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Status{
		State:       o.state,
		RunID:       o.runID,
		ProjectID:   o.projectID,
		Progress:    o.progress,
		Destination: o.destination,
		FileKind:    o.fileKind,
		Err:         o.lastErr,
		StartedAt:   o.startedAt,
	}
}

type run struct {
	id       uuid.UUID
	req      Request
	progress chan float64
	result   chan Result
	done     chan struct{}
	last     float64
	sent     bool
}

func (o *Orchestrator) run(ctx context.Context, cancel context.CancelFunc, r *run) {
	defer o.wg.Done()
	defer close(r.done)
	defer cancel()

	ctx, span := tracing.Tracer("export").Start(ctx, "export.Run")
	span.SetAttributes(attribute.String("run.id", r.id.String()), attribute.String("project.id", r.req.ProjectID.String()))

	res := o.execute(ctx, r)
	res.RunID = r.id

	span.SetAttributes(attribute.String("outcome", string(res.Outcome)))
	if res.Err != nil && res.Outcome == OutcomeFailed {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Err.Error())
	}
	span.End()

	o.finish(ctx, r, res)
}

func (o *Orchestrator) execute(ctx context.Context, r *run) Result {
	access, err := o.resolver.Resolve(ctx, r.req.Handle)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrNoSource, err))
	}
	defer access.Release()

	if access.Stale {
		o.refresh(ctx, r.req, access.Path)
	}

	creq := r.req.Composition
	creq.SourcePath = access.Path
	pkg, err := o.builder.Build(ctx, creq)
	if err != nil {
		return failed(err)
	}
	if ctx.Err() != nil {
		return cancelled()
	}

	enc, err := o.factory.NewEncoder(ctx, pkg)
	if err != nil {
		return failed(fmt.Errorf("%w: %w", ErrEncoderFailed, err))
	}
	defer func() {
		if cerr := enc.Close(); cerr != nil {
			o.logger.Warn(ctx, "encoder close failed", logger.Error(cerr))
		}
	}()

	if err := enc.Start(ctx); err != nil {
		enc.Cancel()
		return failed(fmt.Errorf("%w: %w", ErrEncoderFailed, err))
	}
	return o.poll(ctx, r, enc)
}

// poll samples encoder progress until the encoder finishes or the run is
// cancelled. Cancellation is checked between samples.
func (o *Orchestrator) poll(ctx context.Context, r *run, enc Encoder) Result {
	ticker := time.NewTicker(o.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			enc.Cancel()
			<-enc.Done()
			return cancelled()
		case <-enc.Done():
			return o.outcome(r, enc)
		case <-ticker.C:
			if ctx.Err() != nil {
				continue
			}
			o.publish(r, enc.Progress())
		}
	}
}

func (o *Orchestrator) outcome(r *run, enc Encoder) Result {
	switch enc.Status() {
	case EncoderCompleted:
		o.publish(r, 1)
		return Result{Outcome: OutcomeCompleted, Destination: enc.Destination(), FileKind: enc.FileKind()}
	case EncoderCancelled:
		return cancelled()
	default:
		err := ErrEncoderFailed
		if cause := enc.Err(); cause != nil {
			err = fmt.Errorf("%w: %w", ErrEncoderFailed, cause)
		}
		return failed(err)
	}
}

// publish forwards p when it advances the last sample. Sends never block;
// a slow reader misses intermediate values.
func (o *Orchestrator) publish(r *run, p float64) {
	p = min(max(p, 0), 1)
	if r.sent && p <= r.last {
		return
	}
	r.last, r.sent = p, true

	o.mu.Lock()
	o.progress = p
	o.mu.Unlock()
	metrics.UpdateExportProgress(p)

	select {
	case r.progress <- p:
	default:
	}
}

func (o *Orchestrator) finish(ctx context.Context, r *run, res Result) {
	o.mu.Lock()
	o.state = StateIdle
	o.cancel = nil
	o.lastErr = res.Err
	if res.Outcome == OutcomeCompleted {
		o.destination = res.Destination
		o.fileKind = res.FileKind
	}
	elapsed := time.Since(o.startedAt)
	o.mu.Unlock()

	metrics.RecordExportFinished(string(res.Outcome), elapsed.Seconds())
	fields := []logger.Field{
		logger.String("run", r.id.String()),
		logger.String("outcome", string(res.Outcome)),
		logger.Duration("elapsed", elapsed),
	}
	switch res.Outcome {
	case OutcomeCompleted:
		o.logger.Info(ctx, "export completed", append(fields, logger.String("destination", res.Destination))...)
	case OutcomeCancelled:
		o.logger.Info(ctx, "export cancelled", fields...)
	default:
		metrics.RecordErrorByComponent("export", "encoder")
		o.logger.Error(ctx, "export failed", append(fields, logger.Error(res.Err))...)
	}

	close(r.progress)
	r.result <- res
	close(r.result)
}

// refresh mints a fresh handle off the completion path and reports it
// through the request callback exactly once.
func (o *Orchestrator) refresh(ctx context.Context, req Request, path string) {
	if req.OnRefresh == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		fresh, err := o.resolver.Create(ctx, path)
		if err != nil {
			metrics.RecordHandleRefresh("error")
			o.logger.Warn(ctx, "handle refresh failed", logger.String("project", req.ProjectID.String()), logger.Error(err))
			return
		}
		metrics.RecordHandleRefresh("ok")
		req.OnRefresh(req.ProjectID, fresh)
	}()
}

func failed(err error) Result {
	if errors.Is(err, context.Canceled) {
		return cancelled()
	}
	return Result{Outcome: OutcomeFailed, Err: err}
}

func cancelled() Result {
	return Result{Outcome: OutcomeCancelled, Err: ErrCancelled}
}
