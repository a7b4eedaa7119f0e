// Package livecode orchestrates live code explanation: it debounces edits,
// requests analyses tagged with generations, keeps only the newest result and
// animates through its steps.
//
// All state is owned by a single timeline. Edits, timer firings and request
// completions are posted to it as tasks and run one at a time, so none of
// the components below need locks.
package livecode

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"livecode/internal/clock"
	"livecode/internal/explain"
	"livecode/internal/logging"
	"livecode/internal/types"

	"github.com/google/uuid"
)

// ErrRunning is returned by Run when the session is already running.
var ErrRunning = errors.New("session already running")

// Executor runs one logical analysis call, retries included.
type Executor interface {
	Execute(ctx context.Context, snapshot types.SourceSnapshot) (*explain.Result, error)
}

// Tracer records how each analysis request was resolved.
type Tracer interface {
	RecordTrace(ctx context.Context, trace types.AnalysisTrace) error
}

// Options configures a Session.
type Options struct {
	Quiescence   time.Duration // Q
	TickInterval time.Duration // T
	Clock        clock.Clock
	Gate         ExecutionStatus
	Tracer       Tracer
	// Observer, if set, is called on the timeline after every view change.
	// It must not block.
	Observer func(View)
}

// DefaultOptions returns the standard timings.
func DefaultOptions() Options {
	return Options{
		Quiescence:   1500 * time.Millisecond,
		TickInterval: 2500 * time.Millisecond,
	}
}

// Session is one live explanation session. Create it with NewSession, feed it
// with Edit and drive it with Run.
type Session struct {
	id   string
	opts Options
	clk  clock.Clock
	exec Executor

	tasks  chan func()
	done   chan struct{}
	post   func(func())
	spawn  func(func())
	traces chan types.AnalysisTrace
	// emit hands a finished trace to the writer; it must not block.
	emit func(types.AnalysisTrace)
	wg   sync.WaitGroup

	running atomic.Bool
	view    atomic.Pointer[View]

	// Timeline-owned state
	ctx         context.Context
	debouncer   *Debouncer
	guard       *Guard
	anim        *Animator
	store       *SequenceStore
	tick        clock.Timer
	issuedAt    map[uint64]time.Time
	unavailable bool
}

// NewSession creates a session analyzing edits through exec.
func NewSession(exec Executor, opts Options) *Session {
	defaults := DefaultOptions()
	if opts.Quiescence <= 0 {
		opts.Quiescence = defaults.Quiescence
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = defaults.TickInterval
	}
	if opts.Clock == nil {
		opts.Clock = clock.Real()
	}
	if opts.Gate == nil {
		opts.Gate = never{}
	}

	s := &Session{
		id:       uuid.NewString(),
		opts:     opts,
		clk:      opts.Clock,
		exec:     exec,
		tasks:    make(chan func(), 64),
		done:     make(chan struct{}),
		traces:   make(chan types.AnalysisTrace, 64),
		ctx:      context.Background(),
		guard:    &Guard{},
		anim:     NewAnimator(opts.Gate),
		issuedAt: make(map[uint64]time.Time),
	}
	s.post = s.enqueue
	s.spawn = s.goSpawn
	s.emit = s.queueTrace
	s.store = NewSequenceStore(s.guard, s.anim)
	s.debouncer = NewDebouncer(s.clk, opts.Quiescence, func(f func()) { s.post(f) }, s.analyze)
	s.view.Store(&View{SessionID: s.id})
	return s
}

// ID returns the session id.
func (s *Session) ID() string { return s.id }

// Current returns the latest published view. Safe from any goroutine.
func (s *Session) Current() View {
	return *s.view.Load()
}

// Edit submits the buffer content after a change. Safe from any goroutine;
// blocks only if the timeline's queue is full.
func (s *Session) Edit(snapshot types.SourceSnapshot) {
	s.post(func() { s.onEdit(snapshot) })
}

// Run processes the timeline until ctx is done. Requests still in flight are
// abandoned and their results discarded.
func (s *Session) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrRunning
	}
	s.start(ctx)
	defer s.stop()

	logging.Session("session %s started (Q=%v, T=%v)", s.id, s.opts.Quiescence, s.opts.TickInterval)
	for {
		select {
		case <-ctx.Done():
			logging.Session("session %s stopped", s.id)
			return nil
		case task := <-s.tasks:
			task()
		}
	}
}

func (s *Session) start(ctx context.Context) {
	s.ctx = ctx
	if s.opts.Tracer != nil {
		s.goSpawn(s.traceLoop)
	}
	s.scheduleTick()
}

func (s *Session) stop() {
	close(s.done)
	s.debouncer.Cancel()
	if s.tick != nil {
		s.tick.Stop()
	}
	s.wg.Wait()
}

func (s *Session) enqueue(task func()) {
	select {
	case s.tasks <- task:
	case <-s.done:
	}
}

func (s *Session) goSpawn(fn func()) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn()
	}()
}

func (s *Session) onEdit(snapshot types.SourceSnapshot) {
	if snapshot.IsEmpty() {
		s.debouncer.Cancel()
		gen := s.store.Clear()
		s.unavailable = false
		logging.SessionDebug("buffer empty, cleared at generation %d", gen)
		s.record(types.AnalysisTrace{Generation: gen, Snapshot: snapshot, Outcome: types.OutcomeCleared})
		s.publish()
		return
	}
	s.debouncer.Edit(snapshot)
}

// analyze issues a generation for snapshot and starts the request off the
// timeline.
func (s *Session) analyze(snapshot types.SourceSnapshot) {
	req := types.AnalysisRequest{Generation: s.guard.Issue(), Snapshot: snapshot}
	s.issuedAt[req.Generation] = s.clk.Now()
	s.anim.SetInFlight(true)
	logging.Get(logging.CategorySession).With("generation", req.Generation).Debug("analysis issued (%s, %d bytes)", snapshot.Language, len(snapshot.Code))
	s.publish()

	ctx := s.ctx
	s.spawn(func() {
		res, err := s.exec.Execute(ctx, req.Snapshot)
		if res != nil {
			req.Attempt = res.Attempts
		}
		s.post(func() { s.complete(req, res, err) })
	})
}

// complete applies the outcome of req. Only the latest generation can change
// what is displayed.
func (s *Session) complete(req types.AnalysisRequest, res *explain.Result, err error) {
	gen := req.Generation
	trace := types.AnalysisTrace{Generation: gen, Snapshot: req.Snapshot, Attempts: req.Attempt}
	if started, ok := s.issuedAt[gen]; ok {
		trace.Duration = s.clk.Now().Sub(started)
		delete(s.issuedAt, gen)
	}
	log := logging.Get(logging.CategorySession).With("generation", gen)

	if err != nil {
		if !s.guard.Fail(gen) {
			log.Debug("superseded failure discarded")
			trace.Outcome = types.OutcomeSuperseded
			s.record(trace)
			return
		}
		s.anim.SetInFlight(false)
		if s.store.Current().IsEmpty() {
			s.unavailable = true
		}
		log.Warn("analysis exhausted, keeping generation %d: %v", s.store.Current().Generation, err)
		trace.Outcome = types.OutcomeExhausted
		s.record(trace)
		s.publish()
		return
	}

	trace.Steps = len(res.Steps)
	if !s.store.Replace(gen, res.Steps) {
		log.Debug("superseded result discarded (latest=%d)", s.guard.Latest())
		trace.Outcome = types.OutcomeSuperseded
		s.record(trace)
		return
	}
	s.unavailable = false
	trace.Outcome = types.OutcomeAccepted
	if res.Unparseable {
		trace.Outcome = types.OutcomeUnparseable
	}
	log.Debug("accepted %d steps", len(res.Steps))
	s.record(trace)
	s.publish()
}

func (s *Session) scheduleTick() {
	s.tick = s.clk.AfterFunc(s.opts.TickInterval, func() {
		s.post(s.onTick)
	})
}

// onTick polls the execution status and advances the animation.
func (s *Session) onTick() {
	if s.ctx.Err() != nil {
		return
	}
	prev := s.Current()
	moved := s.anim.Tick()
	if moved || s.anim.State() != prev.State || s.opts.Gate.Executing() != prev.Executing {
		s.publish()
	}
	s.scheduleTick()
}

func (s *Session) publish() {
	v := View{
		SessionID:   s.id,
		Sequence:    s.store.Current(),
		Index:       s.anim.Index(),
		State:       s.anim.State(),
		Executing:   s.opts.Gate.Executing(),
		Analyzing:   s.guard.InFlight(),
		Unavailable: s.unavailable,
	}
	if v.Unavailable {
		v.Message = UnavailableMessage
	}
	s.view.Store(&v)
	if s.opts.Observer != nil {
		s.opts.Observer(v)
	}
}

func (s *Session) record(trace types.AnalysisTrace) {
	if s.opts.Tracer == nil {
		return
	}
	trace.SessionID = s.id
	s.emit(trace)
}

func (s *Session) queueTrace(trace types.AnalysisTrace) {
	select {
	case s.traces <- trace:
	default:
		logging.SessionWarn("trace queue full, dropping trace for generation %d", trace.Generation)
	}
}

// traceLoop writes traces off the timeline so storage latency never delays
// ticks or debounce expiry. Queued traces are flushed on shutdown.
func (s *Session) traceLoop() {
	ctx := context.WithoutCancel(s.ctx)
	for {
		select {
		case trace := <-s.traces:
			s.writeTrace(ctx, trace)
		case <-s.done:
			for {
				select {
				case trace := <-s.traces:
					s.writeTrace(ctx, trace)
				default:
					return
				}
			}
		}
	}
}

func (s *Session) writeTrace(ctx context.Context, trace types.AnalysisTrace) {
	if err := s.opts.Tracer.RecordTrace(ctx, trace); err != nil {
		logging.SessionWarn("failed to record trace for generation %d: %v", trace.Generation, err)
	}
}
