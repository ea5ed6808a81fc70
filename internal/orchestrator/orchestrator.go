// Package orchestrator funnels every tool invocation through one pipeline:
// validation, command screening, confirmation, bounded-concurrency dispatch,
// and result normalization. Nothing executes a tool except through Submit.
package orchestrator

import (
	"container/heap"
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/haasonsaas/ocode/internal/gate"
	"github.com/haasonsaas/ocode/internal/logger"
	"github.com/haasonsaas/ocode/internal/sanitizer"
	"github.com/haasonsaas/ocode/internal/tools"
)

// DefaultMaxConcurrent caps simultaneous tool executions when the caller
// does not configure a limit.
const DefaultMaxConcurrent = 5

// Request describes one tool invocation. Zero-valued fields fall back to
// the orchestrator's configured defaults.
type Request struct {
	// ID identifies the invocation for cancellation and tracing. Assigned
	// automatically when empty.
	ID string `json:"id"`
	// Tool is the registry name to dispatch to.
	Tool string `json:"tool"`
	// Arguments are the tool parameters as decoded JSON.
	Arguments map[string]interface{} `json:"arguments"`

	// WorkingDir, Timeout, KillTimeout and MaxOutputSize override the
	// corresponding tool defaults when non-zero. Timeouts are seconds.
	WorkingDir    string  `json:"working_dir,omitempty"`
	Timeout       float64 `json:"timeout,omitempty"`
	KillTimeout   float64 `json:"kill_timeout,omitempty"`
	MaxOutputSize float64 `json:"max_output_size,omitempty"`
	// CPULimit (seconds) and MemoryLimit (bytes) arm best-effort rlimits
	// on process-backed tools. Zero disables.
	CPULimit    int   `json:"cpu_limit,omitempty"`
	MemoryLimit int64 `json:"memory_limit,omitempty"`

	// Confirmed marks a resubmission of a previously denied request. It
	// skips the confirmation gate for exactly this invocation.
	Confirmed bool `json:"confirmed,omitempty"`

	// Priority selects the dispatch tier (PriorityHigh dispatches first).
	Priority int `json:"priority,omitempty"`

	// CallerToken is an opaque identifier of the submitting session,
	// carried into logs for attribution. Never interpreted.
	CallerToken string `json:"caller_token,omitempty"`
}

// pending is one request waiting in the queue or running.
type pending struct {
	req      *Request
	ctx      context.Context
	done     chan *tools.ExecutionResult
	seq      uint64
	priority int
	index    int

	// cancel is set once execution starts; killEarly covers the window
	// between dequeue and that point.
	cancel    context.CancelFunc
	killEarly bool
}

func (p *pending) resolve(res *tools.ExecutionResult) {
	p.done <- res
}

// Orchestrator is the single entry point for tool execution. It owns the
// registry, the sanitizer, the confirmation gate and the concurrency
// budget; callers interact only with Submit and Cancel.
type Orchestrator struct {
	registry  *tools.Registry
	sanitizer *sanitizer.Sanitizer
	gate      *gate.Gate
	sem       *semaphore.Weighted
	log       *logger.Logger

	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup
	workWG sync.WaitGroup

	mu     sync.Mutex
	cond   *sync.Cond
	queue  requestQueue
	byID   map[string]*pending
	seq    uint64
	closed bool
}

// Options configures a new Orchestrator.
type Options struct {
	// MaxConcurrent caps simultaneous executions. Defaults to
	// DefaultMaxConcurrent when zero or negative.
	MaxConcurrent int
	// Sanitizer screens command strings. Defaults to the host platform's
	// rule set when nil.
	Sanitizer *sanitizer.Sanitizer
	// Gate mediates confirmations. Defaults to a gate with no callback,
	// which denies every flagged command.
	Gate *gate.Gate
}

// New creates an Orchestrator around the given registry and starts its
// dispatcher. Callers must Close it when done.
func New(registry *tools.Registry, opts Options) *Orchestrator {
	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = DefaultMaxConcurrent
	}
	if opts.Sanitizer == nil {
		opts.Sanitizer = sanitizer.New()
	}
	if opts.Gate == nil {
		opts.Gate = gate.New(nil)
	}

	ctx, stop := context.WithCancel(context.Background())
	o := &Orchestrator{
		registry:  registry,
		sanitizer: opts.Sanitizer,
		gate:      opts.Gate,
		sem:       semaphore.NewWeighted(int64(opts.MaxConcurrent)),
		log:       logger.Global().WithPrefix("orchestrator"),
		ctx:       ctx,
		stop:      stop,
		byID:      make(map[string]*pending),
	}
	o.cond = sync.NewCond(&o.mu)

	o.wg.Add(1)
	go o.dispatch()

	logger.Debug("orchestrator started with max_concurrent=%d", opts.MaxConcurrent)
	return o
}

// Submit runs one request through the full pipeline and blocks until its
// result is available. Every outcome, including rejection and panic, comes
// back as an ExecutionResult; Submit never returns nil.
func (o *Orchestrator) Submit(ctx context.Context, req *Request) *tools.ExecutionResult {
	if req == nil || req.Tool == "" {
		return tools.Fail(tools.ErrKindValidation, "request must name a tool", nil)
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return tools.Fail(tools.ErrKindInternal, "orchestrator is shut down", nil)
	}
	if _, dup := o.byID[req.ID]; dup {
		o.mu.Unlock()
		return tools.Fail(tools.ErrKindValidation,
			fmt.Sprintf("request id already in flight: %s", req.ID), nil)
	}

	o.seq++
	p := &pending{
		req:      req,
		ctx:      ctx,
		done:     make(chan *tools.ExecutionResult, 1),
		seq:      o.seq,
		priority: req.Priority,
	}
	o.byID[req.ID] = p
	heap.Push(&o.queue, p)
	o.cond.Signal()
	o.mu.Unlock()

	res := <-p.done

	o.mu.Lock()
	delete(o.byID, req.ID)
	o.mu.Unlock()

	if res.Metadata == nil {
		res.Metadata = map[string]interface{}{}
	}
	res.Metadata["request_id"] = req.ID
	return res
}

// Cancel stops the request with the given id. A queued request resolves
// immediately without running; a running one has its context canceled, which
// tears down any supervised process. Returns false when the id is unknown
// or already finished.
func (o *Orchestrator) Cancel(id string) bool {
	o.mu.Lock()
	p, ok := o.byID[id]
	if !ok {
		o.mu.Unlock()
		return false
	}

	if o.queue.remove(p) {
		o.mu.Unlock()
		o.log.Info("canceled queued request %s", id)
		p.resolve(canceledResult("invocation canceled before execution"))
		return true
	}

	if p.cancel != nil {
		cancel := p.cancel
		o.mu.Unlock()
		o.log.Info("canceling running request %s", id)
		cancel()
		return true
	}

	// Dequeued but not yet started. Flag it so execution cancels as soon
	// as the invocation context exists.
	p.killEarly = true
	o.mu.Unlock()
	return true
}

// Close stops the dispatcher, cancels running invocations and resolves any
// still-queued requests as canceled. It blocks until every in-flight
// execution has finished.
func (o *Orchestrator) Close() {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return
	}
	o.closed = true
	drained := make([]*pending, len(o.queue))
	copy(drained, o.queue)
	for _, p := range drained {
		o.queue.remove(p)
	}
	var running []context.CancelFunc
	for _, p := range o.byID {
		if p.index >= 0 {
			continue
		}
		if p.cancel != nil {
			running = append(running, p.cancel)
		} else {
			p.killEarly = true
		}
	}
	o.cond.Broadcast()
	o.mu.Unlock()

	o.stop()
	for _, p := range drained {
		p.resolve(canceledResult("orchestrator shut down"))
	}
	for _, cancel := range running {
		cancel()
	}

	o.wg.Wait()
	o.workWG.Wait()
	logger.Debug("orchestrator stopped")
}

// dispatch pulls requests off the queue in (priority, arrival) order,
// holding back until a concurrency slot is free. Acquiring the slot before
// popping keeps a late high-priority arrival ahead of older low-priority
// work.
func (o *Orchestrator) dispatch() {
	defer o.wg.Done()

	for {
		if err := o.sem.Acquire(o.ctx, 1); err != nil {
			return
		}

		o.mu.Lock()
		for len(o.queue) == 0 && !o.closed {
			o.cond.Wait()
		}
		if o.closed {
			o.mu.Unlock()
			o.sem.Release(1)
			return
		}
		p := heap.Pop(&o.queue).(*pending)
		o.mu.Unlock()

		o.workWG.Add(1)
		go func(p *pending) {
			defer o.workWG.Done()
			defer o.sem.Release(1)
			o.execute(p)
		}(p)
	}
}

// execute runs one dequeued request to completion and resolves it. Exactly
// one result is delivered per request, whatever happens, including a panic
// inside a tool.
func (o *Orchestrator) execute(p *pending) {
	defer func() {
		if r := recover(); r != nil {
			o.log.Error("tool %s panicked: %v", p.req.Tool, r)
			p.resolve(tools.Fail(tools.ErrKindInternal,
				fmt.Sprintf("tool panicked: %v", r), nil))
		}
	}()

	params := mergedParams(p.req)

	tool, ok := o.registry.Get(p.req.Tool)
	if !ok {
		p.resolve(tools.Fail(tools.ErrKindValidation,
			fmt.Sprintf("tool not found: %s", p.req.Tool), nil))
		return
	}

	if ct, isCommand := tool.(tools.CommandTool); isCommand {
		if res := o.screen(p, ct, params); res != nil {
			p.resolve(res)
			return
		}
	}

	invCtx, cancel := context.WithCancel(p.ctx)
	defer cancel()

	o.mu.Lock()
	p.cancel = cancel
	killEarly := p.killEarly
	o.mu.Unlock()
	if killEarly {
		cancel()
	}

	if p.req.CallerToken != "" {
		logger.Debug("dispatching request %s (caller %s) to tool %s", p.req.ID, p.req.CallerToken, p.req.Tool)
	} else {
		logger.Debug("dispatching request %s to tool %s", p.req.ID, p.req.Tool)
	}
	start := time.Now()
	res := o.registry.Execute(invCtx, p.req.Tool, params)
	res.WithDuration(time.Since(start))

	p.resolve(res)
}

// screen runs the command-screening pipeline for process-backed tools. A
// non-nil result is a terminal rejection; nil means dispatch may proceed
// with the cleaned command in place.
func (o *Orchestrator) screen(p *pending, ct tools.CommandTool, params map[string]interface{}) *tools.ExecutionResult {
	command, ok := ct.CommandFromParams(params)
	if !ok {
		return tools.Fail(tools.ErrKindValidation, "command is required", nil)
	}

	verdict := o.sanitizer.Sanitize(command)
	if !verdict.IsSafe {
		o.log.Warn("rejected command %q: %s", command, verdict.Reason)
		return tools.Fail(tools.ErrKindSanitizationRejected, verdict.Reason,
			map[string]interface{}{tools.MetaCommand: command})
	}
	params["command"] = verdict.Cleaned

	needs, reason := o.sanitizer.RequiresConfirmation(verdict.Cleaned)
	if !needs || p.req.Confirmed {
		return nil
	}

	if o.gate.Confirm(p.ctx, verdict.Cleaned, reason) == gate.Confirmed {
		return nil
	}
	return tools.Fail(tools.ErrKindConfirmationDenied,
		fmt.Sprintf("command requires confirmation: %s", reason),
		map[string]interface{}{
			tools.MetaRequiresConfirmation: true,
			tools.MetaCommand:              verdict.Cleaned,
			tools.MetaReason:               reason,
		})
}

// mergedParams overlays request-level overrides onto the tool arguments
// without mutating the caller's map.
func mergedParams(req *Request) map[string]interface{} {
	params := make(map[string]interface{}, len(req.Arguments)+4)
	for key, value := range req.Arguments {
		params[key] = value
	}
	if req.WorkingDir != "" {
		params["working_dir"] = req.WorkingDir
	}
	if req.Timeout > 0 {
		params["timeout"] = req.Timeout
	}
	if req.KillTimeout > 0 {
		params["kill_timeout"] = req.KillTimeout
	}
	if req.MaxOutputSize > 0 {
		params["max_output_size"] = req.MaxOutputSize
	}
	if req.CPULimit > 0 {
		params["cpu_limit"] = req.CPULimit
	}
	if req.MemoryLimit > 0 {
		params["memory_limit"] = int(req.MemoryLimit)
	}
	return params
}

func canceledResult(message string) *tools.ExecutionResult {
	res := tools.Fail(tools.ErrKindTimeout, message, nil)
	res.Metadata["canceled"] = true
	return res
}
