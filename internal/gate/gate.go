// Package gate intercepts operations flagged as requiring human approval and
// performs the external approve/deny round trip.
package gate

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/haasonsaas/ocode/internal/logger"
)

// Decision is the terminal state of one confirmation round trip.
type Decision int

const (
	// Denied means the operation must not execute.
	Denied Decision = iota
	// Confirmed means the operation was explicitly approved.
	Confirmed
)

func (d Decision) String() string {
	if d == Confirmed {
		return "confirmed"
	}
	return "denied"
}

// Callback is the external approval contract. It receives the command and
// the reason it was flagged, and reports whether the user approved it. An
// error counts as denial.
type Callback func(ctx context.Context, command, reason string) (bool, error)

// Gate mediates confirmation round trips. A nil callback denies everything:
// an unattended context must never auto-approve.
type Gate struct {
	callback Callback
	timeout  time.Duration
	log      *logger.Logger

	requested int64
	approved  int64
	denied    int64
	timedOut  int64
}

// Option configures a Gate.
type Option func(*Gate)

// WithTimeout bounds how long a confirmation may stay pending. An
// unanswered request past the timeout resolves to denial.
func WithTimeout(d time.Duration) Option {
	return func(g *Gate) { g.timeout = d }
}

// New creates a Gate around the given approval callback (may be nil).
func New(callback Callback, opts ...Option) *Gate {
	g := &Gate{
		callback: callback,
		log:      logger.Global().WithPrefix("gate"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Confirm runs one approve/deny round trip for the given command. The state
// machine is PENDING → CONFIRMED | DENIED; both outcomes are terminal for
// this invocation, and nothing is remembered for later ones.
func (g *Gate) Confirm(ctx context.Context, command, reason string) Decision {
	atomic.AddInt64(&g.requested, 1)

	if g.callback == nil {
		atomic.AddInt64(&g.denied, 1)
		g.log.Info("no approval callback configured, denying: %s", command)
		return Denied
	}

	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	type answer struct {
		approved bool
		err      error
	}
	answerCh := make(chan answer, 1)
	go func() {
		approved, err := g.callback(ctx, command, reason)
		answerCh <- answer{approved, err}
	}()

	select {
	case a := <-answerCh:
		if a.err != nil {
			atomic.AddInt64(&g.denied, 1)
			g.log.Warn("approval callback failed, denying: %v", a.err)
			return Denied
		}
		if a.approved {
			atomic.AddInt64(&g.approved, 1)
			g.log.Info("command approved: %s", command)
			return Confirmed
		}
		atomic.AddInt64(&g.denied, 1)
		g.log.Info("command denied: %s", command)
		return Denied

	case <-ctx.Done():
		atomic.AddInt64(&g.timedOut, 1)
		atomic.AddInt64(&g.denied, 1)
		g.log.Warn("confirmation unanswered (%v), denying: %s", ctx.Err(), command)
		return Denied
	}
}

// Stats reports the gate's counters: requested, approved, denied, timed out.
func (g *Gate) Stats() (requested, approved, denied, timedOut int64) {
	return atomic.LoadInt64(&g.requested),
		atomic.LoadInt64(&g.approved),
		atomic.LoadInt64(&g.denied),
		atomic.LoadInt64(&g.timedOut)
}
