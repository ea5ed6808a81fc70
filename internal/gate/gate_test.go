package gate

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestNilCallbackDenies(t *testing.T) {
	t.Parallel()

	g := New(nil)
	if got := g.Confirm(context.Background(), "rm -rf build", "recursive file deletion"); got != Denied {
		t.Errorf("decision = %v, want Denied", got)
	}

	requested, _, denied, _ := g.Stats()
	if requested != 1 || denied != 1 {
		t.Errorf("stats = (%d requested, %d denied), want (1, 1)", requested, denied)
	}
}

func TestCallbackApproves(t *testing.T) {
	t.Parallel()

	var gotCommand, gotReason string
	g := New(func(_ context.Context, command, reason string) (bool, error) {
		gotCommand, gotReason = command, reason
		return true, nil
	})

	if got := g.Confirm(context.Background(), "git push --force", "force push"); got != Confirmed {
		t.Errorf("decision = %v, want Confirmed", got)
	}
	if gotCommand != "git push --force" || gotReason != "force push" {
		t.Errorf("callback received (%q, %q)", gotCommand, gotReason)
	}
}

func TestCallbackDenies(t *testing.T) {
	t.Parallel()

	g := New(func(_ context.Context, _, _ string) (bool, error) {
		return false, nil
	})
	if got := g.Confirm(context.Background(), "sudo reboot", "privilege escalation"); got != Denied {
		t.Errorf("decision = %v, want Denied", got)
	}
}

func TestCallbackErrorCountsAsDenial(t *testing.T) {
	t.Parallel()

	g := New(func(_ context.Context, _, _ string) (bool, error) {
		return true, errors.New("terminal went away")
	})
	if got := g.Confirm(context.Background(), "rm -rf build", "recursive file deletion"); got != Denied {
		t.Errorf("decision = %v, want Denied", got)
	}
}

func TestUnansweredConfirmationTimesOutToDenial(t *testing.T) {
	t.Parallel()

	g := New(func(ctx context.Context, _, _ string) (bool, error) {
		<-ctx.Done() // never answers
		return false, ctx.Err()
	}, WithTimeout(100*time.Millisecond))

	start := time.Now()
	got := g.Confirm(context.Background(), "rm -rf build", "recursive file deletion")
	if got != Denied {
		t.Errorf("decision = %v, want Denied", got)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %s", elapsed)
	}

	_, _, _, timedOut := g.Stats()
	if timedOut != 1 {
		t.Errorf("timedOut = %d, want 1", timedOut)
	}
}

func TestCallerContextCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	g := New(func(ctx context.Context, _, _ string) (bool, error) {
		<-ctx.Done()
		return false, ctx.Err()
	})

	go func() {
		time.Sleep(50 * time.Millisecond)
		cancel()
	}()

	if got := g.Confirm(ctx, "sudo rm -rf build", "privilege escalation"); got != Denied {
		t.Errorf("decision = %v, want Denied", got)
	}
}
