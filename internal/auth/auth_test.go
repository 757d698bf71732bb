package auth

import (
	"errors"
	"testing"
	"time"
)

type fakeBackend struct {
	secret string
	calls  int
	last   [3]string
}

func (f *fakeBackend) Authenticate(service, user, secret string) error {
	f.calls++
	f.last = [3]string{service, user, secret}
	if secret != f.secret {
		return errors.New("authentication failure")
	}
	return nil
}

func typeInto(g *Gate, s string) {
	for _, r := range s {
		g.Buffer().Append(r)
	}
}

func TestAttemptUnlocks(t *testing.T) {
	backend := &fakeBackend{secret: "hunter2"}
	g := NewGate(backend, "system-auth", "alice", nil)
	typeInto(g, "hunter2")

	res := g.Attempt(g.Buffer().String())
	if res.Outcome != Unlocked {
		t.Fatalf("outcome = %s, want unlocked", res.Outcome)
	}
	if !g.Buffer().Empty() {
		t.Fatalf("buffer not cleared after success")
	}
	if g.Retries() != 0 {
		t.Fatalf("retries = %d after success", g.Retries())
	}
	if backend.last != [3]string{"system-auth", "alice", "hunter2"} {
		t.Fatalf("backend called with %v", backend.last)
	}
}

func TestAttemptFailureIncrementsByOne(t *testing.T) {
	backend := &fakeBackend{secret: "hunter2"}
	g := NewGate(backend, "system-auth", "alice", nil)

	for want := 1; want <= 4; want++ {
		typeInto(g, "wrong")
		res := g.Attempt(g.Buffer().String())
		if res.Outcome != Failed || res.Reason == "" {
			t.Fatalf("attempt %d: unexpected result %+v", want, res)
		}
		if !g.Buffer().Empty() {
			t.Fatalf("attempt %d: buffer survived a failed attempt", want)
		}
		if g.Retries() != want {
			t.Fatalf("attempt %d: retries = %d", want, g.Retries())
		}
	}
}

func TestRetriesSurviveSuccess(t *testing.T) {
	g := NewGate(&fakeBackend{secret: "ok"}, "login", "bob", nil)
	g.Attempt("nope")
	g.Attempt("ok")
	if g.Retries() != 1 {
		t.Fatalf("retries = %d, want 1", g.Retries())
	}
}

func TestCooldownRejectsWithoutCallingBackend(t *testing.T) {
	now := time.Unix(1000, 0)
	cd := NewCooldown(2, 30*time.Second)
	cd.now = func() time.Time { return now }

	backend := &fakeBackend{secret: "right"}
	g := NewGate(backend, "login", "bob", cd)

	g.Attempt("a")
	g.Attempt("b")
	if backend.calls != 2 || g.Retries() != 2 {
		t.Fatalf("calls=%d retries=%d", backend.calls, g.Retries())
	}

	typeInto(g, "right")
	res := g.Attempt("right")
	if res.Outcome != Failed || !res.Throttled {
		t.Fatalf("expected throttled failure, got %+v", res)
	}
	if backend.calls != 2 {
		t.Fatalf("backend called during cooldown")
	}
	if g.Retries() != 2 {
		t.Fatalf("throttled attempt changed retries to %d", g.Retries())
	}
	if !g.Buffer().Empty() {
		t.Fatalf("buffer not cleared on throttled attempt")
	}
	if got := g.CooldownLeft(); got != "00:30" {
		t.Fatalf("CooldownLeft = %q, want 00:30", got)
	}

	now = now.Add(31 * time.Second)
	if res := g.Attempt("right"); res.Outcome != Unlocked {
		t.Fatalf("expected unlock after cooldown, got %+v", res)
	}
	if g.CooldownLeft() != "" {
		t.Fatalf("cooldown still reported after success")
	}
}

func TestCooldownEscalatesAndCaps(t *testing.T) {
	now := time.Unix(0, 0)
	cd := NewCooldown(1, 4*time.Minute)
	cd.now = func() time.Time { return now }

	want := []time.Duration{4 * time.Minute, 8 * time.Minute, 10 * time.Minute, 10 * time.Minute}
	for i, w := range want {
		started, length := cd.RecordFailure()
		if !started || length != w {
			t.Fatalf("round %d: started=%v length=%v, want %v", i, started, length, w)
		}
	}

	cd.Reset()
	if cd.Remaining() != 0 {
		t.Fatalf("Reset left a cooldown running")
	}
}

func TestDisabledCooldown(t *testing.T) {
	if NewCooldown(0, time.Second) != nil {
		t.Fatalf("threshold 0 must disable the cooldown")
	}
	var cd *Cooldown
	if started, _ := cd.RecordFailure(); started || cd.Remaining() != 0 {
		t.Fatalf("nil cooldown must never throttle")
	}
	cd.Reset()
}

func TestFormatRemaining(t *testing.T) {
	tests := map[time.Duration]string{
		0:                               "00:00",
		1500 * time.Millisecond:         "00:02",
		90 * time.Second:                "01:30",
		10*time.Minute + 59*time.Second: "10:59",
	}
	for d, want := range tests {
		if got := FormatRemaining(d); got != want {
			t.Errorf("FormatRemaining(%v) = %q, want %q", d, got, want)
		}
	}
}
