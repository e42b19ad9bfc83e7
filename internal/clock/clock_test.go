package clock

import "testing"

func TestStartExpireRemaining(t *testing.T) {
	c := New()
	c.Start(KindTurn, 100, 30)

	if !c.Active(KindTurn) {
		t.Fatalf("turn deadline should be armed")
	}
	if c.Expired(KindTurn, 129) {
		t.Fatalf("deadline expired early")
	}
	if !c.Expired(KindTurn, 130) {
		t.Fatalf("deadline should expire at tick 130")
	}
	if got := c.Remaining(KindTurn, 110); got != 20 {
		t.Fatalf("remaining = %d, want 20", got)
	}
	if got := c.Remaining(KindTurn, 200); got != 0 {
		t.Fatalf("remaining past expiry = %d, want 0", got)
	}
	if got := c.Total(KindTurn); got != 30 {
		t.Fatalf("total = %d, want 30", got)
	}
}

func TestCancelPreventsStaleExpiry(t *testing.T) {
	c := New()
	c.Start(KindTurn, 100, 30)
	c.Cancel(KindTurn)

	if c.Active(KindTurn) {
		t.Fatalf("cancelled deadline still armed")
	}
	if c.Expired(KindTurn, 1000) {
		t.Fatalf("cancelled deadline fired")
	}
}

func TestRestartReplacesDeadline(t *testing.T) {
	c := New()
	c.Start(KindReview, 100, 3)
	c.Start(KindReview, 200, 3)

	if c.Expired(KindReview, 150) {
		t.Fatalf("replaced deadline fired on the old schedule")
	}
	if !c.Expired(KindReview, 203) {
		t.Fatalf("restarted deadline should expire at tick 203")
	}
}

func TestCancelAllClearsEveryKind(t *testing.T) {
	c := New()
	c.Start(KindTurn, 100, 30)
	c.Start(KindReview, 100, 3)
	c.Start(KindDecision, 100, 30)

	c.CancelAll()

	for _, kind := range []Kind{KindTurn, KindReview, KindDecision} {
		if c.Active(kind) {
			t.Fatalf("kind %s survived CancelAll", kind)
		}
	}
}

func TestUnarmedKindNeverExpires(t *testing.T) {
	c := New()
	if c.Expired(KindDecision, 1<<40) {
		t.Fatalf("unarmed deadline expired")
	}
	if got := c.Remaining(KindDecision, 5); got != 0 {
		t.Fatalf("remaining on unarmed = %d, want 0", got)
	}
}
