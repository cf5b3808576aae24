package session

import (
	"sync"
	"testing"
	"time"
)

func TestStaleResultIsDiscarded(t *testing.T) {
	s := New("s1")
	first := s.Begin()
	second := s.Begin()

	if s.Complete(first, "old") {
		t.Error("stale token should not complete")
	}
	if snap := s.Snapshot(); snap.Step != StepAnalyzing || snap.Result != nil {
		t.Errorf("stale completion changed state: %+v", snap)
	}
	if !s.Complete(second, "new") {
		t.Fatal("current token should complete")
	}
	if snap := s.Snapshot(); snap.Step != StepResult || snap.Result != "new" {
		t.Errorf("unexpected state: %+v", snap)
	}
}

func TestResetDiscardsInFlight(t *testing.T) {
	s := New("s1")
	token := s.Begin()
	s.Reset()

	if s.Fail(token, "boom") {
		t.Error("failure after reset should be discarded")
	}
	if s.Current(token) {
		t.Error("token should no longer be current")
	}
	if snap := s.Snapshot(); snap.Step != StepLanding || snap.Error != "" {
		t.Errorf("unexpected state: %+v", snap)
	}
}

func TestTokenAppliesOnce(t *testing.T) {
	s := New("s1")
	token := s.Begin()
	if !s.Fail(token, "rate limited") {
		t.Fatal("current token should fail")
	}
	if s.Complete(token, "late") {
		t.Error("token already settled should not apply again")
	}
	if snap := s.Snapshot(); snap.Step != StepError || snap.Error != "rate limited" {
		t.Errorf("unexpected state: %+v", snap)
	}
}

func TestTokenFromOtherSession(t *testing.T) {
	a, b := New("a"), New("b")
	token := a.Begin()
	b.Begin()
	if b.Complete(token, "x") {
		t.Error("token from another session should not apply")
	}
}

func TestNewGeneratesID(t *testing.T) {
	if New("").ID() == "" || New("").ID() == New("").ID() {
		t.Error("expected unique generated ids")
	}
}

func TestConcurrentBeginComplete(t *testing.T) {
	s := New("s1")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Complete(s.Begin(), "r")
		}()
	}
	wg.Wait()
	if snap := s.Snapshot(); snap.Generation != 50 {
		t.Errorf("generation = %d, want 50", snap.Generation)
	}
}

func TestRegistryTTL(t *testing.T) {
	now := time.Unix(1000, 0)
	r := NewRegistry(time.Minute)
	r.now = func() time.Time { return now }

	s := r.GetOrCreate("")
	s.updatedAt = now
	if got, ok := r.Get(s.ID()); !ok || got != s {
		t.Fatal("session should be retrievable")
	}
	if r.GetOrCreate(s.ID()) != s {
		t.Error("GetOrCreate should return the existing session")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := r.Get(s.ID()); ok {
		t.Error("expired session should not be returned")
	}
	if r.Sweep() != 1 || r.Len() != 0 {
		t.Error("Sweep should drop the expired session")
	}
}

func TestRegistryDelete(t *testing.T) {
	r := NewRegistry(0)
	s := r.GetOrCreate("abc")
	if s.ID() != "abc" {
		t.Errorf("id = %s", s.ID())
	}
	r.Delete("abc")
	if _, ok := r.Get("abc"); ok {
		t.Error("deleted session still present")
	}
}
