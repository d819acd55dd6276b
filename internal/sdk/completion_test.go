package sdk

import (
	"errors"
	"sync"
	"testing"
)

func TestCompletionResolvesOnce(t *testing.T) {
	c := NewCompletion("a1")
	if err := c.Resolve(Success()); err != nil {
		t.Fatalf("first resolve: %v", err)
	}
	if err := c.Resolve(Failure("late")); !errors.Is(err, ErrAlreadyResolved) {
		t.Fatalf("expected ErrAlreadyResolved, got %v", err)
	}
	if got := c.Outcome(); got.Kind != OutcomeSuccess {
		t.Fatalf("expected first outcome to stick, got %+v", got)
	}
}

func TestCompletionConcurrentResolve(t *testing.T) {
	c := NewCompletion("a2")
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if c.Resolve(UserAbandoned()) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
	<-c.Done()
}

func TestFailureDefaultsReason(t *testing.T) {
	if got := Failure("").Reason; got != "payment_failure" {
		t.Fatalf("expected default reason, got %q", got)
	}
}

func TestParseEnvironment(t *testing.T) {
	cases := map[string]Environment{
		"":           EnvSandbox,
		"SANDBOX":    EnvSandbox,
		"production": EnvProduction,
		"MAIN":       EnvProduction,
	}
	for in, want := range cases {
		got, err := ParseEnvironment(in)
		if err != nil || got != want {
			t.Errorf("%q: expected %s, got %s (%v)", in, want, got, err)
		}
	}
	if _, err := ParseEnvironment("staging"); err == nil {
		t.Fatal("expected error for unknown environment")
	}
}

func TestParseOutcomeKind(t *testing.T) {
	if _, err := ParseOutcomeKind("success"); err != nil {
		t.Fatal(err)
	}
	if _, err := ParseOutcomeKind("maybe"); err == nil {
		t.Fatal("expected error")
	}
}
