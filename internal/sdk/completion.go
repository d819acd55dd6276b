package sdk

import (
	"errors"
	"sync"
)

var ErrAlreadyResolved = errors.New("sdk: completion already resolved")

type OutcomeKind string

const (
	OutcomeSuccess       OutcomeKind = "success"
	OutcomeFailure       OutcomeKind = "failure"
	OutcomeUserAbandoned OutcomeKind = "user_abandoned"
)

// ParseOutcomeKind accepts the strings native hosts deliver.
func ParseOutcomeKind(s string) (OutcomeKind, error) {
	switch OutcomeKind(s) {
	case OutcomeSuccess, OutcomeFailure, OutcomeUserAbandoned:
		return OutcomeKind(s), nil
	}
	return "", errors.New("sdk: unknown outcome kind " + s)
}

type Outcome struct {
	Kind   OutcomeKind
	Reason string
}

func Success() Outcome { return Outcome{Kind: OutcomeSuccess} }

func Failure(reason string) Outcome {
	if reason == "" {
		reason = "payment_failure"
	}
	return Outcome{Kind: OutcomeFailure, Reason: reason}
}

func UserAbandoned() Outcome {
	return Outcome{Kind: OutcomeUserAbandoned, Reason: "user_abandoned_payment"}
}

// Completion is a one-shot result handle for a single payment attempt.
type Completion struct {
	id   string
	once sync.Once
	done chan struct{}
	out  Outcome
}

func NewCompletion(attemptID string) *Completion {
	return &Completion{id: attemptID, done: make(chan struct{})}
}

func (c *Completion) AttemptID() string { return c.id }

// Resolve records the outcome. Only the first call wins; later calls return
// ErrAlreadyResolved and leave the recorded outcome untouched.
func (c *Completion) Resolve(o Outcome) error {
	resolved := false
	c.once.Do(func() {
		c.out = o
		close(c.done)
		resolved = true
	})
	if !resolved {
		return ErrAlreadyResolved
	}
	return nil
}

func (c *Completion) Done() <-chan struct{} { return c.done }

// Outcome is valid once Done is closed.
func (c *Completion) Outcome() Outcome {
	<-c.done
	return c.out
}
