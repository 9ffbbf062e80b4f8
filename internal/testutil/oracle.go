// Package testutil provides deterministic collaborators for tests.
package testutil

import (
	"context"
	"errors"
	"sync"

	"github.com/Veraticus/soothsayer/internal/common"
	"github.com/Veraticus/soothsayer/internal/oracle"
)

// ErrStubExhausted is returned when a StubOracle runs out of scripted replies.
var ErrStubExhausted = errors.New("stub oracle has no more replies")

// Reply is one scripted oracle answer.
type Reply struct {
	Err  error
	Text string
}

// StubOracle is an oracle.Client that answers from a script.
//
// Example:
//
//	stub := testutil.NewStubOracle().Always(`{"is_prediction": false}`)
//	gw := testutil.Gateway(stub)
type StubOracle struct {
	respond func(prompt string) Reply
	script  []Reply
	prompts []string
	mu      sync.Mutex
}

// NewStubOracle returns an empty stub. Every call fails until it is scripted.
func NewStubOracle() *StubOracle {
	return &StubOracle{}
}

// Always answers every prompt with text.
func (s *StubOracle) Always(text string) *StubOracle {
	return s.Func(func(string) Reply { return Reply{Text: text} })
}

// Func answers each prompt with fn.
func (s *StubOracle) Func(fn func(prompt string) Reply) *StubOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.respond = fn
	return s
}

// Then queues replies that are consumed before any Func or Always responder.
func (s *StubOracle) Then(replies ...Reply) *StubOracle {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.script = append(s.script, replies...)
	return s
}

// Complete implements oracle.Client.
func (s *StubOracle) Complete(ctx context.Context, prompt string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	s.prompts = append(s.prompts, prompt)

	if len(s.script) > 0 {
		r := s.script[0]
		s.script = s.script[1:]
		return r.Text, r.Err
	}
	if s.respond != nil {
		r := s.respond(prompt)
		return r.Text, r.Err
	}
	return "", ErrStubExhausted
}

// Calls returns how many prompts the stub has received.
func (s *StubOracle) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.prompts)
}

// Prompts returns a copy of every prompt received.
func (s *StubOracle) Prompts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.prompts...)
}

// Gateway wraps client in an unpaced, non-retrying gateway.
func Gateway(client oracle.Client) *oracle.Gateway {
	return oracle.NewGateway(client, oracle.WithLogger(common.DiscardLogger()))
}
