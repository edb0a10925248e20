// Package statemachine provides a small immutable transition table used by
// the workflow state machines. Tables are declared once at package init and
// then only read, so lookups need no locking.
package statemachine

import (
	"fmt"
	"slices"
)

// Event names an input that moves a machine from one state to another.
type Event string

type transitionKey[S comparable] struct {
	From  S
	Event Event
}

// Machine maps (state, event) pairs to target states.
type Machine[S comparable] struct {
	name        string
	transitions map[transitionKey[S]]S
	terminal    []S
}

// TransitionError reports an event that is not valid in the current state.
type TransitionError struct {
	Machine string
	From    string
	Event   Event
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: event %q not allowed in state %q", e.Machine, e.Event, e.From)
}

// New creates an empty machine. name is only used in error messages.
func New[S comparable](name string) *Machine[S] {
	return &Machine[S]{
		name:        name,
		transitions: make(map[transitionKey[S]]S),
	}
}

// Allow registers from --event--> to.
func (m *Machine[S]) Allow(from S, event Event, to S) *Machine[S] {
	m.transitions[transitionKey[S]{From: from, Event: event}] = to
	return m
}

// AllowFrom registers the same event and target for several source states.
func (m *Machine[S]) AllowFrom(froms []S, event Event, to S) *Machine[S] {
	for _, from := range froms {
		m.Allow(from, event, to)
	}
	return m
}

// Terminal marks states that accept no further events.
func (m *Machine[S]) Terminal(states ...S) *Machine[S] {
	m.terminal = append(m.terminal, states...)
	return m
}

// Next returns the state reached from `from` on event.
func (m *Machine[S]) Next(from S, event Event) (S, error) {
	if m.IsTerminal(from) {
		var zero S
		return zero, &TransitionError{Machine: m.name, From: fmt.Sprint(from), Event: event}
	}
	to, ok := m.transitions[transitionKey[S]{From: from, Event: event}]
	if !ok {
		var zero S
		return zero, &TransitionError{Machine: m.name, From: fmt.Sprint(from), Event: event}
	}
	return to, nil
}

// Can reports whether event is valid in state from.
func (m *Machine[S]) Can(from S, event Event) bool {
	_, err := m.Next(from, event)
	return err == nil
}

// IsTerminal reports whether s accepts no events.
func (m *Machine[S]) IsTerminal(s S) bool {
	return slices.Contains(m.terminal, s)
}
