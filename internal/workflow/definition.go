// Package workflow holds the status transition engine shared by every record
// workflow in the portal. A Definition is an immutable adjacency table keyed by
// source status; it answers which moves are legal and how a status is shown to
// staff. It never persists, authorizes, or notifies.
package workflow

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// UnknownDescription is the display sentence for a status outside any table.
const UnknownDescription = "Unknown status."

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrUnknownStatus     = errors.New("unknown status")
)

// State declares one status of a workflow: its description and the statuses
// reachable from it in a single step.
type State[S ~string] struct {
	Status         S
	Description    string
	Next           []S
	ReasonRequired bool
}

// Definition is a static transition table for one workflow. It is built once
// and is safe for concurrent use.
type Definition[S ~string] struct {
	name         string
	initial      S
	order        []S
	transitions  map[S][]S
	descriptions map[S]string
	needsReason  map[S]bool
}

// NewDefinition builds a table from the declared states. The first state is
// the initial one. It panics when the declaration is incomplete: a missing
// description, a duplicate status, or an edge into an undeclared status.
// Tables are package-level values, so a broken one stops the process at init.
func NewDefinition[S ~string](name string, states ...State[S]) *Definition[S] {
	if len(states) == 0 {
		panic(fmt.Sprintf("workflow %s: no states declared", name))
	}
	d := &Definition[S]{
		name:         name,
		initial:      states[0].Status,
		order:        make([]S, 0, len(states)),
		transitions:  make(map[S][]S, len(states)),
		descriptions: make(map[S]string, len(states)),
		needsReason:  make(map[S]bool),
	}
	for _, st := range states {
		if _, dup := d.descriptions[st.Status]; dup {
			panic(fmt.Sprintf("workflow %s: status %q declared twice", name, st.Status))
		}
		if strings.TrimSpace(st.Description) == "" {
			panic(fmt.Sprintf("workflow %s: status %q has no description", name, st.Status))
		}
		d.order = append(d.order, st.Status)
		d.descriptions[st.Status] = st.Description
		d.transitions[st.Status] = append([]S(nil), st.Next...)
		if st.ReasonRequired {
			d.needsReason[st.Status] = true
		}
	}
	for from, next := range d.transitions {
		for _, to := range next {
			if _, ok := d.descriptions[to]; !ok {
				panic(fmt.Sprintf("workflow %s: %q -> %q targets an undeclared status", name, from, to))
			}
		}
	}
	return d
}

func (d *Definition[S]) Name() string { return d.name }

// Initial is the status every new record starts in.
func (d *Definition[S]) Initial() S { return d.initial }

// Statuses lists every declared status in declaration order.
func (d *Definition[S]) Statuses() []S {
	return append([]S(nil), d.order...)
}

// Contains reports whether status is declared in the table.
func (d *Definition[S]) Contains(status S) bool {
	_, ok := d.descriptions[status]
	return ok
}

// Parse converts a raw persisted value into a declared status.
func (d *Definition[S]) Parse(raw string) (S, error) {
	s := S(raw)
	if !d.Contains(s) {
		var zero S
		return zero, fmt.Errorf("%s: %w %q", d.name, ErrUnknownStatus, raw)
	}
	return s, nil
}

// ValidTransitions returns the statuses reachable from current in one step.
// Terminal and undeclared statuses yield an empty slice. The caller owns the
// returned slice.
func (d *Definition[S]) ValidTransitions(current S) []S {
	next := d.transitions[current]
	out := make([]S, len(next))
	copy(out, next)
	return out
}

// IsValidTransition reports whether next is a one-step successor of current.
// Self transitions are only valid when the table lists them.
func (d *Definition[S]) IsValidTransition(current, next S) bool {
	for _, s := range d.transitions[current] {
		if s == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether a declared status has no outgoing transitions.
func (d *Definition[S]) IsTerminal(status S) bool {
	return d.Contains(status) && len(d.transitions[status]) == 0
}

// RequiresReason reports whether moving into status needs a caller-supplied
// reason.
func (d *Definition[S]) RequiresReason(status S) bool {
	return d.needsReason[status]
}

// Validate is IsValidTransition for callers that want an error value.
func (d *Definition[S]) Validate(current, next S) error {
	if d.IsValidTransition(current, next) {
		return nil
	}
	return &TransitionError{Workflow: d.name, From: string(current), To: string(next)}
}

// Format renders a status key as a title-cased phrase.
func (d *Definition[S]) Format(status S) string {
	return FormatStatus(string(status))
}

// Describe returns the display sentence for status, or a generic fallback for
// values outside the table.
func (d *Definition[S]) Describe(status S) string {
	if desc, ok := d.descriptions[status]; ok {
		return desc
	}
	return UnknownDescription
}

// FormatStatus turns "ready_for_collection" into "Ready For Collection". Only
// the first letter of each word changes; the rest keep their case.
func FormatStatus(raw string) string {
	words := strings.Fields(strings.ReplaceAll(raw, "_", " "))
	// Casers carry state and must not be shared between goroutines.
	return cases.Title(language.Und, cases.NoLower).String(strings.Join(words, " "))
}

// TransitionError describes a refused move.
type TransitionError struct {
	Workflow string
	From     string
	To       string
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: cannot move from %q to %q", e.Workflow, e.From, e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
