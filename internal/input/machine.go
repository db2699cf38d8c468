// Package input owns the player's in-progress guess buffer and attempt
// cursor. Every in-flight submission is an explicit state transition, so
// a duplicate trigger is rejected by state rather than by a disabled
// button, and a failed submission never loses keystrokes.
package input

import (
	"errors"

	"github.com/multiplayer-wordle/go-client/internal/types"
)

// State is the machine's current mode.
type State int

const (
	// Editing accepts letters, backspace and submit.
	Editing State = iota
	// Submitting has one submission in flight; all input is rejected.
	Submitting
	// Locked is terminal: attempts exhausted or the game left in-progress.
	Locked
)

func (s State) String() string {
	switch s {
	case Editing:
		return "editing"
	case Submitting:
		return "submitting"
	case Locked:
		return "locked"
	}
	return "unknown"
}

var (
	// ErrTooShort rejects a submit with fewer than WordLength letters.
	ErrTooShort = errors.New("guess is incomplete")
	// ErrNotAWord rejects a submit that fails the dictionary check. No
	// network call is made; the buffer is untouched.
	ErrNotAWord = errors.New("not a valid word")
	// ErrBusy rejects input while a submission is in flight.
	ErrBusy = errors.New("submission in flight")
	// ErrLocked rejects input after the machine reached its terminal state.
	ErrLocked = errors.New("no attempts remaining")
)

// Machine is the guess input state machine for one player in one game.
// Not safe for concurrent use; the owning session serializes access.
type Machine struct {
	state    State
	buffer   []rune
	attempt  int
	validate func(string) bool
}

// New builds a machine in Editing at attempt 0. validate is the local
// dictionary gate consulted before any network submission.
func New(validate func(string) bool) *Machine {
	return &Machine{validate: validate}
}

func (m *Machine) State() State   { return m.state }
func (m *Machine) Buffer() string { return string(m.buffer) }
func (m *Machine) Attempt() int   { return m.attempt }

// Append adds one letter to the buffer. A no-op outside Editing, at a
// full buffer, or for a non-alphabetic rune.
func (m *Machine) Append(ch rune) bool {
	if m.state != Editing || len(m.buffer) >= types.WordLength {
		return false
	}
	switch {
	case ch >= 'a' && ch <= 'z':
	case ch >= 'A' && ch <= 'Z':
		ch += 'a' - 'A'
	default:
		return false
	}
	m.buffer = append(m.buffer, ch)
	return true
}

// Backspace removes the last buffered letter. A no-op outside Editing or
// on an empty buffer.
func (m *Machine) Backspace() bool {
	if m.state != Editing || len(m.buffer) == 0 {
		return false
	}
	m.buffer = m.buffer[:len(m.buffer)-1]
	return true
}

// BeginSubmit validates the buffered word and, on success, transitions
// to Submitting and returns the word plus the attempt slot it belongs
// in. The caller performs the network call and must follow up with
// Finish exactly once.
func (m *Machine) BeginSubmit() (word string, attempt int, err error) {
	switch m.state {
	case Submitting:
		return "", 0, ErrBusy
	case Locked:
		return "", 0, ErrLocked
	}
	if len(m.buffer) != types.WordLength {
		return "", 0, ErrTooShort
	}
	word = string(m.buffer)
	if !m.validate(word) {
		return "", 0, ErrNotAWord
	}
	m.state = Submitting
	return word, m.attempt, nil
}

// Finish resolves the in-flight submission. committed clears the buffer
// and advances the cursor, locking once the attempt limit is reached;
// otherwise the machine returns to Editing with the buffer intact so the
// user can retry or edit.
func (m *Machine) Finish(committed bool) {
	if m.state != Submitting {
		return
	}
	if !committed {
		m.state = Editing
		return
	}
	m.buffer = m.buffer[:0]
	m.attempt++
	if m.attempt >= types.MaxAttempts {
		m.state = Locked
	} else {
		m.state = Editing
	}
}

// Lock forces the terminal state; used when the room's phase leaves
// in-progress.
func (m *Machine) Lock() {
	m.state = Locked
}

// SyncCommitted aligns the attempt cursor with the count of the player's
// committed records from a snapshot, e.g. when resuming mid-game. It
// never moves the cursor backward and never interrupts an in-flight
// submission.
func (m *Machine) SyncCommitted(n int) {
	if m.state == Submitting || n <= m.attempt {
		return
	}
	m.attempt = n
	if m.attempt >= types.MaxAttempts {
		m.state = Locked
	}
}
