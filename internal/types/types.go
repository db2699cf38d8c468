package types

import (
	"encoding/json"
	"fmt"
)

const (
	// WordLength is the number of letters in every secret word and guess.
	WordLength = 5
	// MaxAttempts is the number of guess rows available to each player.
	MaxAttempts = 6
)

// EventType discriminates pushed frames. The set is closed; anything else
// coming off the wire is dropped by the dispatcher.
type EventType string

const (
	EvtPlayerJoined EventType = "player_joined"
	EvtPlayerLeft   EventType = "player_left"
	EvtGameStarted  EventType = "game_started"
	EvtNewGuess     EventType = "new_guess"
	EvtGameOver     EventType = "game_over"
)

// Known reports whether t is one of the enumerated push events.
func (t EventType) Known() bool {
	switch t {
	case EvtPlayerJoined, EvtPlayerLeft, EvtGameStarted, EvtNewGuess, EvtGameOver:
		return true
	}
	return false
}

// Envelope is the fixed shape of every inbound frame.
type Envelope struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Phase is a room's lifecycle phase. Transitions are monotonic:
// lobby -> in-progress -> over. "over" is client-derived from the
// game_over event; the server never sends it in a snapshot.
type Phase string

const (
	PhaseLobby      Phase = "lobby"
	PhaseInProgress Phase = "in-progress"
	PhaseOver       Phase = "over"
)

// Rank orders phases for the monotonic-transition check. Unknown phases
// rank lowest so they can never overwrite a known one.
func (p Phase) Rank() int {
	switch p {
	case PhaseLobby:
		return 1
	case PhaseInProgress:
		return 2
	case PhaseOver:
		return 3
	}
	return 0
}

// Mark is the per-letter feedback returned by the server for a guess.
type Mark string

const (
	MarkUnknown Mark = ""
	MarkAbsent  Mark = "absent"
	MarkPresent Mark = "present"
	MarkCorrect Mark = "correct"
)

// Rank orders marks so the keyboard can upgrade-only:
// correct > present > absent > unknown.
func (m Mark) Rank() int {
	switch m {
	case MarkAbsent:
		return 1
	case MarkPresent:
		return 2
	case MarkCorrect:
		return 3
	}
	return 0
}

// ParseFeedback decodes the wire feedback digit string, one digit per
// letter: "2" correct, "1" present, "0" absent.
func ParseFeedback(s string) ([]Mark, error) {
	if len(s) != WordLength {
		return nil, fmt.Errorf("feedback length %d, want %d", len(s), WordLength)
	}
	marks := make([]Mark, len(s))
	for i, c := range s {
		switch c {
		case '2':
			marks[i] = MarkCorrect
		case '1':
			marks[i] = MarkPresent
		case '0':
			marks[i] = MarkAbsent
		default:
			return nil, fmt.Errorf("feedback digit %q at index %d", c, i)
		}
	}
	return marks, nil
}

// Player is one member of a room's roster. Exactly one player in a
// non-empty room has IsLeader set; the server reassigns it on departure.
type Player struct {
	ID       uint   `json:"ID"`
	Username string `json:"username"`
	IsLeader bool   `json:"isAdmin"`
}

// GuessRecord is one committed guess: attributed to exactly one player
// and one attempt slot, immutable once created.
type GuessRecord struct {
	PlayerID uint   `json:"playerId"`
	Attempt  int    `json:"attemptNumber"`
	Word     string `json:"guessWord"`
	Feedback string `json:"feedback"`
}

// Marks decodes the record's feedback string.
func (g GuessRecord) Marks() ([]Mark, error) {
	return ParseFeedback(g.Feedback)
}

// Room is the server's projection of a game session: phase, roster and
// the full guess log. This is both the snapshot body and the payload of
// the membership events (the server always sends full state, never deltas).
type Room struct {
	ID      uint          `json:"ID"`
	Phase   Phase         `json:"state"`
	Players []Player      `json:"players"`
	Guesses []GuessRecord `json:"guesses"`
}

// GameOver is the payload of the game_over event. Winner is nil when the
// game ended without one (draw, or everyone else left).
type GameOver struct {
	Game    Room     `json:"Game"`
	Winner  *Player  `json:"Winner"`
	Word    string   `json:"Word"`
	Players []Player `json:"Players"`
}

// DecodeRoom parses a membership-event payload.
func DecodeRoom(raw json.RawMessage) (Room, error) {
	var r Room
	if err := json.Unmarshal(raw, &r); err != nil {
		return Room{}, fmt.Errorf("decode room payload: %w", err)
	}
	return r, nil
}

// DecodeGuess parses a new_guess payload and validates its feedback so a
// malformed record never reaches the reconciler.
func DecodeGuess(raw json.RawMessage) (GuessRecord, error) {
	var g GuessRecord
	if err := json.Unmarshal(raw, &g); err != nil {
		return GuessRecord{}, fmt.Errorf("decode guess payload: %w", err)
	}
	if _, err := g.Marks(); err != nil {
		return GuessRecord{}, fmt.Errorf("guess payload: %w", err)
	}
	return g, nil
}

// DecodeGameOver parses a game_over payload.
func DecodeGameOver(raw json.RawMessage) (GameOver, error) {
	var g GameOver
	if err := json.Unmarshal(raw, &g); err != nil {
		return GameOver{}, fmt.Errorf("decode game_over payload: %w", err)
	}
	return g, nil
}
