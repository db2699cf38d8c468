// Package board reconciles the three racing information sources (the
// snapshot fetch, pushed events and local submissions) into one
// consistent view of the room. Every merge is idempotent so arrival
// order and redelivery never change the final state.
package board

import (
	"sort"

	"github.com/multiplayer-wordle/go-client/internal/types"
)

// Row is one attempt row of the local player's board.
type Row struct {
	Word  string
	Marks []types.Mark
}

// OpponentBoard is the feedback-only projection of another player's
// progress. Rows has MaxAttempts entries; a nil entry is an empty
// placeholder. Guessed words are never exposed here.
type OpponentBoard struct {
	Player types.Player
	Rows   [][]types.Mark
}

type guessKey struct {
	player  uint
	attempt int
}

// Reconciler holds the merged room projection for one local player. It
// is not safe for concurrent use; the owning session serializes all
// access through its event loop.
type Reconciler struct {
	selfID   uint
	phase    types.Phase
	players  []types.Player
	log      []types.GuessRecord
	seen     map[guessKey]struct{}
	keyboard map[rune]types.Mark
}

func New(selfID uint) *Reconciler {
	return &Reconciler{
		selfID:   selfID,
		seen:     make(map[guessKey]struct{}),
		keyboard: make(map[rune]types.Mark),
	}
}

// ApplySnapshot folds the authoritative fetch into the projection. Safe
// to apply after push events have already landed: membership is replaced
// wholesale and guesses go through the same dedup-append as events.
func (r *Reconciler) ApplySnapshot(room types.Room) {
	r.AdvancePhase(room.Phase)
	r.ReplacePlayers(room.Players)
	for _, g := range room.Guesses {
		r.UpsertGuess(g)
	}
}

// UpsertGuess appends a committed guess unless its (player, attempt)
// slot is already occupied. Reports whether the record was added; false
// covers redelivered duplicates and records that fail validation.
func (r *Reconciler) UpsertGuess(g types.GuessRecord) bool {
	if g.Attempt < 0 || g.Attempt >= types.MaxAttempts {
		return false
	}
	marks, err := g.Marks()
	if err != nil {
		return false
	}
	key := guessKey{player: g.PlayerID, attempt: g.Attempt}
	if _, dup := r.seen[key]; dup {
		return false
	}
	r.seen[key] = struct{}{}
	r.log = append(r.log, g)

	if g.PlayerID == r.selfID {
		r.upgradeKeyboard(g.Word, marks)
	}
	return true
}

// ReplacePlayers swaps the roster wholesale; the server always sends the
// full membership on change, which sidesteps ordering races.
func (r *Reconciler) ReplacePlayers(players []types.Player) {
	r.players = append([]types.Player(nil), players...)
}

// AdvancePhase applies a phase transition, refusing backward moves.
func (r *Reconciler) AdvancePhase(p types.Phase) bool {
	if p.Rank() <= r.phase.Rank() {
		return false
	}
	r.phase = p
	return true
}

func (r *Reconciler) Phase() types.Phase { return r.phase }

// IsLeader derives the local player's leader flag from the current
// roster rather than tracking it independently.
func (r *Reconciler) IsLeader() bool {
	for _, p := range r.players {
		if p.ID == r.selfID {
			return p.IsLeader
		}
	}
	return false
}

// InRoster reports whether the local player appears in the roster.
func (r *Reconciler) InRoster() bool {
	for _, p := range r.players {
		if p.ID == r.selfID {
			return true
		}
	}
	return false
}

// Players returns a copy of the roster in join order.
func (r *Reconciler) Players() []types.Player {
	return append([]types.Player(nil), r.players...)
}

// SelfAttempts counts the local player's committed guesses.
func (r *Reconciler) SelfAttempts() int {
	n := 0
	for _, g := range r.log {
		if g.PlayerID == r.selfID {
			n++
		}
	}
	return n
}

// OwnRows projects the local player's board: letters and feedback come
// from committed records, feedback verbatim from the server.
func (r *Reconciler) OwnRows() []Row {
	rows := make([]Row, types.MaxAttempts)
	for _, g := range r.log {
		if g.PlayerID != r.selfID {
			continue
		}
		marks, _ := g.Marks()
		rows[g.Attempt] = Row{Word: g.Word, Marks: marks}
	}
	return rows
}

// Keyboard returns a copy of the per-letter best-known status.
func (r *Reconciler) Keyboard() map[rune]types.Mark {
	out := make(map[rune]types.Mark, len(r.keyboard))
	for k, v := range r.keyboard {
		out[k] = v
	}
	return out
}

// Opponents projects every other player's board in roster order,
// feedback coloring only.
func (r *Reconciler) Opponents() []OpponentBoard {
	perPlayer := make(map[uint][]types.GuessRecord)
	for _, g := range r.log {
		if g.PlayerID != r.selfID {
			perPlayer[g.PlayerID] = append(perPlayer[g.PlayerID], g)
		}
	}

	var boards []OpponentBoard
	for _, p := range r.players {
		if p.ID == r.selfID {
			continue
		}
		records := perPlayer[p.ID]
		sort.Slice(records, func(i, j int) bool { return records[i].Attempt < records[j].Attempt })
		rows := make([][]types.Mark, types.MaxAttempts)
		for _, g := range records {
			marks, _ := g.Marks()
			rows[g.Attempt] = marks
		}
		boards = append(boards, OpponentBoard{Player: p, Rows: rows})
	}
	return boards
}

// upgradeKeyboard applies the upgrade-only rule: a letter's status only
// moves toward correct, so a weaker signal at another index never erases
// a confirmed one.
func (r *Reconciler) upgradeKeyboard(word string, marks []types.Mark) {
	for i, c := range word {
		if i >= len(marks) {
			break
		}
		letter := lower(c)
		if marks[i].Rank() > r.keyboard[letter].Rank() {
			r.keyboard[letter] = marks[i]
		}
	}
}

func lower(c rune) rune {
	if c >= 'A' && c <= 'Z' {
		return c + ('a' - 'A')
	}
	return c
}
