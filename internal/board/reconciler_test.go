package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/multiplayer-wordle/go-client/internal/types"
)

const selfID = 1

func guess(player uint, attempt int, word, feedback string) types.GuessRecord {
	return types.GuessRecord{PlayerID: player, Attempt: attempt, Word: word, Feedback: feedback}
}

func TestUpsertGuessIsIdempotent(t *testing.T) {
	r := New(selfID)
	g := guess(2, 0, "crane", "20010")

	require.True(t, r.UpsertGuess(g))
	require.False(t, r.UpsertGuess(g), "redelivered record must be dropped")

	r.ReplacePlayers([]types.Player{{ID: selfID}, {ID: 2, Username: "bob"}})
	opps := r.Opponents()
	require.Len(t, opps, 1)
	filled := 0
	for _, row := range opps[0].Rows {
		if row != nil {
			filled++
		}
	}
	assert.Equal(t, 1, filled, "exactly one record for the (player, attempt) pair")
}

func TestUpsertGuessRejectsConflictingDuplicateSlot(t *testing.T) {
	r := New(selfID)
	require.True(t, r.UpsertGuess(guess(2, 0, "crane", "20010")))
	// Same slot, different word: protocol violation, never overwritten.
	require.False(t, r.UpsertGuess(guess(2, 0, "slate", "00000")))

	r.ReplacePlayers([]types.Player{{ID: selfID}, {ID: 2}})
	rows := r.Opponents()[0].Rows
	require.NotNil(t, rows[0])
	assert.Equal(t, types.MarkCorrect, rows[0][0], "original record survives")
}

func TestUpsertGuessRejectsOutOfRangeAndMalformed(t *testing.T) {
	r := New(selfID)
	assert.False(t, r.UpsertGuess(guess(2, -1, "crane", "20010")))
	assert.False(t, r.UpsertGuess(guess(2, types.MaxAttempts, "crane", "20010")))
	assert.False(t, r.UpsertGuess(guess(2, 0, "crane", "banana")))
}

func TestKeyboardFromOwnGuess(t *testing.T) {
	r := New(selfID)
	// Server feedback for "crane": c correct, r/a absent, n present, e absent.
	require.True(t, r.UpsertGuess(guess(selfID, 0, "crane", "20010")))

	kb := r.Keyboard()
	assert.Equal(t, types.MarkCorrect, kb['c'])
	assert.Equal(t, types.MarkAbsent, kb['r'])
	assert.Equal(t, types.MarkAbsent, kb['a'])
	assert.Equal(t, types.MarkPresent, kb['n'])
	assert.Equal(t, types.MarkAbsent, kb['e'])
}

func TestKeyboardUpgradeOnly(t *testing.T) {
	r := New(selfID)
	require.True(t, r.UpsertGuess(guess(selfID, 0, "crane", "20010")))
	// A later guess reports 'c' absent at a different index; the
	// confirmed correct must survive. 'n' upgrades present -> correct.
	require.True(t, r.UpsertGuess(guess(selfID, 1, "nacho", "20000")))

	kb := r.Keyboard()
	assert.Equal(t, types.MarkCorrect, kb['c'], "correct is never downgraded")
	assert.Equal(t, types.MarkCorrect, kb['n'], "present upgrades to correct")
}

func TestKeyboardIgnoresOpponentGuesses(t *testing.T) {
	r := New(selfID)
	require.True(t, r.UpsertGuess(guess(2, 0, "crane", "22222")))
	assert.Empty(t, r.Keyboard())
}

func TestOwnRowsVerbatimFeedback(t *testing.T) {
	r := New(selfID)
	require.True(t, r.UpsertGuess(guess(selfID, 0, "crane", "20010")))
	require.True(t, r.UpsertGuess(guess(selfID, 2, "slate", "00000")))

	rows := r.OwnRows()
	require.Len(t, rows, types.MaxAttempts)
	assert.Equal(t, "crane", rows[0].Word)
	assert.Equal(t, types.MarkCorrect, rows[0].Marks[0])
	assert.Empty(t, rows[1].Word, "uncommitted row stays empty")
	assert.Equal(t, "slate", rows[2].Word)
}

func TestOpponentBoardsNeverExposeWords(t *testing.T) {
	r := New(selfID)
	r.ReplacePlayers([]types.Player{
		{ID: selfID, Username: "me"},
		{ID: 2, Username: "bob"},
		{ID: 3, Username: "eve"},
	})
	require.True(t, r.UpsertGuess(guess(2, 1, "crane", "20010")))
	require.True(t, r.UpsertGuess(guess(2, 0, "slate", "01000")))

	opps := r.Opponents()
	require.Len(t, opps, 2)
	assert.Equal(t, "bob", opps[0].Player.Username)
	assert.Equal(t, "eve", opps[1].Player.Username)

	bob := opps[0]
	require.Len(t, bob.Rows, types.MaxAttempts)
	// Attempt-index order regardless of arrival order.
	assert.Equal(t, types.MarkPresent, bob.Rows[0][1])
	assert.Equal(t, types.MarkCorrect, bob.Rows[1][0])
	for i := 2; i < types.MaxAttempts; i++ {
		assert.Nil(t, bob.Rows[i], "rows beyond committed guesses are placeholders")
	}
}

func TestSnapshotAndEventsCommute(t *testing.T) {
	snap := types.Room{
		ID:    9,
		Phase: types.PhaseInProgress,
		Players: []types.Player{
			{ID: selfID, Username: "me"},
			{ID: 2, Username: "bob", IsLeader: true},
		},
		Guesses: []types.GuessRecord{
			guess(selfID, 0, "crane", "20010"),
			guess(2, 0, "slate", "00000"),
		},
	}

	// Event first, snapshot second.
	a := New(selfID)
	a.UpsertGuess(guess(2, 0, "slate", "00000"))
	a.ApplySnapshot(snap)

	// Snapshot first, event second.
	b := New(selfID)
	b.ApplySnapshot(snap)
	b.UpsertGuess(guess(2, 0, "slate", "00000"))

	assert.Equal(t, a.OwnRows(), b.OwnRows())
	assert.Equal(t, a.Opponents(), b.Opponents())
	assert.Equal(t, a.Keyboard(), b.Keyboard())
	assert.Equal(t, a.SelfAttempts(), b.SelfAttempts())
}

func TestPhaseIsMonotonic(t *testing.T) {
	r := New(selfID)
	require.True(t, r.AdvancePhase(types.PhaseLobby))
	require.True(t, r.AdvancePhase(types.PhaseInProgress))
	assert.False(t, r.AdvancePhase(types.PhaseLobby), "no backward transition")
	assert.Equal(t, types.PhaseInProgress, r.Phase())
	require.True(t, r.AdvancePhase(types.PhaseOver))
	assert.False(t, r.AdvancePhase(types.PhaseInProgress))
}

func TestLeaderDerivedFromRoster(t *testing.T) {
	r := New(selfID)
	r.ReplacePlayers([]types.Player{
		{ID: 2, Username: "bob", IsLeader: true},
		{ID: selfID, Username: "me"},
	})
	assert.False(t, r.IsLeader())

	// Leader left; server reassigned and sent the full list.
	r.ReplacePlayers([]types.Player{{ID: selfID, Username: "me", IsLeader: true}})
	assert.True(t, r.IsLeader())
	assert.True(t, r.InRoster())

	r.ReplacePlayers(nil)
	assert.False(t, r.InRoster())
}
