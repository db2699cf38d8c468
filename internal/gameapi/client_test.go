package gameapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/multiplayer-wordle/go-client/internal/types"
)

func fakeServer(t *testing.T, wire func(r chi.Router)) *Client {
	t.Helper()
	r := chi.NewRouter()
	wire(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return New(srv.URL, zap.NewNop())
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func TestRoomSnapshot(t *testing.T) {
	c := fakeServer(t, func(r chi.Router) {
		r.Get("/api/game/{gameID}", func(w http.ResponseWriter, req *http.Request) {
			assert.Equal(t, "42", chi.URLParam(req, "gameID"))
			writeJSON(w, http.StatusOK, map[string]any{
				"message": "Success",
				"game": map[string]any{
					"ID":    42,
					"state": "lobby",
					"players": []map[string]any{
						{"ID": 1, "username": "ada", "isAdmin": true},
					},
					"guesses": []map[string]any{},
				},
			})
		})
	})

	room, err := c.Room(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, uint(42), room.ID)
	assert.Equal(t, types.PhaseLobby, room.Phase)
	require.Len(t, room.Players, 1)
	assert.True(t, room.Players[0].IsLeader)
}

func TestRoomNotFound(t *testing.T) {
	c := fakeServer(t, func(r chi.Router) {
		r.Get("/api/game/{gameID}", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusNotFound, map[string]any{"error": "Game not found"})
		})
	})

	_, err := c.Room(context.Background(), 99)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestJoinRoomFullIsDistinguished(t *testing.T) {
	c := fakeServer(t, func(r chi.Router) {
		r.Patch("/api/game/{gameID}/join", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Room full"})
		})
	})

	err := c.Join(context.Background(), 7)
	require.ErrorIs(t, err, ErrRoomFull)
}

func TestJoinOtherBadRequestIsStatusError(t *testing.T) {
	c := fakeServer(t, func(r chi.Router) {
		r.Patch("/api/game/{gameID}/join", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"error": "You are already in a game"})
		})
	})

	err := c.Join(context.Background(), 7)
	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusBadRequest, se.Code)
	assert.Contains(t, se.Reason, "already in a game")
}

func TestSubmitGuess(t *testing.T) {
	c := fakeServer(t, func(r chi.Router) {
		r.Post("/api/game/{gameID}/guess", func(w http.ResponseWriter, req *http.Request) {
			var body struct {
				GuessWord     string `json:"guessWord"`
				AttemptNumber int    `json:"attemptNumber"`
			}
			require.NoError(t, json.NewDecoder(req.Body).Decode(&body))
			assert.Equal(t, "crane", body.GuessWord)
			assert.Equal(t, 2, body.AttemptNumber)

			writeJSON(w, http.StatusOK, map[string]any{
				"guess": map[string]any{
					"playerId":      1,
					"attemptNumber": 2,
					"guessWord":     "crane",
					"feedback":      "20010",
				},
			})
		})
	})

	rec, err := c.SubmitGuess(context.Background(), 7, "crane", 2)
	require.NoError(t, err)
	assert.Equal(t, uint(1), rec.PlayerID)
	assert.Equal(t, 2, rec.Attempt)
	assert.Equal(t, "20010", rec.Feedback)
}

func TestSubmitGuessRejectsUndecodableFeedback(t *testing.T) {
	c := fakeServer(t, func(r chi.Router) {
		r.Post("/api/game/{gameID}/guess", func(w http.ResponseWriter, req *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{
				"guess": map[string]any{
					"playerId":      1,
					"attemptNumber": 0,
					"guessWord":     "crane",
					"feedback":      "Incorrect",
				},
			})
		})
	})

	_, err := c.SubmitGuess(context.Background(), 7, "crane", 0)
	require.Error(t, err)
}

func TestStartAndLeave(t *testing.T) {
	var started, left bool
	c := fakeServer(t, func(r chi.Router) {
		r.Patch("/api/game/{gameID}/start", func(w http.ResponseWriter, req *http.Request) {
			started = true
			writeJSON(w, http.StatusOK, map[string]any{"message": "Game started successfully"})
		})
		r.Patch("/api/game/{gameID}/leave", func(w http.ResponseWriter, req *http.Request) {
			left = true
			writeJSON(w, http.StatusOK, map[string]any{"message": "You left the game successfully"})
		})
	})

	require.NoError(t, c.Start(context.Background(), 7))
	require.NoError(t, c.Leave(context.Background(), 7))
	assert.True(t, started)
	assert.True(t, left)
}
