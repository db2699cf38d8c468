// Package gameapi is the typed request/response client for the game
// server's REST surface: snapshot fetch, membership changes and guess
// submission. It carries no retry policy; callers decide what is worth
// retrying.
package gameapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/multiplayer-wordle/go-client/internal/types"
)

// ErrNotFound reports that the room does not exist. Fatal to a session;
// never retried.
var ErrNotFound = errors.New("room not found")

// ErrRoomFull is the distinguished join failure: surfaced to the user,
// not retried automatically.
var ErrRoomFull = errors.New("room full")

// StatusError is any other non-2xx response, carrying the server's
// reason string for display.
type StatusError struct {
	Code   int
	Reason string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("server responded %d: %s", e.Code, e.Reason)
}

// Client talks to one game server. The zero value is not usable; call New.
type Client struct {
	base string
	http *http.Client
	log  *zap.Logger
}

func New(baseURL string, log *zap.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: 10 * time.Second},
		log:  log,
	}
}

// Room fetches the authoritative snapshot for roomID.
func (c *Client) Room(ctx context.Context, roomID uint) (types.Room, error) {
	var body struct {
		Game types.Room `json:"game"`
	}
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/game/%d", roomID), nil, &body)
	if err != nil {
		return types.Room{}, err
	}
	return body.Game, nil
}

// Join adds the caller to the room's roster.
func (c *Client) Join(ctx context.Context, roomID uint) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/game/%d/join", roomID), nil, nil)
}

// Leave removes the caller from the room's roster.
func (c *Client) Leave(ctx context.Context, roomID uint) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/game/%d/leave", roomID), nil, nil)
}

// Start transitions the room from lobby to in-progress. Leader only;
// the server enforces it, the client merely gates the UI.
func (c *Client) Start(ctx context.Context, roomID uint) error {
	return c.do(ctx, http.MethodPatch, fmt.Sprintf("/api/game/%d/start", roomID), nil, nil)
}

// SubmitGuess submits word for the given attempt slot and returns the
// committed record, feedback included.
func (c *Client) SubmitGuess(ctx context.Context, roomID uint, word string, attempt int) (types.GuessRecord, error) {
	req := struct {
		GuessWord     string `json:"guessWord"`
		AttemptNumber int    `json:"attemptNumber"`
	}{GuessWord: word, AttemptNumber: attempt}

	var body struct {
		Guess types.GuessRecord `json:"guess"`
	}
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/api/game/%d/guess", roomID), req, &body); err != nil {
		return types.GuessRecord{}, err
	}
	if _, err := body.Guess.Marks(); err != nil {
		return types.GuessRecord{}, fmt.Errorf("submit guess: %w", err)
	}
	return body.Guess, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reqBody io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.asError(resp, method, path)
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

func (c *Client) asError(resp *http.Response, method, path string) error {
	var body struct {
		Error string `json:"error"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&body)

	c.log.Warn("request failed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.String("reason", body.Error))

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusBadRequest && strings.Contains(strings.ToLower(body.Error), "room full"):
		return ErrRoomFull
	}
	return &StatusError{Code: resp.StatusCode, Reason: body.Error}
}
