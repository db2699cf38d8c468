// Package lifecycle observes room-phase transitions and drives
// navigation and termination of the synchronization session.
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/multiplayer-wordle/go-client/internal/types"
)

// DefaultNavigateDelay is how long the game-over message stays on screen
// before auto-navigating back to the lobby.
const DefaultNavigateDelay = 7 * time.Second

// Navigator is the external collaborator that switches screens. All
// calls are fire-and-forget.
type Navigator interface {
	GameScreen(roomID uint)
	LobbyScreen(roomID uint)
	Home()
	NotFound()
}

// Leaver is the slice of the request client the controller needs for a
// voluntary leave.
type Leaver interface {
	Leave(ctx context.Context, roomID uint) error
}

// Controller reacts to game_started and game_over and to the local
// leave action. Stop cancels any pending auto-navigation; call it on
// unmount.
type Controller struct {
	selfID uint
	roomID uint
	nav    Navigator
	delay  time.Duration
	log    *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// New builds a controller. delay <= 0 takes DefaultNavigateDelay.
func New(selfID, roomID uint, nav Navigator, delay time.Duration, log *zap.Logger) *Controller {
	if delay <= 0 {
		delay = DefaultNavigateDelay
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Controller{selfID: selfID, roomID: roomID, nav: nav, delay: delay, log: log}
}

// GameStarted moves from the waiting room to the active board.
func (c *Controller) GameStarted() {
	c.log.Info("game started", zap.Uint("room_id", c.roomID))
	c.nav.GameScreen(c.roomID)
}

// GameOver derives the textual outcome and schedules navigation. If the
// local player already left the game, no message is shown and navigation
// goes straight home; otherwise the returned message is displayed and
// the lobby screen follows after the configured delay.
func (c *Controller) GameOver(ev types.GameOver) (message string, shown bool) {
	players := ev.Game.Players

	switch {
	case ev.Winner == nil && len(players) == 1:
		message = "Oops! Looks like you are the only person left in this game. Anyway, the word was " + ev.Word
	case ev.Winner != nil && len(players) > 1:
		message = fmt.Sprintf("%s won the game! The word was %s", ev.Winner.Username, ev.Word)
	case ev.Winner == nil && len(players) > 1:
		message = "The game ended in a draw. The word was " + ev.Word
	}

	inGame := false
	for _, p := range players {
		if p.ID == c.selfID {
			inGame = true
			break
		}
	}
	if !inGame {
		c.nav.Home()
		return "", false
	}

	c.mu.Lock()
	if c.timer != nil {
		c.timer.Stop()
	}
	c.timer = time.AfterFunc(c.delay, func() {
		c.nav.LobbyScreen(c.roomID)
	})
	c.mu.Unlock()

	c.log.Info("game over", zap.Uint("room_id", c.roomID), zap.String("message", message))
	return message, true
}

// RoomMissing handles the fatal not-found outcome: no retry, just leave.
func (c *Controller) RoomMissing() {
	c.log.Warn("room does not exist", zap.Uint("room_id", c.roomID))
	c.nav.NotFound()
}

// Redirect sends the user to the screen matching the room's actual
// phase, for when a snapshot contradicts the screen they arrived on.
func (c *Controller) Redirect(p types.Phase) {
	if p == types.PhaseLobby {
		c.nav.LobbyScreen(c.roomID)
		return
	}
	c.nav.GameScreen(c.roomID)
}

// Leave is the local-initiated exit: call the leave endpoint, then
// navigate home unconditionally. A server failure is logged only.
func (c *Controller) Leave(ctx context.Context, api Leaver) {
	if err := api.Leave(ctx, c.roomID); err != nil {
		c.log.Error("leave request failed", zap.Uint("room_id", c.roomID), zap.Error(err))
	}
	c.Stop()
	c.nav.Home()
}

// Stop cancels a pending auto-navigation. Safe to call repeatedly.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
}
