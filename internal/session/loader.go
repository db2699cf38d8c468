package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/multiplayer-wordle/go-client/internal/types"
)

// ErrPhaseMismatch reports that the room's actual phase differs from the
// one the caller's screen expected. The room returned alongside it tells
// the caller where to redirect.
var ErrPhaseMismatch = errors.New("room phase differs from expected")

// API is the slice of the request client the session consumes.
type API interface {
	Room(ctx context.Context, roomID uint) (types.Room, error)
	Join(ctx context.Context, roomID uint) error
	Leave(ctx context.Context, roomID uint) error
	Start(ctx context.Context, roomID uint) error
	SubmitGuess(ctx context.Context, roomID uint, word string, attempt int) (types.GuessRecord, error)
}

// Loader performs the one-time authoritative fetch of room state.
// Construct it only once the caller's identity is resolved; there is no
// fetch before auth state is known.
type Loader struct {
	api    API
	selfID uint
	roomID uint
	log    *zap.Logger
}

func NewLoader(api API, selfID, roomID uint, log *zap.Logger) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{api: api, selfID: selfID, roomID: roomID, log: log}
}

// Load fetches the snapshot, joining the room first if the caller is
// not yet on its roster (with exactly one re-fetch after a successful
// join). A failed join is terminal for the session, never retried here.
// A room in a different phase than expected comes back with
// ErrPhaseMismatch so the lifecycle controller can redirect.
func (l *Loader) Load(ctx context.Context, expected types.Phase) (types.Room, error) {
	room, err := l.api.Room(ctx, l.roomID)
	if err != nil {
		return types.Room{}, fmt.Errorf("fetch room %d: %w", l.roomID, err)
	}

	if !l.onRoster(room) {
		if err := l.api.Join(ctx, l.roomID); err != nil {
			return types.Room{}, fmt.Errorf("join room %d: %w", l.roomID, err)
		}
		l.log.Info("joined room", zap.Uint("room_id", l.roomID))
		room, err = l.api.Room(ctx, l.roomID)
		if err != nil {
			return types.Room{}, fmt.Errorf("re-fetch room %d: %w", l.roomID, err)
		}
	}

	if room.Phase != expected {
		return room, ErrPhaseMismatch
	}
	return room, nil
}

func (l *Loader) onRoster(room types.Room) bool {
	for _, p := range room.Players {
		if p.ID == l.selfID {
			return true
		}
	}
	return false
}
