// Package session is the owning event loop of the synchronization
// engine. It reconciles the snapshot fetch, pushed events and local
// keystrokes by funneling all of them through one goroutine, so every
// mutation of the room projection is serialized and external consumers
// only ever read consistent views.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/multiplayer-wordle/go-client/internal/board"
	"github.com/multiplayer-wordle/go-client/internal/dispatch"
	"github.com/multiplayer-wordle/go-client/internal/gameapi"
	"github.com/multiplayer-wordle/go-client/internal/input"
	"github.com/multiplayer-wordle/go-client/internal/lifecycle"
	"github.com/multiplayer-wordle/go-client/internal/types"
	"github.com/multiplayer-wordle/go-client/internal/words"
)

const submitTimeout = 10 * time.Second

// KeyKind classifies a keystroke.
type KeyKind int

const (
	KeyLetter KeyKind = iota
	KeyBackspace
	KeyEnter
)

// Key is one unit of local user input.
type Key struct {
	Kind KeyKind
	Rune rune // set for KeyLetter only
}

// View is the read-only projection handed to rendering. It is a value
// copy; mutating it has no effect on the session.
type View struct {
	Phase     types.Phase
	Players   []types.Player
	IsLeader  bool
	Rows      []board.Row
	Keyboard  map[rune]types.Mark
	Opponents []board.OpponentBoard
	Buffer    string
	Attempt   int
	Input     input.State
	Notice    string
}

type msg interface{ isSessionMsg() }

type snapshotMsg struct{ room types.Room }
type rosterMsg struct{ players []types.Player }
type startedMsg struct{}
type guessMsg struct{ rec types.GuessRecord }
type gameOverMsg struct{ ev types.GameOver }
type keyMsg struct{ key Key }
type submitDone struct {
	rec types.GuessRecord
	err error
}
type getView struct{ reply chan View }

func (snapshotMsg) isSessionMsg() {}
func (rosterMsg) isSessionMsg()   {}
func (startedMsg) isSessionMsg()  {}
func (guessMsg) isSessionMsg()    {}
func (gameOverMsg) isSessionMsg() {}
func (keyMsg) isSessionMsg()      {}
func (submitDone) isSessionMsg()  {}
func (getView) isSessionMsg()     {}

// Config assembles a session. Validate defaults to the embedded
// dictionary; Logger defaults to a nop logger.
type Config struct {
	SelfID    uint
	RoomID    uint
	API       API
	Events    *dispatch.Dispatcher
	Lifecycle *lifecycle.Controller
	Validate  func(string) bool
	Logger    *zap.Logger
}

// Session owns the Reconciler, the input machine and the lifecycle
// controller for one room membership.
type Session struct {
	selfID uint
	roomID uint
	api    API
	life   *lifecycle.Controller
	log    *zap.Logger

	inbox   chan msg
	board   *board.Reconciler
	machine *input.Machine
	notice  string

	ctx    context.Context
	cancel context.CancelFunc
	unsubs []func()
}

// New wires the session to the dispatcher and starts its loop.
func New(parent context.Context, cfg Config) *Session {
	validate := cfg.Validate
	if validate == nil {
		validate = words.IsValid
	}
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	s := &Session{
		selfID:  cfg.SelfID,
		roomID:  cfg.RoomID,
		api:     cfg.API,
		life:    cfg.Lifecycle,
		log:     log,
		inbox:   make(chan msg, 64),
		board:   board.New(cfg.SelfID),
		machine: input.New(validate),
		ctx:     ctx,
		cancel:  cancel,
	}

	s.unsubs = append(s.unsubs,
		cfg.Events.Subscribe(types.EvtPlayerJoined, s.onRosterFrame),
		cfg.Events.Subscribe(types.EvtPlayerLeft, s.onRosterFrame),
		cfg.Events.Subscribe(types.EvtGameStarted, func(json.RawMessage) { s.post(startedMsg{}) }),
		cfg.Events.Subscribe(types.EvtNewGuess, s.onGuessFrame),
		cfg.Events.Subscribe(types.EvtGameOver, s.onGameOverFrame),
	)

	go s.loop()
	return s
}

// Bootstrap runs the snapshot load and routes its outcome: not-found
// and phase mismatch navigate away, a successful load feeds the
// reconciler. Call once per mount.
func (s *Session) Bootstrap(ctx context.Context, expected types.Phase) error {
	loader := NewLoader(s.api, s.selfID, s.roomID, s.log)
	room, err := loader.Load(ctx, expected)
	switch {
	case errors.Is(err, gameapi.ErrNotFound):
		s.life.RoomMissing()
		return err
	case errors.Is(err, ErrPhaseMismatch):
		s.life.Redirect(room.Phase)
		return err
	case err != nil:
		return err
	}
	s.post(snapshotMsg{room: room})
	return nil
}

// HandleKey feeds one keystroke into the loop.
func (s *Session) HandleKey(k Key) {
	s.post(keyMsg{key: k})
}

// View returns a consistent copy of the current projection.
func (s *Session) View() View {
	reply := make(chan View, 1)
	select {
	case s.inbox <- getView{reply: reply}:
	case <-s.ctx.Done():
		return View{}
	}
	select {
	case v := <-reply:
		return v
	case <-s.ctx.Done():
		return View{}
	}
}

// StartGame asks the server to begin; the server enforces that only the
// leader may. Navigation happens via the pushed game_started event, the
// same path every other player takes.
func (s *Session) StartGame(ctx context.Context) error {
	return s.api.Start(ctx, s.roomID)
}

// Leave exits the room voluntarily and navigates home optimistically.
func (s *Session) Leave(ctx context.Context) {
	s.life.Leave(ctx, s.api)
}

// Shutdown detaches from the dispatcher, cancels pending navigation and
// stops the loop. Safe to call more than once.
func (s *Session) Shutdown() {
	for _, u := range s.unsubs {
		u()
	}
	s.life.Stop()
	s.cancel()
}

func (s *Session) post(m msg) {
	select {
	case s.inbox <- m:
	case <-s.ctx.Done():
	}
}

func (s *Session) onRosterFrame(raw json.RawMessage) {
	room, err := types.DecodeRoom(raw)
	if err != nil {
		s.log.Warn("dropping roster frame", zap.Error(err))
		return
	}
	s.post(rosterMsg{players: room.Players})
}

func (s *Session) onGuessFrame(raw json.RawMessage) {
	rec, err := types.DecodeGuess(raw)
	if err != nil {
		s.log.Warn("dropping guess frame", zap.Error(err))
		return
	}
	s.post(guessMsg{rec: rec})
}

func (s *Session) onGameOverFrame(raw json.RawMessage) {
	ev, err := types.DecodeGameOver(raw)
	if err != nil {
		s.log.Warn("dropping game_over frame", zap.Error(err))
		return
	}
	s.post(gameOverMsg{ev: ev})
}

func (s *Session) loop() {
	for {
		select {
		case <-s.ctx.Done():
			return
		case m := <-s.inbox:
			s.handle(m)
		}
	}
}

func (s *Session) handle(m msg) {
	switch msg := m.(type) {
	case snapshotMsg:
		s.board.ApplySnapshot(msg.room)
		s.machine.SyncCommitted(s.board.SelfAttempts())

	case rosterMsg:
		s.board.ReplacePlayers(msg.players)

	case startedMsg:
		s.board.AdvancePhase(types.PhaseInProgress)
		s.life.GameStarted()

	case guessMsg:
		if !s.board.UpsertGuess(msg.rec) {
			s.log.Debug("duplicate guess dropped",
				zap.Uint("player_id", msg.rec.PlayerID),
				zap.Int("attempt", msg.rec.Attempt))
		}

	case gameOverMsg:
		s.board.AdvancePhase(types.PhaseOver)
		s.machine.Lock()
		if text, shown := s.life.GameOver(msg.ev); shown {
			s.notice = text
		}

	case keyMsg:
		s.handleKey(msg.key)

	case submitDone:
		if msg.err != nil {
			// Buffer stays intact; the user may retry the identical word.
			s.machine.Finish(false)
			s.notice = "Could not submit guess, try again"
			s.log.Warn("guess submission failed", zap.Error(msg.err))
			return
		}
		s.machine.Finish(true)
		s.board.UpsertGuess(msg.rec)
		s.notice = ""

	case getView:
		msg.reply <- s.view()
	}
}

func (s *Session) handleKey(k Key) {
	if s.board.Phase() == types.PhaseOver {
		return
	}
	switch k.Kind {
	case KeyLetter:
		if s.machine.Append(k.Rune) {
			s.notice = ""
		}
	case KeyBackspace:
		s.machine.Backspace()
	case KeyEnter:
		word, attempt, err := s.machine.BeginSubmit()
		if err != nil {
			switch {
			case errors.Is(err, input.ErrNotAWord):
				s.notice = "Not a valid word"
			case errors.Is(err, input.ErrTooShort):
				s.notice = "Guess must be five letters"
			}
			// ErrBusy and ErrLocked are structural rejections, not
			// user-facing noise.
			return
		}
		go s.submit(word, attempt)
	}
}

func (s *Session) submit(word string, attempt int) {
	ctx, cancel := context.WithTimeout(s.ctx, submitTimeout)
	defer cancel()
	rec, err := s.api.SubmitGuess(ctx, s.roomID, word, attempt)
	s.post(submitDone{rec: rec, err: err})
}

func (s *Session) view() View {
	return View{
		Phase:     s.board.Phase(),
		Players:   s.board.Players(),
		IsLeader:  s.board.IsLeader(),
		Rows:      s.board.OwnRows(),
		Keyboard:  s.board.Keyboard(),
		Opponents: s.board.Opponents(),
		Buffer:    s.machine.Buffer(),
		Attempt:   s.machine.Attempt(),
		Input:     s.machine.State(),
		Notice:    s.notice,
	}
}
