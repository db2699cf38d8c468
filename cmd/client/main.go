// Command client runs the synchronization engine against a live game
// server with a minimal terminal projection of the board. Type a word
// and press enter to guess; /start begins the game (leader only), /quit
// leaves the room.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/multiplayer-wordle/go-client/internal/channel"
	"github.com/multiplayer-wordle/go-client/internal/dispatch"
	"github.com/multiplayer-wordle/go-client/internal/gameapi"
	"github.com/multiplayer-wordle/go-client/internal/lifecycle"
	"github.com/multiplayer-wordle/go-client/internal/session"
	"github.com/multiplayer-wordle/go-client/internal/types"
)

func main() {
	_ = godotenv.Load()

	logger, err := buildLogger()
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(logger); err != nil {
		logger.Fatal("client exited", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	baseURL := getEnv("SERVER_URL", "http://localhost:8080")
	wsURL := getEnv("WS_URL", deriveWS(baseURL))

	roomID, err := strconv.ParseUint(os.Getenv("ROOM_ID"), 10, 32)
	if err != nil {
		return fmt.Errorf("ROOM_ID must be a positive integer: %w", err)
	}
	selfID, err := strconv.ParseUint(os.Getenv("PLAYER_ID"), 10, 32)
	if err != nil {
		return fmt.Errorf("PLAYER_ID must be a positive integer: %w", err)
	}
	username := getEnv("USERNAME", "guest-"+uuid.NewString()[:8])

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	api := gameapi.New(baseURL, logger)
	events := dispatch.New(logger)
	mgr := channel.New(wsURL, channel.Options{
		Frames: events.OnFrame,
		State: func(connected bool) {
			logger.Info("connection state", zap.Bool("connected", connected))
		},
		Logger: logger,
	})
	defer mgr.Close()

	nav := &termNavigator{log: logger, quit: stop}
	life := lifecycle.New(uint(selfID), uint(roomID), nav, 0, logger)
	sess := session.New(ctx, session.Config{
		SelfID:    uint(selfID),
		RoomID:    uint(roomID),
		API:       api,
		Events:    events,
		Lifecycle: life,
		Logger:    logger,
	})
	defer sess.Shutdown()

	if err := mgr.Open(ctx, uint(roomID), username); err != nil {
		logger.Warn("initial connect failed, reconnect pending", zap.Error(err))
	}

	// Land on the lobby; if the game is already running, load the active
	// board instead.
	if err := sess.Bootstrap(ctx, types.PhaseLobby); err != nil {
		if err := sess.Bootstrap(ctx, types.PhaseInProgress); err != nil {
			return fmt.Errorf("bootstrap: %w", err)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return inputLoop(gctx, sess, logger) })
	g.Go(func() error {
		<-gctx.Done()
		return nil
	})
	return g.Wait()
}

func inputLoop(ctx context.Context, sess *session.Session, logger *zap.Logger) error {
	sc := bufio.NewScanner(os.Stdin)
	render(sess.View())
	for sc.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "/quit":
			sess.Leave(ctx)
			return nil
		case "/start":
			if err := sess.StartGame(ctx); err != nil {
				logger.Warn("start refused", zap.Error(err))
			}
		case "":
		default:
			for _, r := range line {
				sess.HandleKey(session.Key{Kind: session.KeyLetter, Rune: r})
			}
			sess.HandleKey(session.Key{Kind: session.KeyEnter})
		}
		render(sess.View())
	}
	return sc.Err()
}

func render(v session.View) {
	fmt.Printf("\n[%s] players: %d  attempt: %d/%d\n", v.Phase, len(v.Players), v.Attempt, types.MaxAttempts)
	for _, row := range v.Rows {
		if row.Word == "" {
			fmt.Println("  _____")
			continue
		}
		fmt.Printf("  %s  %s\n", strings.ToUpper(row.Word), marksGlyphs(row.Marks))
	}
	if v.Buffer != "" {
		fmt.Printf("  > %s\n", strings.ToUpper(v.Buffer))
	}
	for _, opp := range v.Opponents {
		done := 0
		for _, r := range opp.Rows {
			if r != nil {
				done++
			}
		}
		fmt.Printf("  %s: %d guesses\n", opp.Player.Username, done)
	}
	if v.Notice != "" {
		fmt.Println("  !", v.Notice)
	}
}

func marksGlyphs(marks []types.Mark) string {
	var b strings.Builder
	for _, m := range marks {
		switch m {
		case types.MarkCorrect:
			b.WriteByte('G')
		case types.MarkPresent:
			b.WriteByte('Y')
		default:
			b.WriteByte('.')
		}
	}
	return b.String()
}

// termNavigator projects screen changes onto the terminal; Home and
// NotFound end the program since there is nothing else to show.
type termNavigator struct {
	log  *zap.Logger
	quit context.CancelFunc
}

func (n *termNavigator) GameScreen(roomID uint)  { n.log.Info("screen: game", zap.Uint("room", roomID)) }
func (n *termNavigator) LobbyScreen(roomID uint) { n.log.Info("screen: lobby", zap.Uint("room", roomID)) }
func (n *termNavigator) Home() {
	n.log.Info("screen: home")
	n.quit()
}
func (n *termNavigator) NotFound() {
	n.log.Info("screen: not found")
	n.quit()
}

func buildLogger() (*zap.Logger, error) {
	if getEnv("LOG_MODE", "dev") == "prod" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

func deriveWS(httpURL string) string {
	switch {
	case strings.HasPrefix(httpURL, "https://"):
		return "wss://" + strings.TrimPrefix(httpURL, "https://")
	case strings.HasPrefix(httpURL, "http://"):
		return "ws://" + strings.TrimPrefix(httpURL, "http://")
	}
	return httpURL
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
