package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"poemboard/internal/config"
	"poemboard/internal/domain"
	"poemboard/internal/syncclient"
	"poemboard/internal/wordpool"
)

const (
	releaseVersion = "0.1.0"
	joinTimeout    = 10 * time.Second
)

type clientConfig struct {
	url          string
	board        string
	words        string
	seed         int
	wander       time.Duration
	moveInterval time.Duration
	logging      config.LoggingConfig
}

func (c *clientConfig) validate() error {
	if c.url == "" {
		return errors.New("--url must not be empty")
	}
	if c.board == "" {
		return domain.ErrEmptyBoardID
	}
	if c.seed < 0 {
		return fmt.Errorf("invalid seed count: %d", c.seed)
	}
	return c.logging.Validate()
}

func main() {
	cfg := &clientConfig{logging: config.DefaultLogging()}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *clientConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "poemboard-client",
		Short:         "Joins a shared word board and keeps a local replica in sync.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.BindEnv(cmd.Flags()); err != nil {
				return err
			}
			if err := cfg.validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.url, "url", "u", "ws://localhost:8080/ws", "relay websocket URL (env: POEMBOARD_URL)")
	fs.StringVar(&cfg.board, "board", "", "board id to join (env: POEMBOARD_BOARD)")
	fs.StringVar(&cfg.words, "words", "", "file of candidate words, one per line; built-in list when empty (env: POEMBOARD_WORDS)")
	fs.IntVar(&cfg.seed, "seed", 9, "words to generate when the joined board is empty, 0 to disable (env: POEMBOARD_SEED)")
	fs.DurationVar(&cfg.wander, "wander", 0, "move a random word at this interval, 0 to disable (env: POEMBOARD_WANDER)")
	fs.DurationVar(&cfg.moveInterval, "throttle", syncclient.DefaultMoveInterval, "minimum time between sent drag positions (env: POEMBOARD_THROTTLE)")
	config.RegisterLoggingFlags(fs, &cfg.logging)

	cmd.SetVersionTemplate("poemboard-client v{{.Version}}\n")

	return cmd
}

func run(ctx context.Context, cfg *clientConfig) error {
	logger := cfg.logging.NewLogger(os.Stderr).With("boardId", cfg.board)

	pool, err := wordpool.LoadFile(cfg.words)
	if err != nil {
		return err
	}

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	board := syncclient.NewBoard(syncclient.BoardOptions{
		MoveInterval: cfg.moveInterval,
		Logger:       logger,
	})
	defer board.Close()

	joined := make(chan struct{})
	var joinOnce sync.Once
	dialCtx, cancel := context.WithTimeout(ctx, joinTimeout)
	defer cancel()

	client, err := board.Connect(dialCtx, syncclient.Options{
		URL:     cfg.url,
		BoardID: cfg.board,
		Logger:  logger,
		OnAction: func(a domain.Action) {
			logger.Info("remote action", "type", a.Type())
		},
		OnJoined: func(string) {
			joinOnce.Do(func() { close(joined) })
		},
		OnStatus: func(s syncclient.Status) {
			logger.Info("connection status", "connected", s.Connected)
		},
	})
	if err != nil {
		return err
	}
	defer client.Close()

	select {
	case <-joined:
	case <-client.Done():
		return errors.New("connection closed before the board was joined")
	case <-dialCtx.Done():
		return fmt.Errorf("joining board %s: %w", cfg.board, dialCtx.Err())
	}

	logger.Info("board joined", "words", len(board.Words()))

	if cfg.seed > 0 {
		seeded, err := board.SeedIfEmpty(pool, cfg.seed)
		if err != nil {
			return err
		}
		if len(seeded) > 0 {
			logger.Info("board seeded", "words", len(seeded))
		}
	}

	var wander <-chan time.Time
	if cfg.wander > 0 {
		ticker := time.NewTicker(cfg.wander)
		defer ticker.Stop()
		wander = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			logger.Info("leaving board")
			return nil
		case <-client.Done():
			return errors.New("connection to relay lost")
		case <-wander:
			nudge(board, logger)
		}
	}
}

// nudge drags a random word a short distance
func nudge(board *syncclient.Board, logger *slog.Logger) {
	words := board.Words()
	if len(words) == 0 {
		return
	}

	w := words[rand.Intn(len(words))]
	x := w.XPercent + rand.Float64()*10 - 5
	y := w.YPercent + rand.Float64()*10 - 5

	board.Move(w.ID, x, y)
	board.EndMove()

	logger.Debug("word moved", "id", w.ID, "x", x, "y", y)
}
