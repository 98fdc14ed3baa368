package syncclient

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"poemboard/internal/domain"
	"poemboard/internal/throttle"
	"poemboard/internal/wordpool"
)

// DefaultMoveInterval bounds how often drag positions are sent
const DefaultMoveInterval = 30 * time.Millisecond

// Sender transmits local actions to the relay
type Sender interface {
	SendAction(domain.Action) error
}

// BoardOptions configures a Board
type BoardOptions struct {
	MoveInterval time.Duration

	// OnChange is called with the new state after every change. It runs
	// with the board locked and must not call back into the Board.
	OnChange func(domain.Words)

	Logger *slog.Logger
}

// Board is the local replica of one board's word list
type Board struct {
	opts   BoardOptions
	logger *slog.Logger
	moves  *throttle.Throttle[struct{}]

	mu          sync.Mutex
	words       domain.Words
	synced      bool
	sender      Sender
	lastMoveID  string
	pendingMove *domain.MoveWord
}

// NewBoard creates an empty, local-only board. Local-only boards count as
// synced until they are connected.
func NewBoard(opts BoardOptions) *Board {
	if opts.MoveInterval <= 0 {
		opts.MoveInterval = DefaultMoveInterval
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	b := &Board{
		opts:   opts,
		logger: opts.Logger,
		words:  domain.Words{},
		synced: true,
	}
	b.moves = throttle.New(opts.MoveInterval, func(struct{}) { b.flushMove() })
	return b
}

// Connect shares the board on the relay at opts.URL. The board stays
// unsynced until the join snapshot arrives; opts.OnAction is called after
// each remote action has been applied.
func (b *Board) Connect(ctx context.Context, opts Options) (*Client, error) {
	b.markUnsynced()

	next := opts.OnAction
	opts.OnAction = func(a domain.Action) {
		b.Receive(a)
		if next != nil {
			next(a)
		}
	}

	c, err := Dial(ctx, opts)
	if err != nil {
		b.mu.Lock()
		b.synced = b.sender == nil
		b.mu.Unlock()
		return nil, err
	}

	b.Attach(c)
	return c, nil
}

// Attach routes local actions through s
func (b *Board) Attach(s Sender) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sender = s
}

// markUnsynced holds back generation until the next SET_STATE arrives
func (b *Board) markUnsynced() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.synced = false
}

// Words returns a copy of the current state
func (b *Board) Words() domain.Words {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.words.Clone()
}

// Synced reports whether the board holds the relay's snapshot
func (b *Board) Synced() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.synced
}

// Receive applies an action that arrived from the relay
func (b *Board) Receive(a domain.Action) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.words = domain.Apply(b.words, a)
	if _, ok := a.(domain.SetState); ok && !b.synced {
		b.synced = true
		b.logger.Debug("board synced", "words", len(b.words))
	}
	b.changed()
}

// Dispatch applies a local action at once and forwards it to the relay.
// Any pending drag position is sent first so the relay sees actions in
// local order.
func (b *Board) Dispatch(a domain.Action) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.dispatchLocked(a)
}

func (b *Board) dispatchLocked(a domain.Action) {
	b.sendPendingLocked()
	b.words = domain.Apply(b.words, a)
	b.changed()
	b.sendLocked(a)
}

// Move drags a word. The local state follows every call, the relay sees at
// most one position per move interval. Switching to another word sends the
// previous word's final position first.
func (b *Board) Move(id string, x, y float64) {
	mv := domain.MoveWord{
		ID:       id,
		XPercent: domain.ClampPercent(x),
		YPercent: domain.ClampPercent(y),
	}

	b.mu.Lock()
	if b.lastMoveID != id {
		b.sendPendingLocked()
	}
	b.lastMoveID = id
	b.pendingMove = &mv
	b.words = domain.Apply(b.words, mv)
	b.changed()
	b.mu.Unlock()

	b.moves.Call(struct{}{})
}

// EndMove sends the pending drag position, if any, and closes the move
// window so the next drag starts a fresh one.
func (b *Board) EndMove() {
	b.moves.Flush()

	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendPendingLocked()
	b.lastMoveID = ""
}

// Delete removes a word
func (b *Board) Delete(id string) {
	b.Dispatch(domain.DeleteWord{ID: id})
}

// Reset clears the board
func (b *Board) Reset() {
	b.Dispatch(domain.Reset{})
}

// Generate samples count words from pool and adds them in a single
// ADD_WORDS. Shared boards refuse until the snapshot has arrived, so a
// fresh client never seeds over existing content.
func (b *Board) Generate(pool []string, count int) (domain.Words, error) {
	if !b.Synced() {
		return nil, domain.ErrNotSynced
	}

	words := wordpool.NewWords(pool, count)
	if len(words) == 0 {
		return nil, nil
	}

	b.Dispatch(domain.AddWords{Words: words})
	return words, nil
}

// SeedIfEmpty generates words only when the synced board is empty
func (b *Board) SeedIfEmpty(pool []string, count int) (domain.Words, error) {
	b.mu.Lock()
	synced, empty := b.synced, len(b.words) == 0
	b.mu.Unlock()

	if !synced {
		return nil, domain.ErrNotSynced
	}
	if !empty {
		return nil, nil
	}
	return b.Generate(pool, count)
}

// Close discards any pending drag position
func (b *Board) Close() {
	b.moves.Stop()

	b.mu.Lock()
	b.pendingMove = nil
	b.mu.Unlock()
}

// flushMove runs on the trailing edge of each move window. The position is
// taken under the board lock, so a local action dispatched in between has
// already sent it.
func (b *Board) flushMove() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sendPendingLocked()
}

func (b *Board) sendPendingLocked() {
	if b.pendingMove == nil {
		return
	}
	mv := *b.pendingMove
	b.pendingMove = nil
	b.sendLocked(mv)
}

func (b *Board) sendLocked(a domain.Action) {
	if b.sender == nil {
		return
	}
	if err := b.sender.SendAction(a); err != nil {
		b.logger.Debug("action not sent", "type", a.Type(), "error", err)
	}
}

func (b *Board) changed() {
	if b.opts.OnChange != nil {
		b.opts.OnChange(b.words.Clone())
	}
}
