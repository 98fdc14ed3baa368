package app

import (
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"poemboard/internal/domain"
)

// BoardIDChars are characters used for generated board ids (no ambiguous chars)
const BoardIDChars = "abcdefghjkmnpqrstuvwxyz23456789"

// ErrClosed is returned once the registry has been shut down
var ErrClosed = errors.New("registry closed")

// Registry maps board ids to live rooms. A room exists only while it has at
// least one member; its state is dropped together with its last member.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	closed bool
	logger *slog.Logger
}

// NewRegistry creates an empty registry
func NewRegistry(logger *slog.Logger) *Registry {
	return &Registry{
		rooms:  make(map[string]*Room),
		logger: logger,
	}
}

// Connect creates the handle for a newly accepted connection
func (r *Registry) Connect(peer Peer) *Member {
	return &Member{
		id:   uuid.NewString(),
		peer: peer,
	}
}

// Join binds m to boardID, leaving any room it was bound to before. The
// room is created with an empty board if it does not exist. SYNC_STATE and
// JOINED are queued on m's peer; the snapshot is also returned.
func (r *Registry) Join(m *Member, boardID string) (domain.Words, error) {
	if boardID == "" {
		return nil, domain.ErrEmptyBoardID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil, ErrClosed
	}

	if m.room != nil && m.room.id != boardID {
		r.leaveLocked(m)
	}

	room, ok := r.rooms[boardID]
	if !ok {
		room = newRoom(boardID, r.logger)
		r.rooms[boardID] = room
		r.logger.Info("board created", "boardId", boardID)
	}

	room.mu.Lock()
	snapshot, err := room.addLocked(m)
	room.mu.Unlock()
	if err != nil {
		if !ok {
			delete(r.rooms, boardID)
		}
		return nil, fmt.Errorf("join %s: %w", boardID, err)
	}

	m.room = room

	r.logger.Info("member joined",
		"boardId", boardID,
		"connId", m.id,
		"words", len(snapshot),
	)

	return snapshot, nil
}

// ApplyAndBroadcast applies action to the authoritative state of m's room
// and relays raw, the sender's original message, to every other member.
// Broadcast order within a room equals the order actions are applied.
func (r *Registry) ApplyAndBroadcast(m *Member, action domain.Action, raw []byte) error {
	r.mu.RLock()
	room := m.room
	r.mu.RUnlock()

	if room == nil {
		return domain.ErrNotJoined
	}

	room.mu.Lock()
	defer room.mu.Unlock()

	// m may have left between reading its binding and taking the room lock
	if _, ok := room.members[m]; !ok {
		return domain.ErrNotJoined
	}

	room.applyLocked(m, action, raw)
	return nil
}

// Leave removes m from its room. A room left with no members is destroyed
// together with its state.
func (r *Registry) Leave(m *Member) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(m)
}

func (r *Registry) leaveLocked(m *Member) {
	room := m.room
	if room == nil {
		return
	}
	m.room = nil

	room.mu.Lock()
	delete(room.members, m)
	remaining := len(room.members)
	room.mu.Unlock()

	r.logger.Info("member left", "boardId", room.id, "connId", m.id, "remaining", remaining)

	if remaining == 0 && r.rooms[room.id] == room {
		delete(r.rooms, room.id)
		r.logger.Info("board destroyed", "boardId", room.id)
	}
}

// BoardOf returns the board m is currently bound to, or ""
func (r *Registry) BoardOf(m *Member) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m.room == nil {
		return ""
	}
	return m.room.id
}

// Room returns the info of a live room
func (r *Registry) Room(boardID string) (RoomInfo, bool) {
	r.mu.RLock()
	room, ok := r.rooms[boardID]
	r.mu.RUnlock()

	if !ok {
		return RoomInfo{}, false
	}
	return room.Info(), true
}

// BoardCount returns the number of live rooms
func (r *Registry) BoardCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// MemberCount returns the number of joined connections across all rooms
func (r *Registry) MemberCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, room := range r.rooms {
		room.mu.Lock()
		total += len(room.members)
		room.mu.Unlock()
	}
	return total
}

// NewBoardID generates a random board id that no live room uses
func (r *Registry) NewBoardID(length int) (string, error) {
	for attempts := 0; attempts < 10; attempts++ {
		id, err := randomBoardID(length)
		if err != nil {
			return "", err
		}

		r.mu.RLock()
		_, exists := r.rooms[id]
		r.mu.RUnlock()

		if !exists {
			return id, nil
		}
	}

	return "", fmt.Errorf("failed to generate unique board id")
}

// Close disconnects every member and drops all rooms
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.closed = true

	for id, room := range r.rooms {
		room.mu.Lock()
		for m := range room.members {
			m.room = nil
			if err := m.peer.Close(); err != nil {
				r.logger.Debug("close member", "boardId", id, "connId", m.id, "error", err)
			}
		}
		room.members = make(map[*Member]struct{})
		room.mu.Unlock()
	}
	r.rooms = make(map[string]*Room)
}

func randomBoardID(length int) (string, error) {
	b := make([]byte, length)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	id := make([]byte, length)
	for i := range id {
		id[i] = BoardIDChars[int(b[i])%len(BoardIDChars)]
	}
	return string(id), nil
}
