package app

import (
	"log/slog"
	"sync"
	"time"

	"poemboard/internal/domain"
)

// Peer is the outbound side of a connection
type Peer interface {
	// Send queues data without blocking and reports whether it was queued
	Send(data []byte) bool
	Close() error
}

// Member is a connection handle owned by the registry. It is bound to at
// most one room at a time.
type Member struct {
	id   string
	peer Peer
	room *Room // guarded by Registry.mu
}

// ID returns the connection id used in logs
func (m *Member) ID() string {
	return m.id
}

// Room is the server-side grouping of connections subscribed to one board,
// together with that board's authoritative state.
type Room struct {
	id     string
	logger *slog.Logger

	mu         sync.Mutex
	members    map[*Member]struct{}
	state      domain.Words
	createdAt  time.Time
	lastActive time.Time
}

// RoomInfo is a point-in-time view of a room
type RoomInfo struct {
	BoardID    string
	Members    int
	Words      int
	CreatedAt  time.Time
	LastActive time.Time
}

func newRoom(boardID string, logger *slog.Logger) *Room {
	now := time.Now()
	return &Room{
		id:         boardID,
		logger:     logger,
		members:    make(map[*Member]struct{}),
		state:      domain.Words{},
		createdAt:  now,
		lastActive: now,
	}
}

// ID returns the board id
func (rm *Room) ID() string {
	return rm.id
}

// Snapshot returns a copy of the room's current state
func (rm *Room) Snapshot() domain.Words {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return rm.state.Clone()
}

// Info returns the room's counters
func (rm *Room) Info() RoomInfo {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	return RoomInfo{
		BoardID:    rm.id,
		Members:    len(rm.members),
		Words:      len(rm.state),
		CreatedAt:  rm.createdAt,
		LastActive: rm.lastActive,
	}
}

// addLocked subscribes m and queues the snapshot and acknowledgement for it.
// Both are queued before the room lock is released so no relayed action can
// reach m ahead of its snapshot.
func (rm *Room) addLocked(m *Member) (domain.Words, error) {
	snapshot := rm.state.Clone()

	syncData, err := domain.Encode(domain.SyncState{Words: snapshot})
	if err != nil {
		return nil, err
	}
	joinedData, err := domain.Encode(domain.Joined{BoardID: rm.id})
	if err != nil {
		return nil, err
	}

	rm.members[m] = struct{}{}
	rm.lastActive = time.Now()

	if !m.peer.Send(syncData) || !m.peer.Send(joinedData) {
		rm.logger.Debug("join reply dropped", "boardId", rm.id, "connId", m.id)
	}

	return snapshot, nil
}

// applyLocked runs the reducer on the authoritative state and relays raw to
// every other member. Members whose queue is full or closed are skipped.
func (rm *Room) applyLocked(sender *Member, action domain.Action, raw []byte) {
	rm.state = domain.Apply(rm.state, action)
	rm.lastActive = time.Now()

	for m := range rm.members {
		if m == sender {
			continue
		}
		if !m.peer.Send(raw) {
			rm.logger.Debug("broadcast skipped slow member",
				"boardId", rm.id,
				"connId", m.id,
				"type", action.Type(),
			)
		}
	}
}
