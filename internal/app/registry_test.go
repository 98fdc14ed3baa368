package app

import (
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"

	"poemboard/internal/domain"
)

type fakePeer struct {
	mu     sync.Mutex
	full   bool
	closed bool
	sent   []string
}

func (p *fakePeer) Send(data []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.full || p.closed {
		return false
	}
	p.sent = append(p.sent, string(data))
	return true
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePeer) messages() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.sent...)
}

func (p *fakePeer) reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sent = nil
}

func eq(t *testing.T, got, want interface{}) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func ok(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}

func newTestRegistry() *Registry {
	return NewRegistry(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func connect(r *Registry) (*Member, *fakePeer) {
	p := &fakePeer{}
	return r.Connect(p), p
}

func apply(t *testing.T, r *Registry, m *Member, raw string) error {
	t.Helper()
	msg, err := domain.DecodeClientMessage([]byte(raw))
	ok(t, err)
	a, isAction := msg.(domain.Action)
	if !isAction {
		t.Fatalf("%s is not a board action", raw)
	}
	return r.ApplyAndBroadcast(m, a, []byte(raw))
}

func TestJoinEmptyBoard(t *testing.T) {
	r := newTestRegistry()
	a, pa := connect(r)

	snapshot, err := r.Join(a, "room1")
	ok(t, err)
	eq(t, snapshot, domain.Words{})
	eq(t, pa.messages(), []string{
		`{"type":"SYNC_STATE","words":[]}`,
		`{"type":"JOINED","boardId":"room1"}`,
	})
	eq(t, r.BoardOf(a), "room1")
	eq(t, r.BoardCount(), 1)
}

func TestJoinRequiresBoardID(t *testing.T) {
	r := newTestRegistry()
	a, _ := connect(r)
	_, err := r.Join(a, "")
	eq(t, errors.Is(err, domain.ErrEmptyBoardID), true)
}

func TestTwoPeerSync(t *testing.T) {
	r := newTestRegistry()
	a, pa := connect(r)
	b, pb := connect(r)

	_, err := r.Join(a, "room1")
	ok(t, err)

	add := `{"type":"ADD_WORD","word":{"id":"w1","text":"sun","xPercent":50,"yPercent":50,"rotate":0}}`
	ok(t, apply(t, r, a, add))

	snapshot, err := r.Join(b, "room1")
	ok(t, err)
	eq(t, snapshot, domain.Words{{ID: "w1", Text: "sun", XPercent: 50, YPercent: 50}})
	eq(t, pb.messages()[0], `{"type":"SYNC_STATE","words":[{"id":"w1","text":"sun","xPercent":50,"yPercent":50,"rotate":0}]}`)

	pa.reset()
	pb.reset()
	move := `{"type":"MOVE_WORD","id":"w1","xPercent":10,"yPercent":10}`
	ok(t, apply(t, r, a, move))

	eq(t, pb.messages(), []string{move})
	eq(t, len(pa.messages()), 0)

	info, found := r.Room("room1")
	eq(t, found, true)
	eq(t, info.Members, 2)
	eq(t, info.Words, 1)
}

func TestBroadcastRelaysRawBytes(t *testing.T) {
	r := newTestRegistry()
	a, _ := connect(r)
	b, pb := connect(r)
	_, _ = r.Join(a, "room1")
	_, _ = r.Join(b, "room1")
	pb.reset()

	raw := `{"type":"RESET","extra":"kept"}`
	ok(t, apply(t, r, a, raw))
	eq(t, pb.messages(), []string{raw})
}

func TestActionBeforeJoinIsDropped(t *testing.T) {
	r := newTestRegistry()
	a, _ := connect(r)
	b, pb := connect(r)
	_, _ = r.Join(b, "room1")
	pb.reset()

	err := apply(t, r, a, `{"type":"RESET"}`)
	eq(t, errors.Is(err, domain.ErrNotJoined), true)
	eq(t, len(pb.messages()), 0)
}

func TestBroadcastSkipsFullMember(t *testing.T) {
	r := newTestRegistry()
	a, _ := connect(r)
	b, pb := connect(r)
	c, pc := connect(r)
	for _, m := range []*Member{a, b, c} {
		_, err := r.Join(m, "room1")
		ok(t, err)
	}
	pb.reset()
	pc.reset()

	pb.mu.Lock()
	pb.full = true
	pb.mu.Unlock()

	ok(t, apply(t, r, a, `{"type":"DELETE_WORD","id":"x"}`))
	eq(t, len(pb.messages()), 0)
	eq(t, pc.messages(), []string{`{"type":"DELETE_WORD","id":"x"}`})
}

func TestLastLeaveDestroysBoard(t *testing.T) {
	r := newTestRegistry()
	a, _ := connect(r)
	b, _ := connect(r)
	_, _ = r.Join(a, "room1")
	_, _ = r.Join(b, "room1")
	ok(t, apply(t, r, a, `{"type":"ADD_WORD","word":{"id":"w1","text":"moon"}}`))

	r.Leave(a)
	eq(t, r.BoardCount(), 1)
	r.Leave(b)
	eq(t, r.BoardCount(), 0)
	r.Leave(b)

	c, pc := connect(r)
	snapshot, err := r.Join(c, "room1")
	ok(t, err)
	eq(t, snapshot, domain.Words{})
	eq(t, pc.messages()[0], `{"type":"SYNC_STATE","words":[]}`)
}

func TestRejoinOtherBoardLeavesPrevious(t *testing.T) {
	r := newTestRegistry()
	a, _ := connect(r)
	b, pb := connect(r)
	_, _ = r.Join(a, "room1")
	_, _ = r.Join(b, "room1")

	_, err := r.Join(a, "room2")
	ok(t, err)
	eq(t, r.BoardOf(a), "room2")

	info, _ := r.Room("room1")
	eq(t, info.Members, 1)

	pb.reset()
	ok(t, apply(t, r, a, `{"type":"RESET"}`))
	eq(t, len(pb.messages()), 0)
}

func TestRejoinSameBoardKeepsState(t *testing.T) {
	r := newTestRegistry()
	a, pa := connect(r)
	_, _ = r.Join(a, "room1")
	ok(t, apply(t, r, a, `{"type":"ADD_WORD","word":{"id":"w1","text":"moon"}}`))

	pa.reset()
	snapshot, err := r.Join(a, "room1")
	ok(t, err)
	eq(t, len(snapshot), 1)
	eq(t, r.MemberCount(), 1)
}

func TestConcurrentAddsAreNotLost(t *testing.T) {
	r := newTestRegistry()
	const members, perMember = 8, 50

	ms := make([]*Member, members)
	for i := range ms {
		ms[i], _ = connect(r)
		_, err := r.Join(ms[i], "room1")
		ok(t, err)
	}

	var wg sync.WaitGroup
	for i, m := range ms {
		wg.Add(1)
		go func(i int, m *Member) {
			defer wg.Done()
			for j := 0; j < perMember; j++ {
				w := domain.Word{ID: string(rune('a'+i)) + "-" + string(rune('0'+j%10)) + "-" + string(rune('A'+j/10))}
				data, _ := domain.Encode(domain.AddWord{Word: w})
				_ = r.ApplyAndBroadcast(m, domain.AddWord{Word: w}, data)
			}
		}(i, m)
	}
	wg.Wait()

	info, _ := r.Room("room1")
	eq(t, info.Words, members*perMember)
}

func TestCloseDisconnectsMembers(t *testing.T) {
	r := newTestRegistry()
	a, pa := connect(r)
	_, _ = r.Join(a, "room1")

	r.Close()
	eq(t, pa.closed, true)
	eq(t, r.BoardCount(), 0)

	_, err := r.Join(a, "room1")
	eq(t, errors.Is(err, ErrClosed), true)
}

func TestNewBoardID(t *testing.T) {
	r := newTestRegistry()
	id, err := r.NewBoardID(8)
	ok(t, err)
	eq(t, len(id), 8)
	for _, c := range id {
		if !strings.ContainsRune(BoardIDChars, c) {
			t.Fatalf("unexpected char %q in %s", c, id)
		}
	}
}
