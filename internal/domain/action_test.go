package domain_test

import (
	"reflect"
	"testing"

	"poemboard/internal/domain"
)

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

func word(id string, x, y float64) domain.Word {
	return domain.Word{ID: id, Text: id, XPercent: x, YPercent: y}
}

func board() domain.Words {
	return domain.Words{word("w1", 10, 10), word("w2", 20, 20), word("w3", 30, 30)}
}

func TestApplySetStateAndReset(t *testing.T) {
	s := domain.Apply(board(), domain.SetState{Words: domain.Words{word("x", 1, 1)}})
	eq(t, s, domain.Words{word("x", 1, 1)})

	s = domain.Apply(s, domain.Reset{})
	eq(t, s, domain.Words{})
}

func TestApplyAddPreservesOrder(t *testing.T) {
	s := domain.Apply(nil, domain.AddWord{Word: word("a", 0, 0)})
	s = domain.Apply(s, domain.AddWords{Words: domain.Words{word("b", 0, 0), word("c", 0, 0)}})

	ids := make([]string, 0, len(s))
	for _, w := range s {
		ids = append(ids, w.ID)
	}
	eq(t, ids, []string{"a", "b", "c"})
}

func TestApplyMoveAndDelete(t *testing.T) {
	s := domain.Apply(board(), domain.MoveWord{ID: "w2", XPercent: 5, YPercent: 6})
	eq(t, s, domain.Words{word("w1", 10, 10), word("w2", 5, 6), word("w3", 30, 30)})

	s = domain.Apply(s, domain.DeleteWord{ID: "w1"})
	eq(t, s, domain.Words{word("w2", 5, 6), word("w3", 30, 30)})
}

func TestApplyUnknownIDIsNoOp(t *testing.T) {
	s := board()
	eq(t, domain.Apply(s, domain.MoveWord{ID: "nope", XPercent: 1, YPercent: 1}), s)
	eq(t, domain.Apply(s, domain.DeleteWord{ID: "nope"}), s)
}

func TestApplyDeleteThenMove(t *testing.T) {
	s := domain.Apply(board(), domain.DeleteWord{ID: "w2"})
	after := domain.Apply(s, domain.MoveWord{ID: "w2", XPercent: 5, YPercent: 5})

	eq(t, after, s)
	eq(t, after.Contains("w2"), false)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	in := board()
	snapshot := in.Clone()

	actions := []domain.Action{
		domain.AddWord{Word: word("w4", 0, 0)},
		domain.AddWords{Words: domain.Words{word("w5", 0, 0)}},
		domain.MoveWord{ID: "w1", XPercent: 99, YPercent: 99},
		domain.DeleteWord{ID: "w3"},
		domain.Reset{},
		domain.SetState{Words: domain.Words{}},
	}
	for _, a := range actions {
		first := domain.Apply(in, a)
		second := domain.Apply(in, a)
		eq(t, first, second)
		eq(t, in, snapshot)
	}
}

func TestApplyAddDoesNotShareBackingArray(t *testing.T) {
	in := make(domain.Words, 1, 4)
	in[0] = word("w1", 0, 0)

	a := domain.Apply(in, domain.AddWord{Word: word("a", 0, 0)})
	b := domain.Apply(in, domain.AddWord{Word: word("b", 0, 0)})

	eq(t, a[1].ID, "a")
	eq(t, b[1].ID, "b")
}

func TestReplicasConverge(t *testing.T) {
	snapshot := board()
	seq := []domain.Action{
		domain.AddWord{Word: word("w4", 40, 40)},
		domain.MoveWord{ID: "w1", XPercent: 1, YPercent: 2},
		domain.DeleteWord{ID: "w3"},
		domain.AddWords{Words: domain.Words{word("w5", 50, 50), word("w6", 60, 60)}},
		domain.MoveWord{ID: "w6", XPercent: 0, YPercent: 100},
	}

	a := domain.Apply(nil, domain.SetState{Words: snapshot})
	b := domain.Apply(domain.Words{word("stale", 0, 0)}, domain.SetState{Words: snapshot})
	for _, act := range seq {
		a = domain.Apply(a, act)
		b = domain.Apply(b, act)
	}
	eq(t, a, b)
}

func TestClampPercent(t *testing.T) {
	eq(t, domain.ClampPercent(-4), 0.0)
	eq(t, domain.ClampPercent(42.5), 42.5)
	eq(t, domain.ClampPercent(180), 100.0)
}
