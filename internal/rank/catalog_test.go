package rank

import (
	"errors"
	"testing"
)

func TestReferenceTable(t *testing.T) {
	c := Reference()
	if c.Len() != 9 {
		t.Fatalf("want 9 ranks, got %d", c.Len())
	}
	if c.MaxRadius() != 86 {
		t.Fatalf("max radius = %f, want 86", c.MaxRadius())
	}
	for i := 0; i < c.Len(); i++ {
		r, err := c.At(i)
		if err != nil {
			t.Fatal(err)
		}
		if r.Index != i {
			t.Fatalf("rank %d has index %d", i, r.Index)
		}
		if r.Terminal != (i == 8) || c.IsTerminal(i) != (i == 8) {
			t.Fatalf("terminal flag wrong at %d", i)
		}
	}
}

func TestAtOutOfRange(t *testing.T) {
	c := Reference()
	for _, i := range []int{-1, 9, 100} {
		if _, err := c.At(i); !errors.Is(err, ErrOutOfRange) {
			t.Fatalf("At(%d) err=%v, want ErrOutOfRange", i, err)
		}
		if c.IsTerminal(i) {
			t.Fatalf("IsTerminal(%d) should be false", i)
		}
	}
}

func TestNewValidates(t *testing.T) {
	if _, err := New(nil); !errors.Is(err, ErrEmptyTable) {
		t.Fatalf("empty table err=%v", err)
	}
	if _, err := New([]Rank{{Radius: 0}}); !errors.Is(err, ErrInvalidRank) {
		t.Fatalf("zero radius err=%v", err)
	}
	if _, err := New([]Rank{{Radius: 3, MergeScore: -1}}); !errors.Is(err, ErrInvalidRank) {
		t.Fatalf("negative score err=%v", err)
	}
}

func TestNewOverridesIndexAndTerminal(t *testing.T) {
	c, err := New([]Rank{
		{Index: 5, Radius: 1, Terminal: true},
		{Index: 9, Radius: 2},
	})
	if err != nil {
		t.Fatal(err)
	}
	first, _ := c.At(0)
	last, _ := c.At(1)
	if first.Index != 0 || first.Terminal {
		t.Fatalf("first rank = %+v", first)
	}
	if last.Index != 1 || !last.Terminal {
		t.Fatalf("last rank = %+v", last)
	}
}

func TestRanksIsCopy(t *testing.T) {
	c := Reference()
	rs := c.Ranks()
	rs[0].Radius = 999
	r, _ := c.At(0)
	if r.Radius == 999 {
		t.Fatalf("catalog mutated through Ranks()")
	}
}
