package merge

import (
	"testing"

	"github.com/xtding233/coinmerge/internal/body"
	"github.com/xtding233/coinmerge/internal/physics"
	"github.com/xtding233/coinmerge/internal/rank"
	"github.com/xtding233/coinmerge/internal/rng"
)

type recorder struct {
	merges    []MergeResolved
	terminals []TerminalReached
	order     []string
}

func (r *recorder) MergeResolved(e MergeResolved) {
	r.merges = append(r.merges, e)
	r.order = append(r.order, "merge")
}

func (r *recorder) TerminalReached(e TerminalReached) {
	r.terminals = append(r.terminals, e)
	r.order = append(r.order, "terminal")
}

type fixture struct {
	world   *physics.MirrorWorld
	bodies  *body.Registry
	catalog *rank.Catalog
	res     *Resolver
}

func newFixture(src rng.RandomSource) *fixture {
	f := &fixture{
		world:   physics.NewMirrorWorld(physics.MirrorConfig{Width: 400, Height: 600, Padding: 48, CellSize: 96}),
		bodies:  body.NewRegistry(),
		catalog: rank.Reference(),
	}
	if src == nil {
		src = rng.NewSequence(0.5)
	}
	f.res = NewResolver(f.world, f.bodies, f.catalog, src, Impulse{SpreadX: 2, LiftY: 3}, physics.Material{Restitution: 0.3, Friction: 0.3})
	return f
}

func (f *fixture) piece(r int, x, y float64) physics.BodyHandle {
	rk, _ := f.catalog.At(r)
	h := f.world.CreateDynamicBody(rk.Radius, physics.Vec2{X: x, Y: y}, physics.Material{})
	f.bodies.Tag(h, body.Piece(r))
	return h
}

func TestMergeProducesNextRank(t *testing.T) {
	for r := 0; r < 8; r++ {
		f := newFixture(nil)
		a := f.piece(r, 100, 300)
		b := f.piece(r, 140, 300)
		rec := &recorder{}
		res := f.res.Resolve(Batch{{A: a, B: b}}, rec)
		if res.Accepted != 1 || len(rec.merges) != 1 {
			t.Fatalf("rank %d: result %+v merges %d", r, res, len(rec.merges))
		}
		m := rec.merges[0]
		if m.Produced.Index != m.Consumed.Index+1 {
			t.Fatalf("produced %d from %d", m.Produced.Index, m.Consumed.Index)
		}
		if m.Produced.Index > f.catalog.Len()-1 {
			t.Fatalf("produced rank beyond table: %d", m.Produced.Index)
		}
		if m.ScoreDelta != m.Produced.MergeScore {
			t.Fatalf("score delta %d, want %d", m.ScoreDelta, m.Produced.MergeScore)
		}
		if m.Position != (physics.Vec2{X: 120, Y: 300}) {
			t.Fatalf("merged at %+v, want midpoint", m.Position)
		}
		if _, ok := f.world.BodyPosition(a); ok {
			t.Fatalf("consumed body a still in world")
		}
		if _, ok := f.world.BodyPosition(b); ok {
			t.Fatalf("consumed body b still in world")
		}
		if got, ok := f.bodies.PieceRank(m.Handle); !ok || got != r+1 {
			t.Fatalf("new piece tagged %d,%v", got, ok)
		}
		wantTerminal := r+1 == f.catalog.Len()-1
		if res.Terminal != wantTerminal || (len(rec.terminals) == 1) != wantTerminal {
			t.Fatalf("rank %d: terminal=%v events=%d", r, res.Terminal, len(rec.terminals))
		}
	}
}

func TestTerminalPieceNeverMerges(t *testing.T) {
	f := newFixture(nil)
	a := f.piece(8, 100, 300)
	b := f.piece(8, 150, 300)
	if f.res.Eligible(a, b) {
		t.Fatalf("terminal pair eligible")
	}
	rec := &recorder{}
	res := f.res.Resolve(Batch{{A: a, B: b}, {A: b, B: a}}, rec)
	if res.Accepted != 0 || res.Rejected != 2 || len(rec.merges) != 0 {
		t.Fatalf("terminal pair merged: %+v", res)
	}
	if _, ok := f.world.BodyPosition(a); !ok {
		t.Fatalf("terminal piece removed")
	}
}

func TestRejectsMixedRanksWallsAndPreview(t *testing.T) {
	f := newFixture(nil)
	a := f.piece(0, 100, 300)
	b := f.piece(1, 140, 300)
	wall := f.world.CreateStaticBody(physics.Rect(24, 600), physics.Vec2{X: -12, Y: 300})
	f.bodies.Tag(wall, body.Wall())
	preview := f.world.CreateStaticBody(physics.Circle(35), physics.Vec2{X: 100, Y: 56})
	f.bodies.Tag(preview, body.Preview(0))

	rec := &recorder{}
	res := f.res.Resolve(Batch{{A: a, B: b}, {A: a, B: wall}, {A: preview, B: a}}, rec)
	if res.Accepted != 0 || res.Rejected != 3 {
		t.Fatalf("result %+v", res)
	}
	if len(rec.merges) != 0 {
		t.Fatalf("unexpected merges %+v", rec.merges)
	}
}

func TestFirstPairClaimsShared(t *testing.T) {
	f := newFixture(nil)
	a := f.piece(2, 100, 300)
	b := f.piece(2, 150, 300)
	c := f.piece(2, 200, 300)

	rec := &recorder{}
	res := f.res.Resolve(Batch{{A: a, B: b}, {A: b, B: c}, {A: a, B: c}}, rec)
	if res.Accepted != 1 || res.Stale != 2 {
		t.Fatalf("result %+v", res)
	}
	if len(rec.merges) != 1 {
		t.Fatalf("merges = %d", len(rec.merges))
	}
	if rk, ok := f.bodies.PieceRank(c); !ok || rk != 2 {
		t.Fatalf("C should survive unmerged, got %d,%v", rk, ok)
	}
	if _, ok := f.world.BodyPosition(c); !ok {
		t.Fatalf("C removed from world")
	}
	if rec.merges[0].Position != (physics.Vec2{X: 125, Y: 300}) {
		t.Fatalf("merge did not consume A and B: %+v", rec.merges[0].Position)
	}
}

func TestMergedPieceCanMergeNextTick(t *testing.T) {
	f := newFixture(nil)
	a := f.piece(0, 100, 300)
	b := f.piece(0, 140, 300)
	rec := &recorder{}
	f.res.Resolve(Batch{{A: a, B: b}}, rec)
	first := rec.merges[0].Handle

	// a merged piece in the same batch is a new handle the batch never names,
	// so it can only merge in a later batch
	other := f.piece(1, 160, 300)
	f.res.Resolve(Batch{{A: first, B: other}}, rec)
	if len(rec.merges) != 2 || rec.merges[1].Produced.Index != 2 {
		t.Fatalf("merges = %+v", rec.merges)
	}
}

func TestImpulseUsesSource(t *testing.T) {
	f := newFixture(rng.NewSequence(0.75))
	a := f.piece(0, 100, 300)
	b := f.piece(0, 140, 300)
	rec := &recorder{}
	f.res.Resolve(Batch{{A: a, B: b}}, rec)

	v, ok := f.world.BodyVelocity(rec.merges[0].Handle)
	if !ok {
		t.Fatalf("merged piece has no velocity")
	}
	if v.X != 1 || v.Y != -3 {
		t.Fatalf("velocity = %+v, want {1 -3}", v)
	}
}

func TestTerminalReachedOncePerBatch(t *testing.T) {
	f := newFixture(nil)
	a := f.piece(7, 100, 300)
	b := f.piece(7, 150, 300)
	c := f.piece(7, 250, 400)
	d := f.piece(7, 300, 400)
	e := f.piece(0, 50, 500)
	g := f.piece(0, 80, 500)

	rec := &recorder{}
	res := f.res.Resolve(Batch{{A: a, B: b}, {A: c, B: d}, {A: e, B: g}}, rec)
	if res.Accepted != 3 {
		t.Fatalf("remaining pairs not processed: %+v", res)
	}
	if len(rec.terminals) != 1 {
		t.Fatalf("terminal events = %d", len(rec.terminals))
	}
	want := []string{"merge", "terminal", "merge", "merge"}
	if len(rec.order) != len(want) {
		t.Fatalf("order = %v", rec.order)
	}
	for i := range want {
		if rec.order[i] != want[i] {
			t.Fatalf("order = %v, want %v", rec.order, want)
		}
	}
}

func TestStaleHandles(t *testing.T) {
	f := newFixture(nil)
	a := f.piece(0, 100, 300)
	b := f.piece(0, 140, 300)
	f.world.RemoveBody(b)
	f.bodies.Forget(b)

	rec := &recorder{}
	res := f.res.Resolve(Batch{{A: a, B: b}, {A: a, B: 999}}, rec)
	if res.Accepted != 0 || res.Stale != 2 {
		t.Fatalf("result %+v", res)
	}
	if res := f.res.Resolve(nil, rec); res != (Result{}) {
		t.Fatalf("empty batch result %+v", res)
	}
}

func TestNilSink(t *testing.T) {
	f := newFixture(nil)
	a := f.piece(7, 100, 300)
	b := f.piece(7, 140, 300)
	res := f.res.Resolve(Batch{{A: a, B: b}}, nil)
	if res.Accepted != 1 || !res.Terminal {
		t.Fatalf("result %+v", res)
	}
}
