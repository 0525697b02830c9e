// Package merge turns raw collision-start batches into authoritative merges.
package merge

import (
	"github.com/xtding233/coinmerge/internal/body"
	"github.com/xtding233/coinmerge/internal/physics"
	"github.com/xtding233/coinmerge/internal/rank"
	"github.com/xtding233/coinmerge/internal/rng"
)

// Batch is one tick's collision-start pairs in delivery order.
type Batch []physics.CollisionPair

// MergeResolved reports one accepted merge.
type MergeResolved struct {
	Consumed   rank.Rank
	Produced   rank.Rank
	ScoreDelta int
	Handle     physics.BodyHandle // the produced piece
	Position   physics.Vec2
}

// TerminalReached reports the first merge in a batch that produced the terminal rank.
type TerminalReached struct {
	Rank     rank.Rank
	Handle   physics.BodyHandle
	Position physics.Vec2
}

// Sink receives resolution events synchronously, in processing order.
type Sink interface {
	MergeResolved(MergeResolved)
	TerminalReached(TerminalReached)
}

// Impulse is the velocity given to a freshly merged piece: X is drawn from
// [-SpreadX, SpreadX), Y is fixed upward (negative).
type Impulse struct {
	SpreadX float64
	LiftY   float64
}

type Result struct {
	Accepted int
	Rejected int // not both pieces, ranks differ, or terminal
	Stale    int // a member was already consumed or gone
	Terminal bool
}

type Resolver struct {
	port     physics.Port
	bodies   *body.Registry
	catalog  *rank.Catalog
	rng      rng.RandomSource
	impulse  Impulse
	material physics.Material
}

func NewResolver(port physics.Port, bodies *body.Registry, catalog *rank.Catalog, src rng.RandomSource, impulse Impulse, m physics.Material) *Resolver {
	if src == nil {
		src = rng.Default()
	}
	return &Resolver{
		port:     port,
		bodies:   bodies,
		catalog:  catalog,
		rng:      src,
		impulse:  impulse,
		material: m,
	}
}

// Eligible reports whether a and b are live pieces of the same non-terminal rank.
func (r *Resolver) Eligible(a, b physics.BodyHandle) bool {
	ra, ok := r.bodies.PieceRank(a)
	if !ok {
		return false
	}
	rb, ok := r.bodies.PieceRank(b)
	if !ok || ra != rb {
		return false
	}
	return !r.catalog.IsTerminal(ra)
}

// Resolve applies every acceptable pair of batch in order. A body is
// consumed at most once per call; later pairs naming it are dropped.
func (r *Resolver) Resolve(batch Batch, sink Sink) Result {
	var res Result
	if len(batch) == 0 {
		return res
	}
	consumed := make(map[physics.BodyHandle]struct{}, 2*len(batch))
	for _, p := range batch {
		if p.A == p.B {
			res.Rejected++
			continue
		}
		_, goneA := consumed[p.A]
		_, goneB := consumed[p.B]
		if goneA || goneB {
			res.Stale++
			continue
		}
		if !r.Eligible(p.A, p.B) {
			if r.known(p.A) && r.known(p.B) {
				res.Rejected++
			} else {
				res.Stale++
			}
			continue
		}
		posA, okA := r.port.BodyPosition(p.A)
		posB, okB := r.port.BodyPosition(p.B)
		if !okA || !okB {
			res.Stale++
			continue
		}

		from, _ := r.bodies.PieceRank(p.A)
		consumedRank, err := r.catalog.At(from)
		if err != nil {
			res.Rejected++
			continue
		}
		produced, err := r.catalog.At(from + 1)
		if err != nil {
			res.Rejected++
			continue
		}

		consumed[p.A] = struct{}{}
		consumed[p.B] = struct{}{}
		r.port.RemoveBody(p.A)
		r.port.RemoveBody(p.B)
		r.bodies.Forget(p.A)
		r.bodies.Forget(p.B)

		mid := posA.Midpoint(posB)
		h := r.port.CreateDynamicBody(produced.Radius, mid, r.material)
		r.bodies.Tag(h, body.Piece(produced.Index))
		r.port.SetBodyVelocity(h, physics.Vec2{
			X: rng.Symmetric(r.rng, r.impulse.SpreadX),
			Y: -r.impulse.LiftY,
		})

		res.Accepted++
		if sink != nil {
			sink.MergeResolved(MergeResolved{
				Consumed:   consumedRank,
				Produced:   produced,
				ScoreDelta: produced.MergeScore,
				Handle:     h,
				Position:   mid,
			})
		}
		if produced.Terminal && !res.Terminal {
			res.Terminal = true
			if sink != nil {
				sink.TerminalReached(TerminalReached{Rank: produced, Handle: h, Position: mid})
			}
		}
	}
	return res
}

func (r *Resolver) known(h physics.BodyHandle) bool {
	_, ok := r.bodies.Role(h)
	return ok
}
