package session

import (
	"github.com/xtding233/coinmerge/internal/body"
	"github.com/xtding233/coinmerge/internal/merge"
	"github.com/xtding233/coinmerge/internal/physics"
)

// Tick runs one frame in fixed order: (1) queued input, (2) physics step,
// (3) collision resolution, (4) session updates through the resolver sink.
// Outside Playing it only discards collisions and reports false.
func (s *Session) Tick(dt float64) bool {
	if s.phase != Playing {
		s.pending = nil
		return false
	}

	s.applyInput()
	s.port.Step(dt)

	batch := s.pending
	s.pending = nil
	if len(batch) == 0 {
		return true
	}
	res := s.resolver.Resolve(batch, sink{s})
	if res.Stale > 0 {
		s.log.Printf("session: dropped %d stale collision pairs", res.Stale)
	}
	return true
}

// Resolve feeds one collision batch straight to the resolver, for hosts
// whose engine hands batches over instead of going through Step.
func (s *Session) Resolve(batch merge.Batch) merge.Result {
	if s.phase != Playing {
		return merge.Result{}
	}
	return s.resolver.Resolve(batch, sink{s})
}

func (s *Session) applyInput() {
	if s.previewMove != nil {
		x := *s.previewMove
		s.previewMove = nil
		r := s.spawn.NextRank()
		cx := s.spawn.ClampHorizontal(x, s.opts.ContainerWidth, r.Radius)
		s.spawn.SetTarget(cx)
		s.port.SetBodyPosition(s.preview, physics.Vec2{X: cx, Y: s.opts.PreviewY})
	}

	drops := s.drops
	s.drops = nil
	for _, d := range drops {
		s.applyDrop(d)
	}
}

func (s *Session) applyDrop(d drop) {
	r := s.spawn.NextRank()
	pos := physics.Vec2{
		X: s.spawn.ClampHorizontal(d.x, s.opts.ContainerWidth, r.Radius),
		Y: s.spawn.PlacementY(d.y, s.opts.ContainerHeight, r.Radius),
	}
	h := s.port.CreateDynamicBody(r.Radius, pos, s.material())
	s.bodies.Tag(h, body.Piece(r.Index))
	s.spawn.Advance()
	s.placePreview()
}
