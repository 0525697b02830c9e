// Package session runs one drop-and-merge board: the Idle/Playing/GameOver
// state machine, score keeping, and the fixed per-tick phase order.
package session

import (
	"context"
	"log"
	"time"

	"github.com/xtding233/coinmerge/internal/body"
	"github.com/xtding233/coinmerge/internal/merge"
	"github.com/xtding233/coinmerge/internal/physics"
	"github.com/xtding233/coinmerge/internal/rank"
	"github.com/xtding233/coinmerge/internal/rng"
	"github.com/xtding233/coinmerge/internal/score"
	"github.com/xtding233/coinmerge/internal/spawn"
)

const storeTimeout = 2 * time.Second

// Deps are the collaborators a session drives. Port is required; a nil Store
// keeps the best score in memory only.
type Deps struct {
	Port   physics.Port
	Store  score.Store
	Random rng.RandomSource
	Logger *log.Logger
}

type drop struct {
	x, y float64
}

// PieceView is a read-only snapshot of one live piece.
type PieceView struct {
	Handle   physics.BodyHandle
	Rank     rank.Rank
	Position physics.Vec2
}

// Session is single-threaded: every method must be called from the goroutine
// that drives Tick.
type Session struct {
	opts     Options
	catalog  *rank.Catalog
	port     physics.Port
	store    score.Store
	log      *log.Logger
	bodies   *body.Registry
	spawn    *spawn.Controller
	resolver *merge.Resolver

	phase Phase
	score int
	best  int

	walls       []physics.BodyHandle
	preview     physics.BodyHandle
	previewRank int

	drops       []drop
	previewMove *float64
	pending     merge.Batch
	unsubscribe func()

	subs    map[int]func(Event)
	nextSub int
}

// New validates opts, builds the walls and preview marker, and loads the
// best score. No session is returned on a configuration error.
func New(opts Options, deps Deps) (*Session, error) {
	opts = opts.withDefaults()
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if deps.Port == nil {
		return nil, ErrConfiguration
	}
	if deps.Random == nil {
		deps.Random = rng.Default()
	}
	if deps.Logger == nil {
		deps.Logger = log.Default()
	}

	s := &Session{
		opts:    opts,
		catalog: opts.Catalog,
		port:    deps.Port,
		store:   deps.Store,
		log:     deps.Logger,
		bodies:  body.NewRegistry(),
		spawn: spawn.New(opts.Catalog, spawn.Options{
			PoolSize:   opts.InitialRankPoolSize,
			Margin:     opts.Margin,
			DropMargin: opts.DropMargin,
		}, deps.Random),
		subs: make(map[int]func(Event)),
	}
	s.resolver = merge.NewResolver(s.port, s.bodies, s.catalog, deps.Random,
		merge.Impulse{SpreadX: opts.ImpulseX, LiftY: opts.ImpulseY},
		s.material())

	s.buildWalls()
	s.spawn.SetTarget(opts.ContainerWidth / 2)
	s.placePreview()
	s.unsubscribe = s.port.SubscribeCollisionStart(func(pairs []physics.CollisionPair) {
		s.pending = append(s.pending, pairs...)
	})
	s.best = s.loadBest()
	return s, nil
}

func (s *Session) material() physics.Material {
	return physics.Material{Restitution: s.opts.Restitution, Friction: s.opts.Friction}
}

// buildWalls places floor, left and right walls just outside the container.
func (s *Session) buildWalls() {
	w, h, t := s.opts.ContainerWidth, s.opts.ContainerHeight, s.opts.WallThickness
	walls := []struct {
		shape physics.Shape
		pos   physics.Vec2
	}{
		{physics.Rect(w+2*t, t), physics.Vec2{X: w / 2, Y: h + t/2}},
		{physics.Rect(t, h+2*t), physics.Vec2{X: -t / 2, Y: h / 2}},
		{physics.Rect(t, h+2*t), physics.Vec2{X: w + t/2, Y: h / 2}},
	}
	for _, wall := range walls {
		handle := s.port.CreateStaticBody(wall.shape, wall.pos)
		s.bodies.Tag(handle, body.Wall())
		s.walls = append(s.walls, handle)
	}
}

// placePreview (re)creates the marker when the next rank, and with it the
// radius, changed.
func (s *Session) placePreview() {
	next := s.spawn.NextRank()
	if s.preview != 0 && s.previewRank == next.Index {
		return
	}
	if s.preview != 0 {
		s.port.RemoveBody(s.preview)
		s.bodies.Forget(s.preview)
	}
	x := s.spawn.ClampHorizontal(s.spawn.Target(), s.opts.ContainerWidth, next.Radius)
	s.spawn.SetTarget(x)
	s.preview = s.port.CreateStaticBody(physics.Circle(next.Radius), physics.Vec2{X: x, Y: s.opts.PreviewY})
	s.previewRank = next.Index
	s.bodies.Tag(s.preview, body.Preview(next.Index))
}

func (s *Session) loadBest() int {
	if s.store == nil {
		return 0
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	best, err := s.store.Load(ctx)
	if err != nil {
		s.log.Printf("session: load best score: %v", err)
		return 0
	}
	if best < 0 {
		return 0
	}
	return best
}

func (s *Session) saveBest() {
	if s.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := s.store.Save(ctx, s.best); err != nil {
		s.log.Printf("session: save best score %d: %v", s.best, err)
	}
}

// Start begins a round from Idle, or abandons the running round and begins
// a new one. It is a no-op in GameOver, where only Restart applies.
func (s *Session) Start() bool {
	if s.phase == GameOver {
		return false
	}
	s.begin()
	return true
}

// Restart begins a fresh round from any phase.
func (s *Session) Restart() {
	s.begin()
}

func (s *Session) begin() {
	from := s.phase
	if from == Playing && s.score > s.best {
		s.best = s.score
		s.saveBest()
	}
	for _, h := range s.bodies.Pieces() {
		s.port.RemoveBody(h)
		s.bodies.Forget(h)
	}
	s.drops = nil
	s.pending = nil
	s.score = 0
	s.spawn.Reset()
	s.placePreview()
	s.phase = Playing
	s.emit(PhaseChanged{From: from, To: Playing})
}

// RequestDrop queues a drop of the next rank at x, released from the
// preview height. Applied at the start of the next tick; ignored unless Playing.
func (s *Session) RequestDrop(x float64) {
	s.RequestDropAt(x, s.opts.PreviewY)
}

// RequestDropAt is RequestDrop with an explicit release height.
func (s *Session) RequestDropAt(x, y float64) {
	if s.phase != Playing {
		return
	}
	s.drops = append(s.drops, drop{x: x, y: y})
}

// UpdatePreviewPosition queues a marker move for the next tick. Only the
// latest position per tick is applied.
func (s *Session) UpdatePreviewPosition(x float64) {
	s.previewMove = &x
}

func (s *Session) onMergeResolved(e merge.MergeResolved) {
	if s.phase == Playing {
		s.score += e.ScoreDelta
	}
	s.emit(MergeResolved{MergeResolved: e, Score: s.score})
}

func (s *Session) onTerminalReached(e merge.TerminalReached) {
	if s.phase != Playing {
		return
	}
	s.phase = GameOver
	if s.score > s.best {
		s.best = s.score
	}
	s.saveBest()
	s.log.Printf("session: terminal rank %q reached, score %d best %d", e.Rank.Label, s.score, s.best)
	s.emit(TerminalReached{TerminalReached: e, FinalScore: s.score, Best: s.best})
	s.emit(PhaseChanged{From: Playing, To: GameOver})
}

// Close detaches the session from the port's collision feed.
func (s *Session) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

func (s *Session) Score() int { return s.score }

func (s *Session) Best() int { return s.best }

func (s *Session) Phase() Phase { return s.phase }

func (s *Session) Options() Options { return s.opts }

func (s *Session) Catalog() *rank.Catalog { return s.catalog }

// PreviewRank is the rank the next drop will have.
func (s *Session) PreviewRank() rank.Rank { return s.spawn.NextRank() }

func (s *Session) PreviewPosition() physics.Vec2 {
	return physics.Vec2{X: s.spawn.Target(), Y: s.opts.PreviewY}
}

func (s *Session) PreviewHandle() physics.BodyHandle { return s.preview }

func (s *Session) Walls() []physics.BodyHandle {
	return append([]physics.BodyHandle(nil), s.walls...)
}

// Pieces lists live pieces ordered by handle.
func (s *Session) Pieces() []PieceView {
	handles := s.bodies.Pieces()
	out := make([]PieceView, 0, len(handles))
	for _, h := range handles {
		idx, _ := s.bodies.PieceRank(h)
		r, err := s.catalog.At(idx)
		if err != nil {
			continue
		}
		pos, _ := s.port.BodyPosition(h)
		out = append(out, PieceView{Handle: h, Rank: r, Position: pos})
	}
	return out
}

// Role exposes the side-table entry for h.
func (s *Session) Role(h physics.BodyHandle) (body.Role, bool) {
	return s.bodies.Role(h)
}
