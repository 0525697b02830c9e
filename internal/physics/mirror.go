package physics

import (
	"math"
	"slices"

	"github.com/solarlune/resolv"
)

type MutationOp string

const (
	OpCreate   MutationOp = "create"
	OpRemove   MutationOp = "remove"
	OpMove     MutationOp = "move"
	OpVelocity MutationOp = "velocity"
)

// Mutation is one core-side change a remote simulator has to replay.
type Mutation struct {
	Op       MutationOp `json:"op"`
	Handle   BodyHandle `json:"handle"`
	Static   bool       `json:"static,omitempty"`
	Shape    *Shape     `json:"shape,omitempty"`
	Material *Material  `json:"material,omitempty"`
	Position Vec2       `json:"position"`
	Velocity Vec2       `json:"velocity"`
}

// MirrorConfig sizes the broad-phase grid. Padding extends the indexed area
// on every side so walls placed just outside the container are still found.
type MirrorConfig struct {
	Width    float64
	Height   float64
	Padding  float64
	CellSize int
	Gravity  Vec2
}

type mirrorBody struct {
	handle   BodyHandle
	obj      *resolv.Object
	shape    Shape
	static   bool
	pos      Vec2
	vel      Vec2
	material Material
}

// MirrorWorld is a Port for simulators living elsewhere (typically the
// client). It integrates nothing: positions arrive through Sync or
// SetBodyPosition, and Step reports the pairs that started touching since the
// previous Step. Core-side changes are journaled for the remote side.
type MirrorWorld struct {
	cfg      MirrorConfig
	space    *resolv.Space
	bodies   map[BodyHandle]*mirrorBody
	byObject map[*resolv.Object]BodyHandle
	touching map[CollisionPair]struct{}
	next     BodyHandle

	subs    map[int]func([]CollisionPair)
	nextSub int

	journal []Mutation
}

var _ Port = (*MirrorWorld)(nil)

func NewMirrorWorld(cfg MirrorConfig) *MirrorWorld {
	if cfg.CellSize <= 0 {
		cfg.CellSize = 32
	}
	if cfg.Padding < 0 {
		cfg.Padding = 0
	}
	return &MirrorWorld{
		cfg:      cfg,
		space:    newSpace(cfg),
		bodies:   make(map[BodyHandle]*mirrorBody),
		byObject: make(map[*resolv.Object]BodyHandle),
		touching: make(map[CollisionPair]struct{}),
		subs:     make(map[int]func([]CollisionPair)),
	}
}

// broadPhaseMargin grows every grid object so that bodies touching or
// overlapping by less than a pixel across a cell edge still share a cell.
// resolv drops the last pixel of an object's extent when assigning cells.
const broadPhaseMargin = 1

// newSpace sizes the grid to cover the padded area plus one spare cell per
// axis. resolv truncates the space size to whole cells.
func newSpace(cfg MirrorConfig) *resolv.Space {
	cell := float64(cfg.CellSize)
	cols := int(math.Ceil((cfg.Width+2*cfg.Padding)/cell)) + 1
	rows := int(math.Ceil((cfg.Height+2*cfg.Padding)/cell)) + 1
	return resolv.NewSpace(cols*cfg.CellSize, rows*cfg.CellSize, cfg.CellSize, cfg.CellSize)
}

// gridOrigin maps a body center to the top-left of its grid object.
func (w *MirrorWorld) gridOrigin(shape Shape, pos Vec2) (float64, float64) {
	hw, hh := halfExtents(shape)
	return pos.X - hw + w.cfg.Padding - broadPhaseMargin, pos.Y - hh + w.cfg.Padding - broadPhaseMargin
}

func (w *MirrorWorld) Gravity() Vec2 { return w.cfg.Gravity }

func (w *MirrorWorld) CreateStaticBody(shape Shape, pos Vec2) BodyHandle {
	b := w.add(shape, pos, true, Material{})
	s := shape
	w.journal = append(w.journal, Mutation{Op: OpCreate, Handle: b.handle, Static: true, Shape: &s, Position: pos})
	return b.handle
}

func (w *MirrorWorld) CreateDynamicBody(radius float64, pos Vec2, m Material) BodyHandle {
	b := w.add(Circle(radius), pos, false, m)
	s, mat := b.shape, m
	w.journal = append(w.journal, Mutation{Op: OpCreate, Handle: b.handle, Shape: &s, Material: &mat, Position: pos})
	return b.handle
}

func (w *MirrorWorld) add(shape Shape, pos Vec2, static bool, m Material) *mirrorBody {
	w.next++
	hw, hh := halfExtents(shape)
	x, y := w.gridOrigin(shape, pos)
	obj := resolv.NewObject(x, y, 2*hw+2*broadPhaseMargin, 2*hh+2*broadPhaseMargin)
	w.space.Add(obj)
	b := &mirrorBody{handle: w.next, obj: obj, shape: shape, static: static, pos: pos, material: m}
	w.bodies[b.handle] = b
	w.byObject[obj] = b.handle
	return b
}

func (w *MirrorWorld) RemoveBody(h BodyHandle) {
	b, ok := w.bodies[h]
	if !ok {
		return
	}
	w.space.Remove(b.obj)
	delete(w.byObject, b.obj)
	delete(w.bodies, h)
	for p := range w.touching {
		if p.A == h || p.B == h {
			delete(w.touching, p)
		}
	}
	w.journal = append(w.journal, Mutation{Op: OpRemove, Handle: h, Position: b.pos})
}

func (w *MirrorWorld) SetBodyPosition(h BodyHandle, pos Vec2) {
	if w.Sync(h, pos) {
		w.journal = append(w.journal, Mutation{Op: OpMove, Handle: h, Position: pos})
	}
}

// Sync moves a body to where the remote simulator reports it, without
// journaling the move back. It reports false for unknown handles.
func (w *MirrorWorld) Sync(h BodyHandle, pos Vec2) bool {
	b, ok := w.bodies[h]
	if !ok {
		return false
	}
	b.pos = pos
	b.obj.Position.X, b.obj.Position.Y = w.gridOrigin(b.shape, pos)
	b.obj.Update()
	return true
}

func (w *MirrorWorld) SetBodyVelocity(h BodyHandle, v Vec2) {
	b, ok := w.bodies[h]
	if !ok {
		return
	}
	b.vel = v
	w.journal = append(w.journal, Mutation{Op: OpVelocity, Handle: h, Position: b.pos, Velocity: v})
}

func (w *MirrorWorld) BodyPosition(h BodyHandle) (Vec2, bool) {
	b, ok := w.bodies[h]
	if !ok {
		return Vec2{}, false
	}
	return b.pos, true
}

// BodyVelocity returns the last velocity set on h.
func (w *MirrorWorld) BodyVelocity(h BodyHandle) (Vec2, bool) {
	b, ok := w.bodies[h]
	if !ok {
		return Vec2{}, false
	}
	return b.vel, true
}

func (w *MirrorWorld) Len() int { return len(w.bodies) }

func (w *MirrorWorld) SubscribeCollisionStart(fn func([]CollisionPair)) func() {
	id := w.nextSub
	w.nextSub++
	w.subs[id] = fn
	return func() { delete(w.subs, id) }
}

// Step recomputes contacts. dt is accepted for Port compatibility; the mirror
// does not advance time.
func (w *MirrorWorld) Step(dt float64) {
	handles := make([]BodyHandle, 0, len(w.bodies))
	for h := range w.bodies {
		handles = append(handles, h)
	}
	slices.Sort(handles)

	now := make(map[CollisionPair]struct{}, len(w.touching))
	var started []CollisionPair
	for _, h := range handles {
		b := w.bodies[h]
		if b.static {
			continue
		}
		col := b.obj.Check(0, 0)
		if col == nil {
			continue
		}
		others := make([]BodyHandle, 0, len(col.Objects))
		for _, o := range col.Objects {
			if oh, ok := w.byObject[o]; ok && oh != h {
				others = append(others, oh)
			}
		}
		slices.Sort(others)
		others = slices.Compact(others)
		for _, oh := range others {
			other := w.bodies[oh]
			// dynamic pairs are visited once, from the lower handle
			if !other.static && oh < h {
				continue
			}
			if !overlaps(b, other) {
				continue
			}
			key := pairKey(h, oh)
			now[key] = struct{}{}
			if _, was := w.touching[key]; !was {
				started = append(started, CollisionPair{A: h, B: oh})
			}
		}
	}
	w.touching = now
	if len(started) == 0 {
		return
	}

	ids := make([]int, 0, len(w.subs))
	for id := range w.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		w.subs[id](slices.Clone(started))
	}
}

// Drain returns and clears the mutation journal.
func (w *MirrorWorld) Drain() []Mutation {
	out := w.journal
	w.journal = nil
	return out
}

func pairKey(a, b BodyHandle) CollisionPair {
	if a > b {
		a, b = b, a
	}
	return CollisionPair{A: a, B: b}
}

func halfExtents(s Shape) (float64, float64) {
	if s.Kind == ShapeRect {
		return s.Width / 2, s.Height / 2
	}
	return s.Radius, s.Radius
}

// overlaps runs the exact test after the grid found a and b in shared cells.
// Touching counts.
func overlaps(a, b *mirrorBody) bool {
	switch {
	case a.shape.Kind == ShapeCircle && b.shape.Kind == ShapeCircle:
		return a.pos.Distance(b.pos) <= a.shape.Radius+b.shape.Radius
	case a.shape.Kind == ShapeCircle && b.shape.Kind == ShapeRect:
		return circleRect(a.pos, a.shape.Radius, b.pos, b.shape)
	case a.shape.Kind == ShapeRect && b.shape.Kind == ShapeCircle:
		return circleRect(b.pos, b.shape.Radius, a.pos, a.shape)
	default:
		return false
	}
}

func circleRect(c Vec2, r float64, center Vec2, rect Shape) bool {
	hw, hh := rect.Width/2, rect.Height/2
	nearest := Vec2{
		X: math.Max(center.X-hw, math.Min(c.X, center.X+hw)),
		Y: math.Max(center.Y-hh, math.Min(c.Y, center.Y+hh)),
	}
	return c.Distance(nearest) <= r
}
