package session

import (
	"context"
	"errors"
	"slices"

	"github.com/xtding233/coinmerge/internal/physics"
)

type fakeBody struct {
	static bool
	shape  physics.Shape
	pos    physics.Vec2
	vel    physics.Vec2
}

// fakePort delivers scripted collision batches on Step.
type fakePort struct {
	next    physics.BodyHandle
	bodies  map[physics.BodyHandle]*fakeBody
	subs    map[int]func([]physics.CollisionPair)
	nextSub int
	queued  [][]physics.CollisionPair
	steps   int
}

func newFakePort() *fakePort {
	return &fakePort{
		bodies: make(map[physics.BodyHandle]*fakeBody),
		subs:   make(map[int]func([]physics.CollisionPair)),
	}
}

func (p *fakePort) CreateStaticBody(shape physics.Shape, pos physics.Vec2) physics.BodyHandle {
	p.next++
	p.bodies[p.next] = &fakeBody{static: true, shape: shape, pos: pos}
	return p.next
}

func (p *fakePort) CreateDynamicBody(radius float64, pos physics.Vec2, _ physics.Material) physics.BodyHandle {
	p.next++
	p.bodies[p.next] = &fakeBody{shape: physics.Circle(radius), pos: pos}
	return p.next
}

func (p *fakePort) RemoveBody(h physics.BodyHandle) { delete(p.bodies, h) }

func (p *fakePort) SetBodyPosition(h physics.BodyHandle, pos physics.Vec2) {
	if b, ok := p.bodies[h]; ok {
		b.pos = pos
	}
}

func (p *fakePort) SetBodyVelocity(h physics.BodyHandle, v physics.Vec2) {
	if b, ok := p.bodies[h]; ok {
		b.vel = v
	}
}

func (p *fakePort) BodyPosition(h physics.BodyHandle) (physics.Vec2, bool) {
	b, ok := p.bodies[h]
	if !ok {
		return physics.Vec2{}, false
	}
	return b.pos, true
}

func (p *fakePort) SubscribeCollisionStart(fn func([]physics.CollisionPair)) func() {
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	return func() { delete(p.subs, id) }
}

func (p *fakePort) Step(float64) {
	p.steps++
	queued := p.queued
	p.queued = nil
	for _, batch := range queued {
		for _, fn := range p.subs {
			fn(slices.Clone(batch))
		}
	}
}

// collide queues pairs for the next Step.
func (p *fakePort) collide(pairs ...physics.CollisionPair) {
	p.queued = append(p.queued, pairs)
}

func (p *fakePort) dynamic() []physics.BodyHandle {
	var out []physics.BodyHandle
	for h, b := range p.bodies {
		if !b.static {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

type memStore struct {
	best    int
	loadErr error
	saveErr error
	saves   []int
}

func (m *memStore) Load(context.Context) (int, error) {
	if m.loadErr != nil {
		return 0, m.loadErr
	}
	return m.best, nil
}

func (m *memStore) Save(_ context.Context, best int) error {
	m.saves = append(m.saves, best)
	if m.saveErr != nil {
		return m.saveErr
	}
	if best > m.best {
		m.best = best
	}
	return nil
}

var errDisk = errors.New("disk unavailable")
