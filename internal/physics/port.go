// Package physics defines the port the game core drives an external rigid-body
// simulator through, plus MirrorWorld, a contact-tracking adapter for
// simulators that run outside the process.
package physics

import "math"

// BodyHandle identifies one body inside a Port. Zero is never issued.
type BodyHandle uint64

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }
func (v Vec2) Sub(o Vec2) Vec2 { return Vec2{v.X - o.X, v.Y - o.Y} }
func (v Vec2) Scale(k float64) Vec2 { return Vec2{v.X * k, v.Y * k} }
func (v Vec2) Len() float64 { return math.Hypot(v.X, v.Y) }
func (v Vec2) Midpoint(o Vec2) Vec2 { return Vec2{(v.X + o.X) / 2, (v.Y + o.Y) / 2} }
func (v Vec2) Distance(o Vec2) float64 { return v.Sub(o).Len() }

type ShapeKind string

const (
	ShapeCircle ShapeKind = "circle"
	ShapeRect   ShapeKind = "rect"
)

// Shape describes a static body outline. Rect dimensions are full extents
// around the body position.
type Shape struct {
	Kind   ShapeKind `json:"kind"`
	Radius float64   `json:"radius,omitempty"`
	Width  float64   `json:"width,omitempty"`
	Height float64   `json:"height,omitempty"`
}

func Circle(radius float64) Shape { return Shape{Kind: ShapeCircle, Radius: radius} }

func Rect(width, height float64) Shape { return Shape{Kind: ShapeRect, Width: width, Height: height} }

type Material struct {
	Restitution float64 `json:"restitution"`
	Friction    float64 `json:"friction"`
}

// CollisionPair is one collision-start notification between two live bodies.
type CollisionPair struct {
	A BodyHandle `json:"a"`
	B BodyHandle `json:"b"`
}

// Port is the slice of a 2D physics engine the core needs. Implementations
// are driven from a single goroutine.
type Port interface {
	CreateStaticBody(shape Shape, pos Vec2) BodyHandle
	CreateDynamicBody(radius float64, pos Vec2, m Material) BodyHandle
	RemoveBody(h BodyHandle)
	SetBodyPosition(h BodyHandle, pos Vec2)
	SetBodyVelocity(h BodyHandle, v Vec2)
	// BodyPosition reports false for handles that were removed or never issued.
	BodyPosition(h BodyHandle) (Vec2, bool)
	// SubscribeCollisionStart registers fn for every non-empty batch of
	// collision-start pairs produced by Step. The returned func unsubscribes.
	SubscribeCollisionStart(fn func([]CollisionPair)) (cancel func())
	Step(dt float64)
}
