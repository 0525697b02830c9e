// Package body records what each physics handle stands for in the game.
// Roles are assigned when the core creates a body; nothing is inferred from shape.
package body

import (
	"slices"

	"github.com/xtding233/coinmerge/internal/physics"
)

type Kind uint8

const (
	KindPiece Kind = iota + 1
	KindWall
	KindPreview
)

func (k Kind) String() string {
	switch k {
	case KindPiece:
		return "piece"
	case KindWall:
		return "wall"
	case KindPreview:
		return "preview"
	default:
		return "unknown"
	}
}

// Role is the tagged variant stored per handle. Rank is meaningful for
// KindPiece and KindPreview only.
type Role struct {
	Kind Kind
	Rank int
}

func Piece(rank int) Role   { return Role{Kind: KindPiece, Rank: rank} }
func Wall() Role            { return Role{Kind: KindWall} }
func Preview(rank int) Role { return Role{Kind: KindPreview, Rank: rank} }

// Registry is the side-table from handle to role. Not safe for concurrent use.
type Registry struct {
	roles map[physics.BodyHandle]Role
}

func NewRegistry() *Registry {
	return &Registry{roles: make(map[physics.BodyHandle]Role)}
}

func (r *Registry) Tag(h physics.BodyHandle, role Role) { r.roles[h] = role }

func (r *Registry) Forget(h physics.BodyHandle) { delete(r.roles, h) }

func (r *Registry) Role(h physics.BodyHandle) (Role, bool) {
	role, ok := r.roles[h]
	return role, ok
}

// PieceRank reports the rank of a live piece. Walls, the preview marker and
// unknown handles report false.
func (r *Registry) PieceRank(h physics.BodyHandle) (int, bool) {
	role, ok := r.roles[h]
	if !ok || role.Kind != KindPiece {
		return 0, false
	}
	return role.Rank, true
}

// Pieces lists live piece handles in ascending order.
func (r *Registry) Pieces() []physics.BodyHandle {
	var out []physics.BodyHandle
	for h, role := range r.roles {
		if role.Kind == KindPiece {
			out = append(out, h)
		}
	}
	slices.Sort(out)
	return out
}

func (r *Registry) Len() int { return len(r.roles) }
