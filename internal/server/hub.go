// Package server hosts sessions for remote clients over HTTP and gRPC. Each
// session runs against a MirrorWorld: the client simulates, reports
// positions on tick, and replays the journaled core-side mutations.
package server

import (
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xtding233/coinmerge/internal/body"
	"github.com/xtding233/coinmerge/internal/config"
	"github.com/xtding233/coinmerge/internal/physics"
	"github.com/xtding233/coinmerge/internal/rng"
	"github.com/xtding233/coinmerge/internal/score"
	"github.com/xtding233/coinmerge/internal/session"
)

const defaultCellSize = 64

var (
	ErrNotFound   = errors.New("session not found")
	ErrBadRequest = errors.New("bad request")
)

// StoreFor returns the best-score store of a profile. It may return nil.
type StoreFor func(profile string) score.Store

// HubOptions wires a Hub. Only Profiles is required.
type HubOptions struct {
	Profiles config.Resolver
	Stores   StoreFor
	Locale   language.Tag
	Logger   *log.Logger
	// NewRandom returns the source of one new session; nil means crypto.
	NewRandom func() rng.RandomSource
}

// Hub owns live sessions keyed by uuid. Calls on one session are
// serialized; calls on different sessions run in parallel.
type Hub struct {
	opts    HubOptions
	printer *message.Printer

	mu       sync.RWMutex
	sessions map[string]*entry
}

type entry struct {
	mu      sync.Mutex
	id      string
	profile string
	sess    *session.Session
	world   *physics.MirrorWorld
	events  []session.Event
}

func NewHub(opts HubOptions) *Hub {
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	if opts.Locale == language.Und {
		opts.Locale = language.Korean
	}
	return &Hub{
		opts:     opts,
		printer:  message.NewPrinter(opts.Locale),
		sessions: make(map[string]*entry),
	}
}

// TickRequest carries the client's simulated positions and the frame time.
type TickRequest struct {
	DT        float64        `json:"dt"`
	Positions []BodyPosition `json:"positions,omitempty"`
}

type BodyPosition struct {
	Handle physics.BodyHandle `json:"handle"`
	X      float64            `json:"x"`
	Y      float64            `json:"y"`
}

// Create builds a session for profile ("" means the default profile).
func (h *Hub) Create(profile string) (Snapshot, error) {
	if h.opts.Profiles == nil {
		return Snapshot{}, fmt.Errorf("%w: no profile resolver", session.ErrConfiguration)
	}
	if profile == "" {
		profile = config.DefaultProfile
	}
	_, opts, err := h.opts.Profiles.Resolve(profile)
	if err != nil {
		return Snapshot{}, err
	}

	world := physics.NewMirrorWorld(physics.MirrorConfig{
		Width:    opts.ContainerWidth,
		Height:   opts.ContainerHeight,
		Padding:  2 * opts.WallThickness,
		CellSize: defaultCellSize,
		Gravity:  physics.Vec2{Y: opts.GravityY},
	})
	deps := session.Deps{Port: world, Logger: h.opts.Logger}
	if h.opts.Stores != nil {
		deps.Store = h.opts.Stores(profile)
	}
	if h.opts.NewRandom != nil {
		deps.Random = h.opts.NewRandom()
	}
	sess, err := session.New(opts, deps)
	if err != nil {
		return Snapshot{}, err
	}

	e := &entry{id: uuid.NewString(), profile: profile, sess: sess, world: world}
	sess.Subscribe(func(ev session.Event) { e.events = append(e.events, ev) })

	h.mu.Lock()
	h.sessions[e.id] = e
	h.mu.Unlock()
	h.opts.Logger.Printf("server: session %s created (profile %s)", e.id, profile)

	e.mu.Lock()
	defer e.mu.Unlock()
	return h.snapshot(e, true), nil
}

func (h *Hub) lookup(id string) (*entry, error) {
	h.mu.RLock()
	e, ok := h.sessions[id]
	h.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return e, nil
}

// with runs fn under the session lock and returns the resulting snapshot.
// drain hands pending events and mutations to the caller.
func (h *Hub) with(id string, drain bool, fn func(*entry) error) (Snapshot, error) {
	e, err := h.lookup(id)
	if err != nil {
		return Snapshot{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if fn != nil {
		if err := fn(e); err != nil {
			return Snapshot{}, err
		}
	}
	return h.snapshot(e, drain), nil
}

func (h *Hub) Get(id string) (Snapshot, error) {
	return h.with(id, false, nil)
}

// Start reports ok=false when the session is over and needs Restart.
func (h *Hub) Start(id string) (Snapshot, bool, error) {
	var ok bool
	snap, err := h.with(id, true, func(e *entry) error {
		ok = e.sess.Start()
		return nil
	})
	return snap, ok, err
}

func (h *Hub) Restart(id string) (Snapshot, error) {
	return h.with(id, true, func(e *entry) error {
		e.sess.Restart()
		return nil
	})
}

func (h *Hub) Preview(id string, x float64) (Snapshot, error) {
	if !finite(x) {
		return Snapshot{}, fmt.Errorf("%w: x must be finite", ErrBadRequest)
	}
	return h.with(id, false, func(e *entry) error {
		e.sess.UpdatePreviewPosition(x)
		return nil
	})
}

// Drop queues a drop at x, released from y when given.
func (h *Hub) Drop(id string, x float64, y *float64) (Snapshot, error) {
	if !finite(x) || (y != nil && !finite(*y)) {
		return Snapshot{}, fmt.Errorf("%w: drop position must be finite", ErrBadRequest)
	}
	return h.with(id, false, func(e *entry) error {
		if y != nil {
			e.sess.RequestDropAt(x, *y)
		} else {
			e.sess.RequestDrop(x)
		}
		return nil
	})
}

// Tick syncs reported positions into the mirror and runs one session tick.
// Only pieces follow the client; reports for walls, the preview marker or
// unknown handles are ignored.
func (h *Hub) Tick(id string, req TickRequest) (Snapshot, error) {
	if !finite(req.DT) || req.DT < 0 {
		return Snapshot{}, fmt.Errorf("%w: dt must be finite and >= 0", ErrBadRequest)
	}
	for _, p := range req.Positions {
		if !finite(p.X) || !finite(p.Y) {
			return Snapshot{}, fmt.Errorf("%w: position of body %d must be finite", ErrBadRequest, p.Handle)
		}
	}
	return h.with(id, true, func(e *entry) error {
		for _, p := range req.Positions {
			if role, ok := e.sess.Role(p.Handle); !ok || role.Kind != body.KindPiece {
				continue
			}
			e.world.Sync(p.Handle, physics.Vec2{X: p.X, Y: p.Y})
		}
		e.sess.Tick(req.DT)
		return nil
	})
}

// Delete drops the session. A running round is not folded into the best score.
func (h *Hub) Delete(id string) error {
	h.mu.Lock()
	e, ok := h.sessions[id]
	delete(h.sessions, id)
	h.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	e.mu.Lock()
	e.sess.Close()
	e.mu.Unlock()
	h.opts.Logger.Printf("server: session %s deleted", id)
	return nil
}

// IDs lists live sessions in lexical order.
func (h *Hub) IDs() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	ids := make([]string, 0, len(h.sessions))
	for id := range h.sessions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Close detaches every session.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := h.sessions
	h.sessions = make(map[string]*entry)
	h.mu.Unlock()
	for _, e := range sessions {
		e.mu.Lock()
		e.sess.Close()
		e.mu.Unlock()
	}
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
