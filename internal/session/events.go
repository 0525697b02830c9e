package session

import (
	"slices"

	"github.com/xtding233/coinmerge/internal/merge"
)

type Phase uint8

const (
	Idle Phase = iota
	Playing
	GameOver
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Playing:
		return "playing"
	case GameOver:
		return "game_over"
	default:
		return "unknown"
	}
}

// Event is delivered to subscribers: MergeResolved, TerminalReached or PhaseChanged.
type Event interface {
	EventName() string
}

// MergeResolved carries the resolver's report and the score after applying it.
// Merges resolved after the terminal one in the same tick leave Score unchanged.
type MergeResolved struct {
	merge.MergeResolved
	Score int
}

type TerminalReached struct {
	merge.TerminalReached
	FinalScore int
	Best       int
}

type PhaseChanged struct {
	From Phase
	To   Phase
}

func (MergeResolved) EventName() string   { return "merge_resolved" }
func (TerminalReached) EventName() string { return "terminal_reached" }
func (PhaseChanged) EventName() string    { return "phase_changed" }

// Subscribe registers fn for every event. The returned func unsubscribes.
func (s *Session) Subscribe(fn func(Event)) (unsubscribe func()) {
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() { delete(s.subs, id) }
}

func (s *Session) emit(e Event) {
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	for _, id := range ids {
		if fn, ok := s.subs[id]; ok {
			fn(e)
		}
	}
}

// sink adapts the resolver's callbacks onto session transitions.
type sink struct{ s *Session }

func (k sink) MergeResolved(e merge.MergeResolved) { k.s.onMergeResolved(e) }

func (k sink) TerminalReached(e merge.TerminalReached) { k.s.onTerminalReached(e) }
