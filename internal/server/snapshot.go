package server

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/xtding233/coinmerge/internal/physics"
	"github.com/xtding233/coinmerge/internal/rank"
	"github.com/xtding233/coinmerge/internal/session"
)

func init() {
	for _, m := range []struct {
		tag         language.Tag
		score, best string
	}{
		{language.Korean, "점수 %d", "최고 점수 %d"},
		{language.English, "Score %d", "Best %d"},
	} {
		_ = message.SetString(m.tag, scoreFormat, m.score)
		_ = message.SetString(m.tag, bestFormat, m.best)
	}
}

const (
	scoreFormat = "Score %d"
	bestFormat  = "Best %d"
)

// Snapshot is the wire view of one session.
type Snapshot struct {
	ID        string             `json:"id"`
	Profile   string             `json:"profile"`
	Phase     string             `json:"phase"`
	Score     int                `json:"score"`
	Best      int                `json:"best"`
	ScoreText string             `json:"score_text"`
	BestText  string             `json:"best_text"`
	Container ContainerView      `json:"container"`
	Preview   PreviewView        `json:"preview"`
	Walls     []uint64           `json:"walls"`
	Pieces    []PieceView        `json:"pieces"`
	Events    []EventView        `json:"events,omitempty"`
	Mutations []physics.Mutation `json:"mutations,omitempty"`
}

type ContainerView struct {
	Width         float64 `json:"width"`
	Height        float64 `json:"height"`
	WallThickness float64 `json:"wall_thickness"`
	Gravity       float64 `json:"gravity"`
}

type RankView struct {
	Index    int     `json:"index"`
	Label    string  `json:"label"`
	Radius   float64 `json:"radius"`
	Color    string  `json:"color"`
	Score    int     `json:"score"`
	Terminal bool    `json:"terminal,omitempty"`
}

type PreviewView struct {
	Handle uint64       `json:"handle"`
	Rank   RankView     `json:"rank"`
	At     physics.Vec2 `json:"at"`
}

type PieceView struct {
	Handle uint64       `json:"handle"`
	Rank   RankView     `json:"rank"`
	At     physics.Vec2 `json:"at"`
}

// EventView flattens session events; Type selects which fields are set.
type EventView struct {
	Type       string        `json:"type"`
	Consumed   *RankView     `json:"consumed,omitempty"`
	Produced   *RankView     `json:"produced,omitempty"`
	ScoreDelta int           `json:"score_delta,omitempty"`
	Score      int           `json:"score,omitempty"`
	Handle     uint64        `json:"handle,omitempty"`
	At         *physics.Vec2 `json:"at,omitempty"`
	FinalScore int           `json:"final_score,omitempty"`
	Best       int           `json:"best,omitempty"`
	From       string        `json:"from,omitempty"`
	To         string        `json:"to,omitempty"`
}

func rankView(r rank.Rank) RankView {
	return RankView{
		Index:    r.Index,
		Label:    r.Label,
		Radius:   r.Radius,
		Color:    r.Color,
		Score:    r.MergeScore,
		Terminal: r.Terminal,
	}
}

func eventView(e session.Event) EventView {
	v := EventView{Type: e.EventName()}
	switch ev := e.(type) {
	case session.MergeResolved:
		consumed, produced := rankView(ev.Consumed), rankView(ev.Produced)
		at := ev.Position
		v.Consumed, v.Produced = &consumed, &produced
		v.ScoreDelta = ev.ScoreDelta
		v.Score = ev.Score
		v.Handle = uint64(ev.Handle)
		v.At = &at
	case session.TerminalReached:
		produced := rankView(ev.Rank)
		at := ev.Position
		v.Produced = &produced
		v.Handle = uint64(ev.Handle)
		v.At = &at
		v.FinalScore = ev.FinalScore
		v.Best = ev.Best
	case session.PhaseChanged:
		v.From = ev.From.String()
		v.To = ev.To.String()
	}
	return v
}

// snapshot must run under e.mu.
func (h *Hub) snapshot(e *entry, drain bool) Snapshot {
	s := e.sess
	opts := s.Options()
	snap := Snapshot{
		ID:        e.id,
		Profile:   e.profile,
		Phase:     s.Phase().String(),
		Score:     s.Score(),
		Best:      s.Best(),
		ScoreText: h.printer.Sprintf(scoreFormat, s.Score()),
		BestText:  h.printer.Sprintf(bestFormat, s.Best()),
		Container: ContainerView{
			Width:         opts.ContainerWidth,
			Height:        opts.ContainerHeight,
			WallThickness: opts.WallThickness,
			Gravity:       opts.GravityY,
		},
		Preview: PreviewView{
			Handle: uint64(s.PreviewHandle()),
			Rank:   rankView(s.PreviewRank()),
			At:     s.PreviewPosition(),
		},
		Pieces: []PieceView{},
	}
	for _, w := range s.Walls() {
		snap.Walls = append(snap.Walls, uint64(w))
	}
	for _, p := range s.Pieces() {
		snap.Pieces = append(snap.Pieces, PieceView{
			Handle: uint64(p.Handle),
			Rank:   rankView(p.Rank),
			At:     p.Position,
		})
	}
	if drain {
		for _, ev := range e.events {
			snap.Events = append(snap.Events, eventView(ev))
		}
		e.events = nil
		snap.Mutations = e.world.Drain()
	}
	return snap
}
