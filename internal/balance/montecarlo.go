// Package balance estimates how long a board takes to reach its terminal
// rank under perfect play.
package balance

import (
	"errors"
	"math"
	"sort"

	"github.com/xtding233/coinmerge/internal/rank"
	"github.com/xtding233/coinmerge/internal/rng"
	"github.com/xtding233/coinmerge/internal/spawn"
)

// TrialGoal selects what the simulation measures per trial.
type TrialGoal string

const (
	// Drops until the terminal rank first appears.
	GoalDropsToTerminal TrialGoal = "drops_to_terminal"
	// Score at the moment the terminal rank first appears.
	GoalScoreAtTerminal TrialGoal = "score_at_terminal"
	// Given a fixed budget of drops, the score reached.
	GoalFixedBudget TrialGoal = "fixed_budget"
)

const DefaultMaxDrops = 1 << 20

var (
	ErrNoCatalog      = errors.New("balance: catalog is required")
	ErrDropLimit      = errors.New("balance: drop limit reached before terminal rank")
	ErrUnknownGoal    = errors.New("balance: unknown trial goal")
	ErrBudgetRequired = errors.New("balance: fixed budget needs NumDrops > 0")
)

// SimParams describes the board for one simulation run.
type SimParams struct {
	Catalog  *rank.Catalog
	PoolSize int              // spawn pool; <=0 means spawn.DefaultPoolSize
	MaxDrops int              // per-trial safety cap; <=0 means DefaultMaxDrops
	Random   rng.RandomSource // nil means rng.Default()
}

// SimBudget controls the number of drops used in GoalFixedBudget.
type SimBudget struct {
	NumDrops int `json:"num_drops"`
}

// Stats summarizes simulation results.
type Stats struct {
	Mean   float64
	Var    float64
	StdDev float64
	P50    float64
	P90    float64
	P99    float64
	// Optional: raw samples if caller needs histograms/exports
	Samples []int `json:"-"`
}

// calcStats computes mean/variance/percentiles for integer samples.
func calcStats(xs []int) Stats {
	n := len(xs)
	if n == 0 {
		return Stats{}
	}
	var sum float64
	for _, v := range xs {
		sum += float64(v)
	}
	mean := sum / float64(n)

	// variance (population)
	var acc float64
	for _, v := range xs {
		d := float64(v) - mean
		acc += d * d
	}
	variance := acc / float64(n)

	cp := append([]int(nil), xs...)
	sort.Ints(cp)
	percentile := func(p float64) float64 {
		switch {
		case n == 1 || p <= 0:
			return float64(cp[0])
		case p >= 1:
			return float64(cp[n-1])
		}
		pos := p * float64(n-1)
		i := int(math.Floor(pos))
		f := pos - float64(i)
		if i+1 >= n {
			return float64(cp[i])
		}
		return float64(cp[i])*(1-f) + float64(cp[i+1])*f
	}

	return Stats{
		Mean:    mean,
		Var:     variance,
		StdDev:  math.Sqrt(variance),
		P50:     percentile(0.50),
		P90:     percentile(0.90),
		P99:     percentile(0.99),
		Samples: xs,
	}
}

// board is the perfect-play model: every drop lands on its twin if one is
// live, and merges cascade upward until no two pieces share a rank.
type board struct {
	catalog *rank.Catalog
	counts  []int
	score   int
	done    bool
}

func newBoard(c *rank.Catalog) *board {
	return &board{catalog: c, counts: make([]int, c.Len())}
}

func (b *board) drop(r int) {
	b.counts[r]++
	for !b.catalog.IsTerminal(r) && b.counts[r] >= 2 {
		b.counts[r] -= 2
		r++
		b.counts[r]++
		produced, _ := b.catalog.At(r)
		if !b.done {
			b.score += produced.MergeScore
		}
		if produced.Terminal {
			b.done = true
		}
	}
}

type trialResult struct {
	drops int
	score int
}

// simulateOne plays one board until the terminal rank appears, or for
// budget drops when budget > 0.
func simulateOne(p SimParams, src rng.RandomSource, budget int) (trialResult, error) {
	ctrl := spawn.New(p.Catalog, spawn.Options{PoolSize: p.PoolSize}, src)
	b := newBoard(p.Catalog)
	limit := p.MaxDrops
	if budget > 0 {
		limit = budget
	}
	for drops := 1; drops <= limit; drops++ {
		b.drop(ctrl.NextRank().Index)
		ctrl.Advance()
		if budget <= 0 && b.done {
			return trialResult{drops: drops, score: b.score}, nil
		}
	}
	if budget > 0 {
		return trialResult{drops: limit, score: b.score}, nil
	}
	return trialResult{}, ErrDropLimit
}

// RunMonteCarlo repeats trials and returns summary stats.
// goal determines what metric is recorded per trial.
func RunMonteCarlo(p SimParams, goal TrialGoal, trials int, budget *SimBudget) (Stats, error) {
	if p.Catalog == nil {
		return Stats{}, ErrNoCatalog
	}
	if trials <= 0 {
		return Stats{}, nil
	}
	if p.PoolSize <= 0 {
		p.PoolSize = spawn.DefaultPoolSize
	}
	if p.MaxDrops <= 0 {
		p.MaxDrops = DefaultMaxDrops
	}
	src := p.Random
	if src == nil {
		src = rng.Default()
	}

	n := 0
	switch goal {
	case GoalDropsToTerminal, GoalScoreAtTerminal:
	case GoalFixedBudget:
		if budget == nil || budget.NumDrops <= 0 {
			return Stats{}, ErrBudgetRequired
		}
		n = budget.NumDrops
	default:
		return Stats{}, ErrUnknownGoal
	}

	samples := make([]int, trials)
	for i := 0; i < trials; i++ {
		res, err := simulateOne(p, src, n)
		if err != nil {
			return Stats{}, err
		}
		if goal == GoalDropsToTerminal {
			samples[i] = res.drops
		} else {
			samples[i] = res.score
		}
	}
	return calcStats(samples), nil
}
