package balance

import (
	"errors"
	"math"
	"testing"

	"github.com/xtding233/coinmerge/internal/rank"
	"github.com/xtding233/coinmerge/internal/rng"
)

func TestCalcStats(t *testing.T) {
	s := calcStats([]int{4, 1, 3, 2})
	if s.Mean != 2.5 || s.Var != 1.25 {
		t.Fatalf("mean=%v var=%v", s.Mean, s.Var)
	}
	if math.Abs(s.StdDev-math.Sqrt(1.25)) > 1e-12 {
		t.Fatalf("stddev=%v", s.StdDev)
	}
	if s.P50 != 2.5 || s.P99 < 3.9 || s.P99 > 4 {
		t.Fatalf("p50=%v p99=%v", s.P50, s.P99)
	}
	if empty := calcStats(nil); empty.Mean != 0 || empty.Samples != nil {
		t.Fatal("empty samples should give zero stats")
	}
	if one := calcStats([]int{7}); one.P90 != 7 {
		t.Fatalf("single sample p90 = %v", one.P90)
	}
}

func TestSinglePoolIsBinaryCounter(t *testing.T) {
	p := SimParams{Catalog: rank.Reference(), PoolSize: 1, Random: rng.NewSeeded(1)}
	drops, err := RunMonteCarlo(p, GoalDropsToTerminal, 5, nil)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if drops.Mean != 256 || drops.StdDev != 0 {
		t.Fatalf("drops = %+v, want exactly 256", drops)
	}
	score, err := RunMonteCarlo(p, GoalScoreAtTerminal, 3, nil)
	if err != nil {
		t.Fatal(err)
	}
	if score.P50 != 324800 {
		t.Fatalf("score p50 = %v, want 324800", score.P50)
	}
}

func TestFixedBudget(t *testing.T) {
	p := SimParams{Catalog: rank.Reference(), PoolSize: 1}
	s, err := RunMonteCarlo(p, GoalFixedBudget, 2, &SimBudget{NumDrops: 3})
	if err != nil {
		t.Fatal(err)
	}
	if s.Mean != 50 {
		t.Fatalf("score after three drops = %v, want 50", s.Mean)
	}
	if _, err := RunMonteCarlo(p, GoalFixedBudget, 2, nil); !errors.Is(err, ErrBudgetRequired) {
		t.Fatalf("err = %v", err)
	}
}

func TestLargerPoolNeedsNoMoreDrops(t *testing.T) {
	single, _ := RunMonteCarlo(SimParams{Catalog: rank.Reference(), PoolSize: 1}, GoalDropsToTerminal, 1, nil)
	wide, err := RunMonteCarlo(SimParams{Catalog: rank.Reference(), PoolSize: 3, Random: rng.NewSeeded(42)}, GoalDropsToTerminal, 200, nil)
	if err != nil {
		t.Fatal(err)
	}
	if wide.Mean >= single.Mean {
		t.Fatalf("pool 3 mean %v not below pool 1 mean %v", wide.Mean, single.Mean)
	}
	if len(wide.Samples) != 200 {
		t.Fatalf("samples = %d", len(wide.Samples))
	}
}

func TestRunMonteCarloErrors(t *testing.T) {
	if _, err := RunMonteCarlo(SimParams{}, GoalDropsToTerminal, 1, nil); !errors.Is(err, ErrNoCatalog) {
		t.Fatalf("err = %v", err)
	}
	p := SimParams{Catalog: rank.Reference(), PoolSize: 1}
	if _, err := RunMonteCarlo(p, "nope", 1, nil); !errors.Is(err, ErrUnknownGoal) {
		t.Fatalf("err = %v", err)
	}
	p.MaxDrops = 10
	if _, err := RunMonteCarlo(p, GoalDropsToTerminal, 1, nil); !errors.Is(err, ErrDropLimit) {
		t.Fatalf("err = %v", err)
	}
	if s, err := RunMonteCarlo(p, GoalDropsToTerminal, 0, nil); err != nil || s.Mean != 0 {
		t.Fatalf("zero trials: %+v %v", s, err)
	}
}
