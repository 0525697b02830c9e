package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/xtding233/coinmerge/internal/balance"
	"github.com/xtding233/coinmerge/internal/config"
	"github.com/xtding233/coinmerge/internal/rng"
)

type report struct {
	Profile string             `json:"profile"`
	Goal    string             `json:"goal"`
	Trials  int                `json:"trials"`
	Pool    int                `json:"pool_size"`
	Stats   balance.Stats      `json:"stats"`
	Budget  *balance.SimBudget `json:"budget,omitempty"`
}

func main() {
	env, err := config.LoadServerEnv()
	if err != nil {
		log.Fatalf("load env: %v", err)
	}
	profile := flag.String("profile", env.Profile, "board profile")
	goal := flag.String("goal", string(balance.GoalDropsToTerminal), "drops_to_terminal | score_at_terminal | fixed_budget")
	trials := flag.Int("trials", 1000, "number of simulated boards")
	drops := flag.Int("drops", 0, "drops per board for fixed_budget")
	seed := flag.Uint64("seed", 0, "PCG seed; 0 uses crypto randomness")
	flag.Parse()

	_, opts, err := config.NewLoader(env.ConfigDir).Resolve(*profile)
	if err != nil {
		log.Fatalf("resolve profile %s: %v", *profile, err)
	}
	params := balance.SimParams{Catalog: opts.Catalog, PoolSize: opts.InitialRankPoolSize}
	if *seed != 0 {
		params.Random = rng.NewSeeded(*seed)
	}
	var budget *balance.SimBudget
	if *drops > 0 {
		budget = &balance.SimBudget{NumDrops: *drops}
	}

	stats, err := balance.RunMonteCarlo(params, balance.TrialGoal(*goal), *trials, budget)
	if err != nil {
		log.Fatalf("simulate: %v", err)
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report{
		Profile: *profile,
		Goal:    *goal,
		Trials:  *trials,
		Pool:    params.PoolSize,
		Stats:   stats,
		Budget:  budget,
	}); err != nil {
		log.Fatalf("write report: %v", err)
	}
}
