package optim

import (
	"context"
	"math"
	"sort"
)

// Objective scores one parameter combination; lower is better. An error
// marks the combination as failed without stopping the search.
type Objective func(ctx context.Context, params map[string]float64) (float64, error)

type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

// GridSearch evaluates every combination of the given parameter ranges.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) *GridSearch {
	return &GridSearch{paramNames: params, ranges: ranges}
}

// Search returns the best parameters, their score and every trial in
// evaluation order. The best score is +Inf when no trial succeeded.
func (g *GridSearch) Search(ctx context.Context, objective Objective) (map[string]float64, float64, []Trial, error) {
	best := math.Inf(1)
	var bestParams map[string]float64
	var trials []Trial

	err := g.searchRecursive(ctx, 0, make(map[string]float64), objective, func(t Trial) {
		trials = append(trials, t)
		if t.Err == nil && t.Score < best {
			best = t.Score
			bestParams = t.Params
		}
	})
	return bestParams, best, trials, err
}

func (g *GridSearch) searchRecursive(ctx context.Context, depth int, current map[string]float64, objective Objective, record func(Trial)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if depth == len(g.paramNames) {
		params := make(map[string]float64, len(current))
		for k, v := range current {
			params[k] = v
		}
		score, err := objective(ctx, params)
		record(Trial{Params: params, Score: score, Err: err})
		return nil
	}

	name := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		current[name] = val
		if err := g.searchRecursive(ctx, depth+1, current, objective, record); err != nil {
			return err
		}
	}
	delete(current, name)
	return nil
}

// Rank orders successful trials by score, failed ones last.
func Rank(trials []Trial) []Trial {
	out := append([]Trial(nil), trials...)
	sort.SliceStable(out, func(i, j int) bool {
		if (out[i].Err == nil) != (out[j].Err == nil) {
			return out[i].Err == nil
		}
		return out[i].Score < out[j].Score
	})
	return out
}
