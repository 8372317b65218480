package backtest

import (
	"errors"
	"sync"
)

// Grid 参数网格。
type Grid struct {
	MinSpreads  []float64
	ExitSpreads []float64
}

// DefaultGrid 返回默认搜索网格。
func DefaultGrid() Grid {
	return Grid{
		MinSpreads:  []float64{100, 150, 200},
		ExitSpreads: []float64{20, 30, 40},
	}
}

// OptimizeResult 网格搜索结果。
type OptimizeResult struct {
	Best    Params   `json:"best_params"`
	Result  Result   `json:"best_result"`
	AllRuns []Result `json:"all_runs"`
}

// Optimize 对网格中每组参数各跑一次回测，并行执行，
// 以 Sharpe 比率最高者为最优。回测彼此独立且无副作用，
// 并行不影响可重现性。
func (e *Engine) Optimize(records []Record, grid Grid, maxHoldingDays int) (OptimizeResult, error) {
	if len(grid.MinSpreads) == 0 || len(grid.ExitSpreads) == 0 {
		return OptimizeResult{}, errors.New("empty parameter grid")
	}

	var candidates []Params
	for _, minSpread := range grid.MinSpreads {
		for _, exitSpread := range grid.ExitSpreads {
			candidates = append(candidates, Params{
				MinSpread:      minSpread,
				ExitSpread:     exitSpread,
				MaxHoldingDays: maxHoldingDays,
			})
		}
	}

	results := make([]Result, len(candidates))
	errs := make([]error, len(candidates))

	var wg sync.WaitGroup
	for i, p := range candidates {
		wg.Add(1)
		go func(i int, p Params) {
			defer wg.Done()
			results[i], errs[i] = e.Run(records, p)
		}(i, p)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return OptimizeResult{}, err
		}
	}

	best := 0
	for i := 1; i < len(results); i++ {
		if results[i].SharpeRatio > results[best].SharpeRatio {
			best = i
		}
	}

	return OptimizeResult{
		Best:    results[best].Params,
		Result:  results[best],
		AllRuns: results,
	}, nil
}
