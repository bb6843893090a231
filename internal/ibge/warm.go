package ibge

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// WarmResult is the outcome of fetching one state's cities.
type WarmResult struct {
	Err    error
	UF     string
	Cities []string
}

// WarmCities fetches the cities of every uf using concurrency workers.
// Results come back in ufs order; failures are reported per state.
func (c *Client) WarmCities(ctx context.Context, ufs []string, concurrency int) []WarmResult {
	if concurrency <= 0 {
		concurrency = 1
	}

	type job struct {
		uf  string
		idx int
	}

	jobs := make(chan job, len(ufs))
	results := make([]WarmResult, len(ufs))

	go func() {
		for i, uf := range ufs {
			jobs <- job{idx: i, uf: uf}
		}
		close(jobs)
	}()

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				res := WarmResult{UF: j.uf}
				if err := ctx.Err(); err != nil {
					res.Err = err
				} else {
					res.Cities, res.Err = c.Cities(ctx, j.uf)
				}

				if res.Err != nil {
					log.Warn().Err(res.Err).Str("uf", j.uf).Msg("Failed to warm cities")
				} else {
					log.Debug().Str("uf", j.uf).Int("cities", len(res.Cities)).Msg("Cities warmed")
				}
				results[j.idx] = res
			}
		}()
	}
	wg.Wait()

	return results
}
