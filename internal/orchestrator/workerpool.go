// Package orchestrator wires every stage of the feed-generation
// pipeline into one session run (spec §4.11), dispatching step 7 (one
// Rank -> Rerank -> FeedStatsCalculator per user) across a bounded
// worker pool since the step is embarrassingly parallel (spec §5).
// Grounded on the teacher's internal/infrastructure/async
// (Pipeline/Batcher: buffered channel, sync.WaitGroup, bounded worker
// count).
package orchestrator

import "sync"

// runPool runs fn for each item in items across at most workers
// goroutines, collecting results in input order. It is the generic
// bounded-worker-pool shape the teacher's async.Pipeline implements
// with an explicit stage interface; this is a simpler direct
// map-with-concurrency-cap since step 7 has only one stage per user.
func runPool[T any, R any](workers int, items []T, fn func(item T) R) []R {
	if workers <= 0 {
		workers = 1
	}
	if workers > len(items) {
		workers = len(items)
	}
	if workers == 0 {
		return nil
	}

	results := make([]R, len(items))
	jobs := make(chan int)

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fn(items[i])
			}
		}()
	}

	for i := range items {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
