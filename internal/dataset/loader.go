package dataset

import (
	"context"
	"errors"
	"math/rand"
	"sync"
)

// LoaderOptions configures a single pass over a Set.
type LoaderOptions struct {
	Set        *Set
	BatchSize  int
	Shuffle    bool
	Seed       int64
	NumWorkers int
}

// Batch is a minibatch of flattened images and their labels.
type Batch struct {
	Index  int
	Images []float64
	Labels []int
	Size   int
}

// StartLoader launches the batch pipeline. The returned channel yields every
// example exactly once, in batches ordered by Index, and is closed after the
// last batch or when ctx is cancelled.
func StartLoader(parent context.Context, opts LoaderOptions) (<-chan Batch, error) {
	if opts.Set == nil || opts.Set.Len() == 0 {
		return nil, errors.New("loader: empty dataset")
	}
	if opts.BatchSize <= 0 {
		return nil, errors.New("loader: batch size must be > 0")
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 1
	}

	order := buildOrder(opts.Set.Len(), opts.Shuffle, opts.Seed)

	ctx, cancel := context.WithCancel(parent)

	jobs := make(chan batchJob, opts.NumWorkers)
	results := make(chan Batch, opts.NumWorkers)
	out := make(chan Batch, opts.NumWorkers*2)

	go produceJobs(ctx, jobs, order, opts.BatchSize)

	var wg sync.WaitGroup
	for i := 0; i < opts.NumWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker(ctx, opts.Set, jobs, results)
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	go func() {
		defer cancel()
		defer close(out)
		runAggregator(ctx, results, out)
	}()

	return out, nil
}

// NumBatches returns how many batches a pass over n examples produces.
func NumBatches(n, batchSize int) int {
	if batchSize <= 0 {
		return 0
	}
	return (n + batchSize - 1) / batchSize
}

type batchJob struct {
	id      int
	indices []int
}

func buildOrder(n int, shuffle bool, seed int64) []int {
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	if shuffle {
		rng := rand.New(rand.NewSource(seed))
		rng.Shuffle(n, func(i, j int) {
			order[i], order[j] = order[j], order[i]
		})
	}
	return order
}

func produceJobs(ctx context.Context, jobs chan<- batchJob, order []int, batchSize int) {
	defer close(jobs)
	for id, start := 0, 0; start < len(order); id, start = id+1, start+batchSize {
		end := min(start+batchSize, len(order))
		select {
		case <-ctx.Done():
			return
		case jobs <- batchJob{id: id, indices: order[start:end]}:
		}
	}
}

func worker(ctx context.Context, set *Set, jobs <-chan batchJob, results chan<- Batch) {
	f := set.Features()
	for {
		select {
		case <-ctx.Done():
			return
		case job, ok := <-jobs:
			if !ok {
				return
			}
			b := Batch{
				Index:  job.id,
				Images: make([]float64, len(job.indices)*f),
				Labels: make([]int, len(job.indices)),
				Size:   len(job.indices),
			}
			for i, idx := range job.indices {
				copy(b.Images[i*f:(i+1)*f], set.Image(idx))
				b.Labels[i] = set.Labels[idx]
			}
			select {
			case <-ctx.Done():
				return
			case results <- b:
			}
		}
	}
}

// runAggregator re-sequences batches finished out of order by the workers.
func runAggregator(ctx context.Context, results <-chan Batch, out chan<- Batch) {
	pending := make(map[int]Batch)
	next := 0
	for {
		if b, ok := pending[next]; ok {
			select {
			case <-ctx.Done():
				return
			case out <- b:
			}
			delete(pending, next)
			next++
			continue
		}
		select {
		case <-ctx.Done():
			return
		case b, ok := <-results:
			if !ok {
				return
			}
			pending[b.Index] = b
		}
	}
}
