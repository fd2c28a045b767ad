package physicsbox

import "sync"

// taskIndexed fans fn out over [0, n) chunked across workers goroutines.
// Only phases where fn(i) touches nothing but index i may use it; such
// phases produce identical results for any worker count, which keeps the
// caller-observable step deterministic. With one worker it is a plain
// loop.
func taskIndexed(workers, n int, fn func(i int)) {
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}

	chunkSize := (n + workers - 1) / workers

	var wg sync.WaitGroup
	for workerID := 0; workerID < workers; workerID++ {
		start := workerID * chunkSize
		end := min(start+chunkSize, n)
		if start >= end {
			break
		}

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}
