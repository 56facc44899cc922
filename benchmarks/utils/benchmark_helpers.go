package utils

import (
	"fmt"
	"runtime"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// BenchmarkRunner counts provider calls made from concurrent workers and
// keeps each call's latency for percentile reporting.
type BenchmarkRunner struct {
	startTime     time.Time
	endTime       time.Time
	memStatsStart runtime.MemStats
	memStatsEnd   runtime.MemStats

	calls    atomic.Int64
	failures atomic.Int64

	mu        sync.Mutex
	latencies []time.Duration
}

// NewBenchmarkRunner creates a new benchmark runner
func NewBenchmarkRunner() *BenchmarkRunner {
	return &BenchmarkRunner{}
}

// Start begins the benchmark measurement
func (br *BenchmarkRunner) Start() {
	runtime.GC()
	runtime.ReadMemStats(&br.memStatsStart)
	br.startTime = time.Now()
}

// Stop ends the benchmark measurement
func (br *BenchmarkRunner) Stop() {
	br.endTime = time.Now()
	runtime.GC()
	runtime.ReadMemStats(&br.memStatsEnd)
}

// RunConcurrent runs call from workerCount goroutines, callsPerWorker times
// each, recording latency and whether the call returned an error.
func (br *BenchmarkRunner) RunConcurrent(workerCount, callsPerWorker int, call func() error) {
	var wg sync.WaitGroup
	for w := 0; w < workerCount; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make([]time.Duration, 0, callsPerWorker)
			for i := 0; i < callsPerWorker; i++ {
				start := time.Now()
				err := call()
				local = append(local, time.Since(start))
				br.calls.Add(1)
				if err != nil {
					br.failures.Add(1)
				}
			}
			br.mu.Lock()
			br.latencies = append(br.latencies, local...)
			br.mu.Unlock()
		}()
	}
	wg.Wait()
}

// GetResults returns the benchmark results
func (br *BenchmarkRunner) GetResults() *BenchmarkResults {
	br.mu.Lock()
	sorted := slices.Clone(br.latencies)
	br.mu.Unlock()
	slices.Sort(sorted)

	duration := br.endTime.Sub(br.startTime)
	calls := br.calls.Load()
	var callsPerSecond float64
	if duration > 0 {
		callsPerSecond = float64(calls) / duration.Seconds()
	}

	return &BenchmarkResults{
		Duration:       duration,
		Calls:          calls,
		Failures:       br.failures.Load(),
		CallsPerSecond: callsPerSecond,
		P50:            percentile(sorted, 0.50),
		P99:            percentile(sorted, 0.99),
		BytesPerCall:   perCall(br.memStatsEnd.TotalAlloc-br.memStatsStart.TotalAlloc, calls),
	}
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	return sorted[int(q*float64(len(sorted)-1))]
}

func perCall(total uint64, calls int64) uint64 {
	if calls <= 0 {
		return 0
	}
	return total / uint64(calls)
}

// BenchmarkResults summarises one concurrent run.
type BenchmarkResults struct {
	Duration       time.Duration
	Calls          int64
	Failures       int64
	CallsPerSecond float64
	P50            time.Duration
	P99            time.Duration
	BytesPerCall   uint64
}

func (r *BenchmarkResults) String() string {
	return fmt.Sprintf("Duration: %v, Calls: %d, Failures: %d, Calls/sec: %.2f, p50: %v, p99: %v, Bytes/call: %d",
		r.Duration, r.Calls, r.Failures, r.CallsPerSecond, r.P50, r.P99, r.BytesPerCall)
}
