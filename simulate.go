package main

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/spf13/cobra"

	"github.com/shenjiangwei/earlyAllocator/early"
	"github.com/shenjiangwei/earlyAllocator/mpool"
)

// SimConfig describes one simulated boot workload
type SimConfig struct {
	ArenaSize    int
	PageSize     uintptr
	Ops          int
	MaxAllocSize int
	Seed         int64
}

// TestResult stores test iteration results
type TestResult struct {
	Iteration      int           `json:"iteration"`
	Allocations    uint64        `json:"allocations"`
	Frees          uint64        `json:"frees"`
	FallbackAllocs uint64        `json:"fallback_allocations"`
	PageRuns       uint64        `json:"page_runs"`
	PageFailures   uint64        `json:"page_failures"`
	ArenaFrees     uint64        `json:"arena_frees"`
	Resets         uint64        `json:"byte_zone_resets"`
	PeakUsedBytes  uint64        `json:"peak_used_bytes"`
	UsedPages      uint64        `json:"used_pages"`
	TotalPages     uint64        `json:"total_pages"`
	Final          string        `json:"final_layout"`
	Duration       time.Duration `json:"duration"`
}

func init() {
	rootCmd.AddCommand(newSimulateCmd())
}

func newSimulateCmd() *cobra.Command {
	var (
		cfg        SimConfig
		iterations int
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run randomized boot-time workloads against host memory",
		Long: `The simulate command maps an arena of host memory and drives it with a
random mix of byte allocations, byte releases and page allocations, checking
the zone ordering after every operation.

Example:
  earlyalloc simulate --size 16777216 --ops 100000 --iterations 3`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.PageSize = uintptr(pageSize)
			results, err := runIterations(cfg, iterations, func(r TestResult) {
				if !jsonOut {
					printResult(r)
				}
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return printJSON(results)
			}
			printAverages(results)
			return nil
		},
	}
	cmd.Flags().IntVar(&cfg.ArenaSize, "size", 16<<20, "Arena size in bytes")
	cmd.Flags().IntVar(&cfg.Ops, "ops", 100000, "Operations per iteration")
	cmd.Flags().IntVar(&cfg.MaxAllocSize, "max-alloc", 4096, "Largest byte allocation")
	cmd.Flags().Int64Var(&cfg.Seed, "seed", time.Now().UnixNano(), "Random seed")
	cmd.Flags().IntVar(&iterations, "iterations", 3, "Number of iterations")
	return cmd
}

// runIterations runs iteration i with seed cfg.Seed+i-1 and hands each
// result to report as it completes.
func runIterations(cfg SimConfig, iterations int, report func(TestResult)) ([]TestResult, error) {
	var results []TestResult
	for i := 1; i <= iterations; i++ {
		printInfo("Running iteration %d...\n", i)
		iterCfg := cfg
		iterCfg.Seed = cfg.Seed + int64(i-1)
		result, err := runTest(i, iterCfg)
		if err != nil {
			return results, err
		}
		results = append(results, result)
		if report != nil {
			report(result)
		}
	}
	return results, nil
}

func runTest(iteration int, cfg SimConfig) (TestResult, error) {
	h := early.NewHandle(cfg.PageSize)
	pool, err := mpool.NewPool(h, cfg.ArenaSize, nil)
	if err != nil {
		return TestResult{}, err
	}
	defer pool.Close()

	rng := rand.New(rand.NewSource(cfg.Seed))
	result := TestResult{Iteration: iteration}
	var live [][]byte

	startTime := time.Now()
	for op := 0; op < cfg.Ops; op++ {
		switch r := rng.Float64(); {
		case r < 0.6: // 60% byte allocation
			b := pool.Allocate(1 + rng.Intn(cfg.MaxAllocSize))
			live = append(live, b)
		case r < 0.98: // 38% release of a random live buffer
			if len(live) == 0 {
				continue
			}
			idx := rng.Intn(len(live))
			usedBefore := h.UsedBytes()
			pool.Free(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
			result.Frees++
			if usedBefore > 0 && h.UsedBytes() == 0 {
				result.Resets++
			}
		default: // 2% page run
			if _, err := pool.AllocPages(1 + rng.Intn(4)); err != nil {
				result.PageFailures++
			}
		}

		if used := uint64(h.UsedBytes()); used > result.PeakUsedBytes {
			result.PeakUsedBytes = used
		}
		if s := h.Stats(); s.BytePos < s.Start || s.PagePos < s.BytePos || s.End < s.PagePos {
			return result, fmt.Errorf("iteration %d op %d: zones crossed: %s", iteration, op, s)
		}
	}

	for _, b := range live {
		pool.Free(b)
	}
	result.Duration = time.Since(startTime)

	stats := pool.Stats()
	result.Allocations = stats.TotalAllocations
	result.FallbackAllocs = stats.PoolMisses
	result.ArenaFrees = stats.PoolFreeHits
	result.PageRuns = stats.PageRuns
	result.UsedPages = uint64(h.UsedPages())
	result.TotalPages = uint64(h.TotalPages())
	result.Final = h.Stats().String()
	return result, nil
}

func printResult(r TestResult) {
	printInfo("Iteration %d results:\n", r.Iteration)
	printInfo("  Allocations: %d (%d from fallback)\n", r.Allocations, r.FallbackAllocs)
	printInfo("  Frees: %d (%d byte zone resets)\n", r.Frees, r.Resets)
	printInfo("  Peak used bytes: %d\n", r.PeakUsedBytes)
	printInfo("  Page runs: %d (%d failed)\n", r.PageRuns, r.PageFailures)
	printInfo("  Pages used: %d of %d\n", r.UsedPages, r.TotalPages)
	printInfo("  Final layout: %s\n", r.Final)
	printInfo("  Duration: %v\n\n", r.Duration)
}

func printAverages(results []TestResult) {
	if len(results) == 0 {
		return
	}
	var avgPeak, avgFallback, avgDuration float64
	for _, r := range results {
		avgPeak += float64(r.PeakUsedBytes)
		avgFallback += float64(r.FallbackAllocs)
		avgDuration += r.Duration.Seconds()
	}
	n := float64(len(results))

	printInfo("Average results:\n")
	printInfo("  Average peak used bytes: %.0f\n", avgPeak/n)
	printInfo("  Average fallback allocations: %.1f\n", avgFallback/n)
	printInfo("  Average duration: %.4f seconds\n", avgDuration/n)
}
