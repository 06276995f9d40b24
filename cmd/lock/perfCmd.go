package lock

import (
	"encoding/csv"
	"errors"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/privlock/cmd/util"
	"github.com/ValentinKolb/privlock/lib/privacy"
	"github.com/ValentinKolb/privlock/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for privlock servers",
		Long: `Measures the round trip of the privacy lock operations against a running server.

The benchmarks acquire and release the lock with their own connection ids,
so they refuse to run while a real session holds the lock. Use a noop
backend unless the backend is meant to be part of the measurement.`,
		RunE:    runPerf,
		PreRunE: processPerfConfig,
	}
	perfConnIDBase  = int32(1_000_000)
	perfNumThreads  = 10
	perfSkip        = make([]string, 0)
	perfBackendName = ""
)

// namedResult keeps the results in the order the benchmarks ran
type namedResult struct {
	test   string
	result testing.BenchmarkResult
}

func init() {
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. owner,contended)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	perfNumThreads = viper.GetInt("threads")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	return nil
}

func runPerf(_ *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for privlock servers")

	if owner := rpcLock.CurrentOwner(); owner != privacy.InvalidConnID {
		return fmt.Errorf("privacy lock is held by connection %d, refusing to run benchmarks", owner)
	}
	perfBackendName = rpcLock.ImplKey()

	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(util.GetClientConfig().String())
	fmt.Printf("Service: %d (%s backend)\n", util.GetServiceID(), perfBackendName)
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	fmt.Println("starting tests...")

	var results []namedResult
	record := func(test string, result testing.BenchmarkResult) {
		results = append(results, namedResult{test: test, result: result})
		printResult(test, result)
	}

	record("owner", testing.Benchmark(func(b *testing.B) {
		if shouldSkip("owner") {
			return
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				rpcLock.CurrentOwner()
			}
		})
	}))

	record("acquire-release", testing.Benchmark(func(b *testing.B) {
		if shouldSkip("acquire-release") {
			return
		}

		connID := privacy.ConnID(perfConnIDBase)
		b.Cleanup(func() { rpcLock.Release(connID) })
		b.ResetTimer()

		// a single connection, every iteration is a full transition pair
		for i := 0; i < b.N; i++ {
			if _, err := rpcLock.Acquire(connID); err != nil {
				log.Printf("(acquire-release) - error acquiring lock: %v\n", err)
			}
			rpcLock.Release(connID)
		}
	}))

	record("reentrant", testing.Benchmark(func(b *testing.B) {
		if shouldSkip("reentrant") {
			return
		}

		connID := privacy.ConnID(perfConnIDBase + 1)
		if _, err := rpcLock.Acquire(connID); err != nil {
			log.Printf("(reentrant) - error acquiring lock: %v\n", err)
			return
		}
		b.Cleanup(func() { rpcLock.Release(connID) })

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcLock.Acquire(connID); err != nil {
					log.Printf("(reentrant) - error acquiring lock: %v\n", err)
				}
			}
		})
	}))

	var granted, rejected atomic.Int64
	record("contended", testing.Benchmark(func(b *testing.B) {
		if shouldSkip("contended") {
			return
		}

		var nextID atomic.Int32
		nextID.Store(perfConnIDBase + 10)

		b.Cleanup(func() { rpcLock.Release(privacy.InvalidConnID) })
		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		// every goroutine is its own connection competing for the lock
		b.RunParallel(func(pb *testing.PB) {
			connID := privacy.ConnID(nextID.Add(1))
			for pb.Next() {
				ok, err := rpcLock.Acquire(connID)
				switch {
				case errors.Is(err, privacy.ErrAlreadyHeld):
					rejected.Add(1)
				case err != nil:
					log.Printf("(contended) - error acquiring lock: %v\n", err)
				case ok:
					granted.Add(1)
					rpcLock.Release(connID)
				}
			}
		})
	}))
	if !shouldSkip("contended") {
		fmt.Printf("%-20sgranted=%d rejected=%d\n", "", granted.Load(), rejected.Load())
	}

	record("info", testing.Benchmark(func(b *testing.B) {
		if shouldSkip("info") {
			return
		}

		b.SetParallelism(perfNumThreads)
		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			for pb.Next() {
				if _, err := rpcLock.Info(); err != nil {
					log.Printf("(info) - error querying lock: %v\n", err)
				}
			}
		})
	}))

	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results, util.GetClientConfig()); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1)
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []namedResult, config *common.ClientConfig) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Endpoints", "TimeoutSec", "RetryCount", "ConnectionsPerEndpoint",
		"ServiceID", "Backend", "Serializer", "Transport", "Threads",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		var nsPerOp, opsPerSec float64
		skipped := "true"

		if r.result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(r.result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			r.test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strings.Join(config.Endpoints, ";"),
			strconv.Itoa(config.TimeoutSecond),
			strconv.Itoa(config.RetryCount),
			strconv.Itoa(config.ConnectionsPerEndpoint),
			strconv.FormatUint(util.GetServiceID(), 10),
			perfBackendName,
			viper.GetString("serializer"),
			viper.GetString("transport"),
			strconv.Itoa(perfNumThreads),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.test, err)
		}
	}

	return nil
}
