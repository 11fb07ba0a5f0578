package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/anyKV/cmd/util"
	"github.com/ValentinKolb/anyKV/lib/common"
	"github.com/ValentinKolb/anyKV/lib/serialize"
	"github.com/ValentinKolb/anyKV/lib/store"
	"github.com/spf13/cobra"
)

var (
	perfTestCmd = &cobra.Command{
		Use:     "perf",
		Short:   "Performance testing tool for anyKV stores",
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfKeyPrefix        = "__test"
	perfLargeValueSizeKB = 100
	perfNumThreads       = 10
	perfKeySpread        = 100
	perfSkip             = make([]string, 0)
)

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. put,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "large-value-size"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How large the value for the put-large test should be (in KB)"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 100, util.WrapString("How many different keys to use for the tests"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the collected store metrics in the prometheus text format"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	v := util.Viper()
	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfLargeValueSizeKB = v.GetInt("large-value-size")
	perfKeySpread = max(1, v.GetInt("keys"))
	perfNumThreads = max(1, v.GetInt("threads"))
	perfSkip = strings.Split(v.GetString("skip"), ",")

	return nil
}

// benchmark describes one test of the perf command
type benchmark struct {
	name    string
	prepare func(ctx context.Context, key string) error
	op      func(ctx context.Context, key string) error
}

func run(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	fmt.Println("Performance testing tool for anyKV stores")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(kvStore.Config().String())
	fmt.Printf("Driver: %s\n", kvStore.Driver())
	fmt.Printf("Threads: %d\n", perfNumThreads)
	fmt.Println()

	if kvStore.Config().ReadOnly {
		return fmt.Errorf("perf needs a writable store")
	}

	fmt.Println("starting tests...")

	largeValue := make([]byte, perfLargeValueSizeKB*1024)
	raw := store.WithMode(serialize.ModeRaw)
	put := func(ctx context.Context, key string) error {
		return kvStore.Put(ctx, key, []byte("test"), raw)
	}

	benchmarks := []benchmark{
		{name: "put", op: put},
		{name: "put-large", op: func(ctx context.Context, key string) error {
			return kvStore.Put(ctx, key, largeValue, raw)
		}},
		{name: "get", prepare: put, op: func(ctx context.Context, key string) error {
			_, err := kvStore.Get(ctx, key, raw)
			return err
		}},
		{name: "exists", prepare: put, op: func(ctx context.Context, key string) error {
			_, err := kvStore.Exists(ctx, key)
			return err
		}},
		{name: "checksum", prepare: put, op: func(ctx context.Context, key string) error {
			_, err := kvStore.Checksum(ctx, key, "")
			return err
		}},
		{name: "delete", op: func(ctx context.Context, key string) error {
			return kvStore.Delete(ctx, key)
		}},
	}

	// Create results map
	results := make(map[string]testing.BenchmarkResult)

	for _, bm := range benchmarks {
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(bm.name) {
				return
			}

			// prepare keys
			getKey, iter := getKeys(bm.name)
			if bm.prepare != nil {
				iter(func(k string) {
					if err := bm.prepare(ctx, k); err != nil {
						log.Printf("(%s) - error preparing key: %v\n", bm.name, err)
					}
				})
			}

			// cleanup
			b.Cleanup(func() {
				iter(func(k string) {
					if err := kvStore.Delete(ctx, k); err != nil {
						log.Printf("(%s) - error deleting key: %v\n", bm.name, err)
					}
				})
			})

			b.SetParallelism(perfNumThreads)

			b.ResetTimer()

			b.RunParallel(func(pb *testing.PB) {
				counter := 0
				for pb.Next() {
					if err := bm.op(ctx, getKey(counter)); err != nil {
						log.Printf("(%s) - error: %v\n", bm.name, err)
					}
					counter++
				}
			})
		})

		results[bm.name] = result
		printResult(bm.name, result)
	}

	if csvPath := util.Viper().GetString("csv"); csvPath != "" {
		fmt.Printf("Exporting results to %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	if util.Viper().GetBool("metrics") {
		fmt.Println()
		common.WriteMetrics(os.Stdout)
	}

	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == strings.TrimSpace(skip) {
			return true
		}
	}
	return false
}

// creates an array of test keys and functions to work with them
func getKeys(prefix string) (func(int) string, func(func(string))) {
	keys := make([]string, perfKeySpread)
	for i := 0; i < perfKeySpread; i++ {
		keys[i] = fmt.Sprintf("%s/%s/%d", perfKeyPrefix, prefix, i)
	}

	// Function to get a key by index (with wraparound)
	getKey := func(i int) string {
		return keys[i%perfKeySpread]
	}

	// Function to iterate over all keys and apply a function to each
	iterateKeys := func(fn func(string)) {
		for _, key := range keys {
			fn(key)
		}
	}

	return getKey, iterateKeys
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\n", test, nsPerOp, time.Duration(nsPerOp), opsPerSec)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]testing.BenchmarkResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	cfg := kvStore.Config()
	info := kvStore.Driver()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped",
		"Store", "Driver", "Mode", "Threads", "LargeValueSizeKB", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write test results
	for test, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			cfg.URI,
			string(info.Type),
			string(cfg.Mode),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfLargeValueSizeKB),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", test, err)
		}
	}

	return nil
}
