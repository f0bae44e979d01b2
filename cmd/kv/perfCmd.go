package kv

import (
	"context"
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/cmd/util"
	"github.com/ValentinKolb/tKV/lib/dbm"
	"github.com/google/uuid"
	gometrics "github.com/rcrowley/go-metrics"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

var (
	perfTestCmd = &cobra.Command{
		Use:   "perf",
		Short: "Performance testing tool for tkv tables",
		Long: `Performance testing tool for tkv tables.

Runs a fixed set of benchmarks against the configured table and backend.
With --rate a rate limited load phase of --duration follows.`,
		RunE:    run,
		PreRunE: processPerfConfig,
	}
	perfNumThreads = 10
	perfKeySpread  = 10
	perfValueSize  = 16
	perfRate       = 0.0
	perfDuration   = 10 * time.Second
	perfSkip       = make([]string, 0)

	// every run uses its own key namespace so runs against a shared backend do not collide
	perfKeyPrefix = uuid.NewString()[:8]
	perfTimers    = gometrics.NewRegistry()
)

// perfResult is the outcome of one benchmark
type perfResult struct {
	test   string
	result testing.BenchmarkResult
	timer  gometrics.Timer
}

func init() {
	// add flags
	key := "skip"
	perfTestCmd.Flags().String(key, "", util.WrapString("Benchmarks to skip (comma separated - e.g. set-ram,get)"))
	key = "threads"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("Number of threads to use for the benchmark"))
	key = "keys"
	perfTestCmd.Flags().Int(key, 10, util.WrapString("How many different keys to use per test. Must not exceed the capacity"))
	key = "value-size"
	perfTestCmd.Flags().Int(key, 16, util.WrapString("Size of the values in bytes. Must not exceed the max value length"))
	key = "rate"
	perfTestCmd.Flags().Float64(key, 0, util.WrapString("Operations per second of the load phase (0 skips the load phase)"))
	key = "duration"
	perfTestCmd.Flags().Duration(key, 10*time.Second, util.WrapString("Duration of the load phase"))
	key = "csv"
	perfTestCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
	key = "metrics"
	perfTestCmd.Flags().Bool(key, false, util.WrapString("Print the store metrics in Prometheus text format after the run"))
}

func processPerfConfig(cmd *cobra.Command, _ []string) error {
	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	perfNumThreads = viper.GetInt("threads")
	perfKeySpread = viper.GetInt("keys")
	perfValueSize = viper.GetInt("value-size")
	perfRate = viper.GetFloat64("rate")
	perfDuration = viper.GetDuration("duration")
	perfSkip = strings.Split(viper.GetString("skip"), ",")

	if perfKeySpread <= 0 || perfKeySpread > kvConfig.Capacity {
		return fmt.Errorf("--keys must be between 1 and the capacity (%d)", kvConfig.Capacity)
	}
	if perfValueSize < 0 || perfValueSize > kvConfig.MaxValueLength {
		return fmt.Errorf("--value-size must be between 0 and the max value length (%d)", kvConfig.MaxValueLength)
	}
	if perfNumThreads <= 0 {
		return fmt.Errorf("--threads must be positive")
	}
	return nil
}

func run(cmd *cobra.Command, _ []string) error {
	fmt.Println("Performance testing tool for tkv tables")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Println(kvConfig.String())
	fmt.Printf("Threads: %d, Keys: %d, Value size: %d bytes, Key prefix: %s\n", perfNumThreads, perfKeySpread, perfValueSize, perfKeyPrefix)
	fmt.Println()

	fmt.Println("starting tests...")

	value := make([]byte, perfValueSize)
	var results []perfResult

	bench := func(test string, prepare func(keys []string), op func(key string) error) {
		timer := gometrics.GetOrRegisterTimer(test, perfTimers)
		result := testing.Benchmark(func(b *testing.B) {
			if shouldSkip(test) {
				return
			}

			keys := getKeys(test)
			if prepare != nil {
				prepare(keys)
			}
			b.Cleanup(func() { cleanup(test, keys) })

			b.SetParallelism(perfNumThreads)
			b.ResetTimer()

			var counter atomic.Int64
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					key := keys[int(counter.Add(1))%len(keys)]
					start := time.Now()
					err := op(key)
					timer.UpdateSince(start)
					if err != nil {
						log.Debugf("(%s) - %s: %v", test, key, err)
					}
				}
			})
		})
		results = append(results, perfResult{test: test, result: result, timer: timer})
		printResult(test, result, timer)
	}

	insertAll := func(tier dbm.Tier) func([]string) {
		return func(keys []string) {
			for _, k := range keys {
				if err := kvStore.Insert(k, value, tier); err != nil {
					log.Warningf("error preparing key %s: %v", k, err)
				}
			}
		}
	}

	bench("set-ram", nil, func(key string) error {
		return kvStore.Insert(key, value, dbm.TierRAM)
	})
	bench("set-nvm", nil, func(key string) error {
		return kvStore.Insert(key, value, dbm.TierNVM)
	})

	buf := func() []byte { return make([]byte, kvConfig.MaxValueLength) }
	bench("get", insertAll(dbm.TierRAM), func(key string) error {
		_, err := kvStore.Get(key, buf())
		return err
	})
	bench("get-miss", nil, func(key string) error {
		_, err := kvStore.Get(key, buf())
		return err
	})
	bench("delete", insertAll(dbm.TierNVM), func(key string) error {
		return kvStore.Delete(key)
	})

	var counter atomic.Int64
	bench("mixed", insertAll(dbm.TierNVM), func(key string) error {
		switch counter.Add(1) % 4 {
		case 0:
			return kvStore.Insert(key, value, dbm.TierNVM)
		case 1:
			_, err := kvStore.Get(key, buf())
			return err
		case 2:
			return kvStore.Delete(key)
		default:
			_, err := kvStore.FreeSpace()
			return err
		}
	})

	if perfRate > 0 {
		if err := runLoad(cmd.Context(), value); err != nil {
			return err
		}
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	if viper.GetBool("metrics") {
		fmt.Println()
		kvStore.WriteMetrics(os.Stdout)
	}

	return nil
}

// runLoad drives a mixed workload at a fixed rate for perfDuration
func runLoad(ctx context.Context, value []byte) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, perfDuration)
	defer cancel()

	fmt.Printf("\nload phase: %.0f ops/sec for %s\n", perfRate, perfDuration)

	keys := getKeys("load")
	defer cleanup("load", keys)

	limiter := rate.NewLimiter(rate.Limit(perfRate), 1)
	timer := gometrics.GetOrRegisterTimer("load", perfTimers)
	var failed atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < perfNumThreads; w++ {
		w := w
		g.Go(func() error {
			buf := make([]byte, kvConfig.MaxValueLength)
			for i := w; ; i += perfNumThreads {
				if err := limiter.Wait(ctx); err != nil {
					// deadline reached
					return nil
				}
				key := keys[i%len(keys)]
				start := time.Now()
				var err error
				switch i % 3 {
				case 0:
					err = kvStore.Insert(key, value, dbm.TierNVM)
				case 1:
					_, err = kvStore.Get(key, buf)
				default:
					err = kvStore.Delete(key)
				}
				timer.UpdateSince(start)
				if err != nil {
					failed.Add(1)
				}
			}
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	snapshot := timer.Snapshot()
	ps := snapshot.Percentiles([]float64{0.5, 0.99})
	fmt.Printf("%-20s%d ops (%d failed)\t%.0f ops/sec\tp50 %s\tp99 %s\n",
		"load", snapshot.Count(), failed.Load(), snapshot.RateMean(), time.Duration(ps[0]), time.Duration(ps[1]))
	return nil
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(test string) bool {
	// Check if the test is in the skip list
	for _, skip := range perfSkip {
		if test == skip {
			return true
		}
	}
	return false
}

// getKeys creates the test keys of one benchmark
func getKeys(test string) []string {
	keys := make([]string, perfKeySpread)
	for i := range keys {
		keys[i] = fmt.Sprintf("%s-%s-%d", perfKeyPrefix, test, i)
	}
	return keys
}

// cleanup removes the keys of a benchmark from the table and the backend
func cleanup(test string, keys []string) {
	for _, k := range keys {
		if err := kvStore.Delete(k); err != nil && dbm.CodeOf(err) != dbm.RetCNotFound {
			log.Warningf("(%s) - error deleting key %s: %v", test, k, err)
		}
		if err := kvBackend.Delete(k); err != nil {
			log.Warningf("(%s) - error deleting key %s from the backend: %v", test, k, err)
		}
	}
}

// printResult prints the result of a benchmark test in a formatted way
func printResult(test string, result testing.BenchmarkResult, timer gometrics.Timer) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-20sskipped\n", test)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)
	ps := timer.Percentiles([]float64{0.5, 0.99})

	fmt.Printf("%-20s%.0fns/op (%s/op)\t%.0f ops/sec\tp50 %s\tp99 %s\n",
		test, nsPerOp, time.Duration(nsPerOp), opsPerSec, time.Duration(ps[0]), time.Duration(ps[1]))
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results []perfResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Test", "NsPerOp", "DurationPerOp", "OpsPerSec", "Skipped", "P50", "P99",
		"Backend", "Capacity", "MaxValueLength", "StagedIO",
		"Threads", "ValueSize", "Keys Count",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	for _, r := range results {
		var nsPerOp float64
		var opsPerSec float64
		skipped := "true"

		if r.result.NsPerOp() != 0 {
			skipped = "false"
			nsPerOp = math.Max(float64(r.result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}
		ps := r.timer.Percentiles([]float64{0.5, 0.99})

		row := []string{
			r.test,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			time.Duration(ps[0]).String(),
			time.Duration(ps[1]).String(),
			string(kvConfig.Backend),
			strconv.Itoa(kvConfig.Capacity),
			strconv.Itoa(kvConfig.MaxValueLength),
			strconv.FormatBool(kvConfig.StagedIO),
			strconv.Itoa(perfNumThreads),
			strconv.Itoa(perfValueSize),
			strconv.Itoa(perfKeySpread),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for test %s: %v", r.test, err)
		}
	}

	return nil
}
