package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"sort"
	"sync"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/draftline/content-cli/internal/worker"
)

var (
	workerPostID string
	workerAll    bool
)

var workerCmd = &cobra.Command{
	Use:   "worker [name]",
	Short: "Run a single enrichment worker",
	Long: `Runs one worker batch and prints its report. Valid names are
hook_extraction, embedding, hook_classification, topic_classification,
audience_classification, and completion.

With --post-id, runs the worker against a single item regardless of its
pending flags. With --all, runs the five stage workers concurrently and
then the completion aggregator.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if workerAll == (len(args) == 1) {
			return eris.New("provide exactly one worker name, or --all")
		}
		if workerAll && workerPostID != "" {
			return eris.New("--post-id cannot be combined with --all")
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if workerAll {
			return runAllWorkers(cmd, env)
		}
		return runOneWorker(cmd, env, args[0])
	},
}

func runOneWorker(cmd *cobra.Command, env *pipelineEnv, name string) error {
	workers, batchOnly := env.runners()

	var report *worker.Report
	var err error
	switch {
	case workers[name] != nil && workerPostID != "":
		report, err = workers[name].RunItem(cmd.Context(), workerPostID)
	case workers[name] != nil:
		report, err = workers[name].Run(cmd.Context(), nil)
	case batchOnly[name] != nil:
		if workerPostID != "" {
			return eris.Errorf("worker %s does not support single-item runs", name)
		}
		report, err = batchOnly[name].Run(cmd.Context(), nil)
	default:
		return eris.Errorf("unknown worker %q", name)
	}
	if err != nil {
		return eris.Wrapf(err, "run %s", name)
	}

	return printReport(report)
}

// runAllWorkers runs the five stage workers concurrently. Stages act on
// disjoint flags, so concurrent batches never contend for the same work.
// Completion runs after the stages settle.
func runAllWorkers(cmd *cobra.Command, env *pipelineEnv) error {
	workers, batchOnly := env.runners()

	var mu sync.Mutex
	reports := make(map[string]*worker.Report, len(workers)+1)

	g, ctx := errgroup.WithContext(cmd.Context())
	for name, w := range workers {
		g.Go(func() error {
			report, err := w.Run(ctx, nil)
			if err != nil {
				zap.L().Error("worker failed", zap.String("worker", name), zap.Error(err))
				return eris.Wrapf(err, "run %s", name)
			}
			mu.Lock()
			reports[name] = report
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	report, err := batchOnly[worker.WorkerCompletion].Run(cmd.Context(), nil)
	if err != nil {
		return eris.Wrap(err, "run completion")
	}
	reports[worker.WorkerCompletion] = report

	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := printReport(reports[name]); err != nil {
			return err
		}
	}
	return nil
}

func printReport(report *worker.Report) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	workerCmd.Flags().StringVar(&workerPostID, "post-id", "", "run against a single item, bypassing its pending flags")
	workerCmd.Flags().BoolVar(&workerAll, "all", false, "run every stage worker, then completion")
	rootCmd.AddCommand(workerCmd)
}
