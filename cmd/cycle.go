package main

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/draftline/content-cli/internal/worker"
)

var cycleCmd = &cobra.Command{
	Use:   "cycle",
	Short: "Run one orchestrated pass over all enrichment stages",
	Long:  "Runs hook extraction, embedding, hook/topic/audience classification, and completion once in priority order, within the configured time budget.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		report, err := env.orchestrator().RunCycle(ctx, worker.CycleOptions{})
		if err != nil {
			return eris.Wrap(err, "run cycle")
		}

		return printCycleReport(report)
	},
}

func printCycleReport(report *worker.CycleReport) error {
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return eris.Wrap(err, "marshal report")
	}
	fmt.Println(string(out))
	return nil
}

func init() {
	rootCmd.AddCommand(cycleCmd)
}
