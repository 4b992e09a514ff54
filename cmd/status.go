package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/draftline/content-cli/internal/monitoring"
)

var statusHours int

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline queue depths, run outcomes, and provider spend",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("status"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		collector := monitoring.NewCollector(st, time.Duration(statusHours)*time.Hour)
		snap, err := collector.Snapshot(ctx)
		if err != nil {
			return eris.Wrap(err, "collect snapshot")
		}

		out, err := json.MarshalIndent(snap, "", "  ")
		if err != nil {
			return eris.Wrap(err, "marshal snapshot")
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	statusCmd.Flags().IntVar(&statusHours, "hours", 24, "lookback window for runs and spend")
	rootCmd.AddCommand(statusCmd)
}
