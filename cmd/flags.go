package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/worker"
)

var (
	flagsEnable  bool
	flagsDisable bool
)

func knownWorkers() []string {
	names := make([]string, 0, len(model.AllStages())+1)
	for _, stage := range model.AllStages() {
		names = append(names, string(stage))
	}
	return append(names, worker.WorkerCompletion)
}

var flagsCmd = &cobra.Command{
	Use:   "flags [worker]",
	Short: "Show or set worker feature flags",
	Long:  "Without arguments, lists the enabled state of every worker. With a worker name and --enable or --disable, sets its flag. Disabled workers answer scheduler requests with a skip.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("flags"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if len(args) == 0 {
			if flagsEnable || flagsDisable {
				return eris.New("provide a worker name to change a flag")
			}
			for _, name := range knownWorkers() {
				enabled, err := st.WorkerEnabled(ctx, name)
				if err != nil {
					return eris.Wrapf(err, "read flag for %s", name)
				}
				state := "enabled"
				if !enabled {
					state = "disabled"
				}
				fmt.Printf("%-26s %s\n", name, state)
			}
			return nil
		}

		name := args[0]
		if flagsEnable == flagsDisable {
			return eris.New("pass exactly one of --enable or --disable")
		}
		if err := st.SetWorkerEnabled(ctx, name, flagsEnable); err != nil {
			return eris.Wrapf(err, "set flag for %s", name)
		}
		fmt.Printf("%s %s\n", name, map[bool]string{true: "enabled", false: "disabled"}[flagsEnable])
		return nil
	},
}

func init() {
	flagsCmd.Flags().BoolVar(&flagsEnable, "enable", false, "enable the worker")
	flagsCmd.Flags().BoolVar(&flagsDisable, "disable", false, "disable the worker")
	rootCmd.AddCommand(flagsCmd)
}
