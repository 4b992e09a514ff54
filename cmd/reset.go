package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/draftline/content-cli/internal/model"
)

var resetCmd = &cobra.Command{
	Use:   "reset <author-id>",
	Short: "Reopen a completed author for re-enrichment",
	Long:  "Clears the author's style profile, moves them back to scraped, and re-raises every stage flag on their items. Used after a fresh scrape.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("reset"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		authorID := args[0]
		if err := st.ResetAuthor(ctx, authorID); err != nil {
			return eris.Wrapf(err, "reset author %s", authorID)
		}
		if err := st.UpdateAuthorStatus(ctx, authorID, model.SyncStatusScraped); err != nil {
			return eris.Wrapf(err, "update author %s status", authorID)
		}

		fmt.Printf("author %s reopened\n", authorID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(resetCmd)
}
