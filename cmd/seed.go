package main

import (
	"context"
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/draftline/content-cli/internal/model"
	"github.com/draftline/content-cli/internal/store"
)

var seedDemo bool

// Default label sets for a fresh database. Operators extend these later;
// classification workers re-read them every run.
var defaultLabels = map[model.LabelKind][]string{
	model.LabelKindHookCategory: {
		"Storytelling", "Contrarian Take", "Question", "Statistic",
		"How-To", "Listicle", "Personal Win", "Failure Lesson",
	},
	model.LabelKindTopic: {
		"Leadership", "Sales", "Marketing", "Hiring",
		"Product", "Fundraising", "Career Growth", "Company Culture",
	},
	model.LabelKindAudience: {
		"Founders", "Sales Leaders", "Marketers", "Engineers",
		"Job Seekers", "Executives",
	},
}

var demoContent = []struct {
	content    string
	engagement int
}{
	{"I was rejected 47 times before my first yes.\n\nHere is what those 47 conversations taught me about selling a product nobody asked for.", 412},
	{"Unpopular opinion: your pipeline problem is a positioning problem.\n\nMost teams chase more leads when the real fix is a sharper story.", 238},
	{"What would you do with 10 extra hours a week?\n\nWe asked 200 sales leaders. The answers surprised us.", 167},
	{"73% of cold outreach dies in the first sentence.\n\nThree openers that consistently beat that number.", 391},
	{"How to run a discovery call that does not feel like an interrogation, in five steps.", 129},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the default label sets, and optionally demo content",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("seed"); err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate")
		}

		created, err := seedLabels(ctx, st)
		if err != nil {
			return err
		}
		fmt.Printf("labels created: %d\n", created)

		if seedDemo {
			author, items, err := seedDemoAuthor(ctx, st)
			if err != nil {
				return err
			}
			fmt.Printf("demo author %s created with %d items\n", author.ID, items)
		}

		return nil
	},
}

// seedLabels inserts any default label missing from the store. Existing
// labels are never touched.
func seedLabels(ctx context.Context, st store.Store) (int, error) {
	created := 0
	for kind, names := range defaultLabels {
		existing, err := st.ListLabels(ctx, kind)
		if err != nil {
			return 0, eris.Wrapf(err, "list %s labels", kind)
		}
		have := make(map[string]bool, len(existing))
		for _, l := range existing {
			have[l.Name] = true
		}
		for _, name := range names {
			if have[name] {
				continue
			}
			if _, err := st.CreateLabel(ctx, kind, name); err != nil {
				return 0, eris.Wrapf(err, "create %s label %q", kind, name)
			}
			created++
		}
	}
	return created, nil
}

func seedDemoAuthor(ctx context.Context, st store.Store) (*model.Author, int, error) {
	author, err := st.CreateAuthor(ctx, model.Author{
		Name:   "Demo Author",
		Status: model.SyncStatusScraped,
	})
	if err != nil {
		return nil, 0, eris.Wrap(err, "create demo author")
	}

	for _, post := range demoContent {
		if _, err := st.CreateItem(ctx, model.ContentItem{
			AuthorID:   author.ID,
			Content:    post.content,
			Engagement: post.engagement,
		}); err != nil {
			return nil, 0, eris.Wrap(err, "create demo item")
		}
	}

	zap.L().Info("seeded demo author",
		zap.String("author_id", author.ID),
		zap.Int("items", len(demoContent)),
	)
	return author, len(demoContent), nil
}

func init() {
	seedCmd.Flags().BoolVar(&seedDemo, "demo", false, "also create a demo author with unenriched posts")
	rootCmd.AddCommand(seedCmd)
}
