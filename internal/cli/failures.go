package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/eventflow/pkg/eventflow/failure"
)

// NewFailuresCommand creates the failures command.
func NewFailuresCommand(rootOpts *RootOptions) *cobra.Command {
	var (
		db    string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "failures",
		Short: "List recorded publication failures",
		Long: `List the subscription handler failures recorded in a SQLite failure
log, newest first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFailures(cmd.Context(), cmd, rootOpts, db, limit)
		},
	}

	cmd.Flags().StringVar(&db, "db", "", "path to the SQLite failure log (required)")
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum records to show; 0 shows all")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runFailures(ctx context.Context, cmd *cobra.Command, opts *RootOptions, db string, limit int) error {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := failure.NewSQLiteStore(db)
	if err != nil {
		return err
	}
	defer store.Close()

	records, err := store.List(ctx, limit)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if opts.Format == "json" {
		if records == nil {
			records = []failure.Record{}
		}
		return writeJSON(w, records)
	}

	if len(records) == 0 {
		fmt.Fprintln(w, "no failures recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RECORDED\tSOURCE\tEVENT\tSUBSCRIPTION\tERROR")
	for _, r := range records {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.RecordedAt.Format(time.RFC3339), r.SourceType, r.EventField, r.SubscriptionID, r.Error)
	}
	return tw.Flush()
}
