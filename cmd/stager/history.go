package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/stager/internal/ledger"
)

func newHistoryCommand() *cobra.Command {
	var limit int
	var historyDB string
	var showArtifacts bool
	cmd := &cobra.Command{
		Use:           "history",
		Short:         "List recorded stage runs",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := historyDB
			if path == "" {
				var err error
				path, err = ledger.DefaultPath()
				if err != nil {
					return err
				}
			}
			l, err := ledger.Open(path)
			if err != nil {
				return err
			}
			defer l.Close()

			runs, err := l.Recent(limit)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No stage runs recorded yet")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tWHEN\tMODULE\tSTATUS\tCOMMIT\tDURATION")
			for _, run := range runs {
				commit := run.GitCommit
				if len(commit) > 12 {
					commit = commit[:12]
				}
				if run.GitDirty {
					commit += "*"
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\t%s\n",
					run.ID,
					run.StartedAt.Local().Format("2006-01-02 15:04:05"),
					run.Module,
					run.Status,
					commit,
					run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond))
				if showArtifacts {
					for _, a := range run.Artifacts {
						fmt.Fprintf(w, "\t%s\t%s\t%d bytes\t\t\n", a.Path, shortDigest(a.Digest), a.Size)
					}
				}
			}
			return w.Flush()
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	cmd.Flags().StringVar(&historyDB, "history-db", "", "Path to the history database (default: user state dir)")
	cmd.Flags().BoolVar(&showArtifacts, "artifacts", false, "Show per-run staged artifacts and digests")
	return cmd
}
