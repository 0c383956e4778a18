package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newCheckCmd(opts *rootOptions) *cobra.Command {
	var quiet bool
	cmd := &cobra.Command{
		Use:   "check [PATH...]",
		Short: "Parse crontab files or directories and report rejected lines",
		Long: `Parse each PATH (a crontab file or a directory of them; the configured
directory when none is given). Accepted entries are listed, rejected lines are
reported with file, line and error tag, and the exit status is 1 if anything
was rejected.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			files, err := loadPaths(cmd, a, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			entries := 0
			if !quiet {
				tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
				for _, f := range files {
					for _, e := range f.Entries {
						flags := ""
						if e.LogSuppressed() {
							flags = " (no log)"
						}
						fmt.Fprintln(tw, entryHeader(e)+flags)
					}
				}
				_ = tw.Flush()
			}
			for _, f := range files {
				entries += len(f.Entries)
			}
			failed := printFailures(cmd.ErrOrStderr(), files)
			fmt.Fprintf(out, "%d files, %d entries\n", len(files), entries)
			if failed {
				return errFailures
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "only report rejected lines")
	return cmd
}
