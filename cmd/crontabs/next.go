package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newNextCmd(opts *rootOptions) *cobra.Command {
	var (
		at    string
		count int
	)
	cmd := &cobra.Command{
		Use:   "next [PATH...]",
		Short: "Print the next occurrences of every entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			loc := a.Location()
			from := time.Now().In(loc)
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("--at: %w", err)
				}
				from = t.In(loc)
			}
			if count <= 0 {
				count = 1
			}

			files, err := loadPaths(cmd, a, args)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, f := range files {
				for _, e := range f.Entries {
					fmt.Fprintln(out, entryHeader(e))
					if e.IsReboot() {
						fmt.Fprintln(out, "  at boot only")
						continue
					}
					times := e.NextN(from, count)
					if len(times) == 0 {
						fmt.Fprintln(out, "  never")
						continue
					}
					for _, t := range times {
						fmt.Fprintf(out, "  %s  (%s)\n", t.Format(time.RFC3339), humanize.RelTime(t, from, "ago", "from now"))
					}
				}
			}
			if printFailures(cmd.ErrOrStderr(), files) {
				return errFailures
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "reference time (RFC3339); default now")
	cmd.Flags().IntVarP(&count, "count", "n", 1, "occurrences per entry")
	return cmd
}
