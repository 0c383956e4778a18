package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"crontabs/internal/app"
	"crontabs/internal/crontab"
	"crontabs/internal/loader"
)

// errFailures is returned when a scan completed but some lines or files
// were rejected. The report has already been printed.
var errFailures = errors.New("crontab scan reported failures")

type rootOptions struct {
	configPath string
	system     bool
	owner      string
	timezone   string
	workers    int
	logLevel   string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "crontabs",
		Short: "Parse crontab files and compute when their entries run next",
		Long: `crontabs reads vixie-cron style crontabs, reports every line it cannot
accept with its file, line and error tag, and answers when each entry fires.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.configPath, "config", "", "config file (JSON or YAML); defaults apply when omitted")
	pf.BoolVar(&opts.system, "system", true, "system crontab layout (username column on every line)")
	pf.StringVar(&opts.owner, "owner", "", "owner of user crontabs (default: the file name)")
	pf.StringVar(&opts.timezone, "tz", "", "time zone for schedules (default: local)")
	pf.IntVar(&opts.workers, "workers", 0, "files parsed concurrently (default: GOMAXPROCS)")
	pf.StringVar(&opts.logLevel, "log-level", "", "TRACE, DEBUG, INFO, WARN or ERROR")

	cmd.AddCommand(
		newCheckCmd(opts),
		newNextCmd(opts),
		newWatchCmd(opts),
		newExportCmd(opts),
	)
	return cmd
}

// newApp builds the application from the config file and the flags that
// were set explicitly.
func (o *rootOptions) newApp(cmd *cobra.Command) (*app.App, error) {
	ov := app.Overrides{
		Owner:    o.owner,
		Timezone: o.timezone,
		Workers:  o.workers,
		LogLevel: o.logLevel,
	}
	if cmd.Flags().Changed("system") {
		v := o.system
		ov.System = &v
	}
	return app.New(o.configPath, ov)
}

// loadPaths parses each path, a directory or a single file, in order.
func loadPaths(cmd *cobra.Command, a *app.App, paths []string) ([]loader.FileResult, error) {
	if len(paths) == 0 {
		paths = []string{a.Config().Crontab.Dir}
	}
	var out []loader.FileResult
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if !fi.IsDir() {
			out = append(out, a.Loader(filepath.Dir(p)).LoadFile(p))
			continue
		}
		res, err := a.Loader(p).Load(cmd.Context())
		if err != nil {
			return nil, err
		}
		out = append(out, res.Files...)
	}
	return out, nil
}

// printFailures writes one line per rejected file or line and reports
// whether there were any.
func printFailures(w io.Writer, files []loader.FileResult) bool {
	failed := false
	for _, f := range files {
		if f.Err != nil {
			failed = true
			fmt.Fprintf(w, "%s: %v\n", f.Path, f.Err)
		}
		for _, pe := range f.Errors {
			failed = true
			fmt.Fprintln(w, pe.Error())
		}
	}
	return failed
}

func entryHeader(e *crontab.Entry) string {
	return fmt.Sprintf("%s:%d\t%s\t%s\t%s", e.File, e.Line, e.Owner.Name, e.Schedule(), e.Command)
}
