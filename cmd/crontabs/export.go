package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"crontabs/internal/config"
	"crontabs/internal/storage"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var st config.StorageConfig
	cmd := &cobra.Command{
		Use:   "export [DIR]",
		Short: "Scan a crontab directory and write a report to the configured store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			if st.Driver != "" {
				a.Config().Storage = &st
			}

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			res, err := a.Loader(dir).Load(cmd.Context())
			if err != nil {
				return err
			}

			store, err := a.OpenStore()
			if errors.Is(err, storage.ErrDisabled) {
				return errors.New("no report store configured: set storage.driver or pass --driver")
			}
			if err != nil {
				return err
			}
			defer store.Close()

			sc, err := a.Export(cmd.Context(), store, res)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "scan %s: %d entries, %d failures\n", sc.ID, len(sc.Entries), len(sc.Failures))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&st.Driver, "driver", "", "report store driver: file, sqlite or postgres")
	f.StringVar(&st.Path, "path", "", "report file prefix or sqlite database path")
	f.StringVar(&st.DSN, "dsn", "", "postgres connection string")
	f.StringVar(&st.BusyTimeout, "busy-timeout", "", "sqlite busy timeout (e.g. 2s)")
	return cmd
}
