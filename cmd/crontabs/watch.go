package main

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/spf13/cobra"

	"crontabs/internal/runtime/supervisor"
	"crontabs/internal/storage"
	logx "crontabs/pkg/logx"
)

// stopTimeout bounds how long watch waits for its goroutines on shutdown.
const stopTimeout = 5 * time.Second

func newWatchCmd(opts *rootOptions) *cobra.Command {
	var export bool
	cmd := &cobra.Command{
		Use:   "watch [DIR]",
		Short: "Rescan a crontab directory whenever it changes",
		Long: `Scan DIR (the configured directory by default), then rescan on every change
until interrupted. Each changed scan is summarized, and with --export written to
the configured report store. Under systemd (Type=notify) readiness and reloads
are reported through sd_notify.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()
			log := a.Logger().With(logx.String("comp", "watch"))

			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			w, err := a.Watcher(dir)
			if err != nil {
				return err
			}

			var st storage.Store
			if export {
				if st, err = a.OpenStore(); err != nil {
					if errors.Is(err, storage.ErrDisabled) {
						return errors.New("--export needs a storage section in the config")
					}
					return err
				}
				defer st.Close()
			}

			results := w.Subscribe(4)
			defer w.Unsubscribe(results)
			events, unsub := a.Bus().Subscribe(32)
			defer unsub()

			sup := supervisor.New(cmd.Context(),
				supervisor.WithLogger(log),
				supervisor.WithCancelOnError(true))
			sup.Go("watcher", w.Run)
			sup.Go("events", func(ctx context.Context) error {
				for {
					select {
					case <-ctx.Done():
						return nil
					case ev, ok := <-events:
						if !ok {
							return nil
						}
						log.Debug("event", logx.String("type", ev.Type), logx.Any("data", ev.Data))
					}
				}
			})

			out := cmd.OutOrStdout()
			var first atomic.Bool
			first.Store(true)
			sup.GoRestart("report", func(ctx context.Context) error {
				for {
					select {
					case <-ctx.Done():
						return nil
					case res := <-results:
						if !first.Load() {
							notify(log, daemon.SdNotifyReloading)
						}
						fmt.Fprintf(out, "%s  %s: %d files, %d entries, %d failures\n",
							res.Time.In(a.Location()).Format("2006-01-02 15:04:05"), res.Dir,
							len(res.Files), len(res.Entries()), res.Failures())
						printFailures(cmd.ErrOrStderr(), res.Files)
						if st != nil {
							if _, err := a.Export(ctx, st, res); err != nil {
								log.Warn("scan export failed", logx.Err(err))
							}
						}
						notify(log, daemon.SdNotifyReady)
						first.Store(false)
					}
				}
			}, supervisor.WithMaxRestarts(3))

			<-sup.Done()
			notify(log, daemon.SdNotifyStopping)
			stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
			defer cancel()
			return sup.Stop(stopCtx)
		},
	}
	cmd.Flags().BoolVar(&export, "export", false, "write every changed scan to the configured report store")
	return cmd
}

func notify(log logx.Logger, state string) {
	sent, err := daemon.SdNotify(false, state)
	if err != nil {
		log.Warn("sd_notify failed", logx.String("state", state), logx.Err(err))
		return
	}
	if sent {
		log.Debug("sd_notify sent", logx.String("state", state))
	}
}
