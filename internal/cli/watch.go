package cli

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel"

	"github.com/aaronromeo/imappush/internal/announcer"
	"github.com/aaronromeo/imappush/internal/config"
	"github.com/aaronromeo/imappush/internal/imapfolder"
	"github.com/aaronromeo/imappush/internal/push"
	"github.com/aaronromeo/imappush/internal/receiver"
	"github.com/aaronromeo/imappush/internal/statestore"
	"github.com/aaronromeo/imappush/internal/statusserver"
	"github.com/aaronromeo/imappush/internal/telemetry"
	"github.com/aaronromeo/imappush/internal/wakelock"
)

const shutdownTimeout = 30 * time.Second

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Push the configured folders with IMAP IDLE",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		env, err := config.EnvFromEnv()
		if err != nil {
			return err
		}
		verbose, err := cmd.Flags().GetBool("verbose")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), config.Summary(cfg, env))

		ctx, stop := signal.NotifyContext(commandContext(cmd), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runWatch(ctx, cmd, cfg, env, verbose)
	},
}

func init() {
	watchCmd.Flags().String("config", "", "Path to YAML config file (or set IMAPPUSH_CONFIG)")
	watchCmd.Flags().Bool("verbose", false, "Enable verbose logging")
}

// runWatch pushes until ctx is done or every folder pusher has given up.
func runWatch(ctx context.Context, cmd *cobra.Command, cfg config.Config, env config.Env, verbose bool) (err error) {
	telemetryOpts := telemetry.Options{
		Endpoint:       env.OTLPEndpoint,
		Insecure:       env.OTLPInsecure,
		ServiceVersion: version,
	}
	shutdownTelemetry, err := telemetry.Setup(ctx, telemetryOpts)
	if err != nil {
		return fmt.Errorf("set up telemetry: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		err = errors.Join(err, shutdownTelemetry(shutdownCtx))
	}()

	logger := telemetry.NewLogger(cmd.ErrOrStderr(), verbose, telemetryOpts.Enabled())

	states, err := statestore.Open(cfg.State.Path)
	if err != nil {
		return err
	}
	defer states.Close() //nolint:errcheck

	store, err := imapfolder.NewStore(
		imapfolder.WithAddr(env.IMAPAddr()),
		imapfolder.WithCreds(env.IMAPUser, env.IMAPPass),
		imapfolder.WithTLSConfig(&tls.Config{
			ServerName:         env.IMAPHost,
			InsecureSkipVerify: env.InsecureSkipVerify, //nolint:gosec
		}),
		imapfolder.WithLogger(logger),
	)
	if err != nil {
		return err
	}

	announce := announcer.New(announcer.WithWebhookURL(env.WebhookURL))
	recv := receiver.New(store, states,
		receiver.WithLogger(logger),
		receiver.WithAnnouncer(announce),
	)

	meterProvider := otel.GetMeterProvider()
	newWakeLock := func(folder string) push.WakeLock {
		return wakelock.New("imappush:"+folder,
			wakelock.WithLogger(logger),
			wakelock.WithMeterProvider(meterProvider),
		)
	}
	pusher := push.NewPusher(store.Folder, newWakeLock, recv, cfg.Push,
		push.WithLogger(logger),
		push.WithMeterProvider(meterProvider),
		push.WithTracerProvider(otel.GetTracerProvider()),
	)

	if err := pusher.Start(cfg.Folders); err != nil {
		logger.Error("Some folders could not be started", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := pusher.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Push workers did not stop in time", "error", err)
		}
	}()

	serverErr := make(chan error, 1)
	if cfg.Status.Addr != "" {
		var srvOpts []statusserver.Option
		srvOpts = append(srvOpts, statusserver.WithLogger(logger))
		if telemetryOpts.Enabled() {
			srvOpts = append(srvOpts, statusserver.WithTelemetry(otel.GetTracerProvider(), meterProvider))
		}
		srv := statusserver.New(pusher, recv, srvOpts...)
		go func() {
			serverErr <- srv.Run(ctx, cfg.Status.Addr)
		}()
	}

	workersDone := make(chan error, 1)
	go func() {
		workersDone <- pusher.Wait(ctx)
	}()

	refresh := time.NewTicker(cfg.Push.RefreshInterval())
	defer refresh.Stop()

	logger.Info("Watching", "store", store.LogID(), "folders", cfg.Folders)
	for {
		select {
		case <-ctx.Done():
			logger.Info("Stopping")
			return nil
		case <-refresh.C:
			logger.Debug("Refreshing IDLE sessions")
			pusher.Refresh()
		case err := <-serverErr:
			if err != nil {
				return fmt.Errorf("status server: %w", err)
			}
		case err := <-workersDone:
			if err == nil {
				return errors.New("all folder pushers stopped")
			}
		}
	}
}
