package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/itohio/goscale/pkg/config"
	"github.com/itohio/goscale/pkg/scale"
	"github.com/itohio/goscale/pkg/sink"
)

func runCommand(g *globals) *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the weighing pipeline",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(g)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, interactive)
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "I", false, "keys: t tare, c calibrate, +/- mock load, q quit")
	return cmd
}

func run(ctx context.Context, cfg *config.Config, interactive bool) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	dev, mock, err := openDevice(cfg)
	if err != nil {
		return err
	}
	defer dev.Close()

	proc := scale.New(cfg.Scale, dev, slog.Default())

	sinks, hub, err := buildSinks(ctx, cfg, proc)
	if err != nil {
		return err
	}
	dispatcher := sink.NewDispatcher(slog.Default(), sinks...)
	defer func() {
		if err := dispatcher.Close(); err != nil {
			slog.Warn("closing sinks", "err", err)
		}
	}()

	if hub != nil {
		srv := serveHub(cfg.WebSocket, hub)
		defer func() {
			shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
			defer done()
			_ = srv.Shutdown(shutdownCtx)
		}()
	}

	if interactive {
		keys, err := keyEvents(ctx)
		if err != nil {
			return fmt.Errorf("interactive mode unavailable: %w", err)
		}
		go interact(keys, cancel, proc, mock, cfg.Scale.ReferenceWeight)
	}

	done := proc.Start(ctx)
	dispatched := make(chan struct{})
	go func() {
		dispatcher.Run(ctx, proc.Results())
		close(dispatched)
	}()

	err = <-done
	<-dispatched
	if errors.Is(err, context.Canceled) {
		slog.Info("stopped")
		return nil
	}
	return err
}

// buildSinks creates the enabled result consumers. The hub is also returned
// so it can be mounted on an HTTP server.
func buildSinks(ctx context.Context, cfg *config.Config, ctl sink.Controller) ([]sink.Sink, *sink.Hub, error) {
	var (
		hub   *sink.Hub
		sinks = []sink.Sink{sink.NewLog(slog.Default())}
	)

	closeAll := func() {
		for _, s := range sinks {
			_ = s.Close()
		}
	}

	if cfg.MQTT.Enabled {
		m, err := sink.NewMQTT(cfg.MQTT, ctl, slog.Default())
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, m)
	}

	if cfg.ClickHouse.Enabled {
		c, err := sink.NewClickHouse(ctx, cfg.ClickHouse, slog.Default())
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		sinks = append(sinks, c)
	}

	if cfg.WebSocket.Enabled {
		hub = sink.NewHub(ctl, slog.Default())
		sinks = append(sinks, hub)
	}

	return sinks, hub, nil
}

func serveHub(cfg config.WebSocketConfig, hub *sink.Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, hub)

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		slog.Info("websocket listening", "addr", cfg.Listen, "path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("websocket server failed", "err", err)
		}
	}()
	return srv
}
