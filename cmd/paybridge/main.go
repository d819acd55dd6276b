// Command paybridge runs the bridge against the in-process payment
// simulator so host integrations can be exercised without a device.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arko-chat/paybridge/internal/config"
	"github.com/arko-chat/paybridge/internal/credentials"
	"github.com/arko-chat/paybridge/internal/logger"
	"github.com/arko-chat/paybridge/internal/server"
	"github.com/arko-chat/paybridge/internal/simulator"
	"github.com/toqueteos/webbrowser"
	"golang.org/x/sync/errgroup"
)

func main() {
	configDir := flag.String("config", "", "config directory (default: user config dir)")
	open := flag.Bool("open", false, "open the status page in the browser")
	storeKey := flag.String("store-merchant-key", "", "save a merchant public key in the system keyring and exit")
	forgetKey := flag.Bool("forget-merchant-key", false, "remove the saved merchant public key and exit")
	flag.Parse()

	if err := config.LoadDotEnv(); err != nil {
		fmt.Fprintln(os.Stderr, "load .env:", err)
		os.Exit(1)
	}

	cfg, err := config.Load(*configDir)
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}

	switch {
	case *storeKey != "":
		if err := credentials.StoreMerchantKey(cfg.DefaultEnvironment, *storeKey); err != nil {
			fmt.Fprintln(os.Stderr, "store merchant key:", err)
			os.Exit(1)
		}
		return
	case *forgetKey:
		credentials.DeleteMerchantKey(cfg.DefaultEnvironment)
		return
	}

	slogger := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err := run(cfg, *open, slogger); err != nil {
		slogger.Error("paybridge stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, open bool, slogger *slog.Logger) error {
	sim, err := simulator.FromConfig(cfg.Simulator, slogger)
	if err != nil {
		return fmt.Errorf("simulator: %w", err)
	}

	srv, err := server.New(cfg, sim, slogger)
	if err != nil {
		return err
	}

	addr, err := srv.Listen(cfg.ListenAddr)
	if err != nil {
		return err
	}
	slogger.Info("server starting", "addr", addr, "token", srv.Token)

	if cfg.MerchantPublicKey != "" {
		_, err := srv.Plugin.Dispatch(context.Background(), "init", map[string]any{
			"merchantPublicKey": cfg.MerchantPublicKey,
			"environment":       cfg.DefaultEnvironment,
		})
		if err != nil {
			slogger.Warn("auto init failed", "err", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(srv.Serve)
	g.Go(func() error {
		<-ctx.Done()
		slogger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if open {
		if err := webbrowser.Open(addr + "/?token=" + url.QueryEscape(srv.Token)); err != nil {
			slogger.Warn("could not open browser", "err", err)
		}
	}

	return g.Wait()
}
