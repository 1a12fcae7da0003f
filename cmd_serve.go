package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/xiaoyuanzhu-com/session-title/api"
	"github.com/xiaoyuanzhu-com/session-title/config"
	"github.com/xiaoyuanzhu-com/session-title/log"
	"github.com/xiaoyuanzhu-com/session-title/server"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// runServe runs the session store until SIGINT or SIGTERM
func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Get()

	srv, err := server.New(server.FromAppConfig(cfg))
	if err != nil {
		return err
	}

	// Routes are mounted here because api depends on server
	api.SetupRoutes(srv.Router(), api.NewHandlers(srv))

	if cfg.SecretKey == "" {
		log.Warn().Msg("SECRET_KEY is empty, API requests are not authenticated")
	}
	printNetworkAddresses(cfg.Port)

	ctx, stop := signal.NotifyContext(commandContext(cmd), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown on signal or server failure
	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func printNetworkAddresses(port int) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok {
				if ip4 := ipnet.IP.To4(); ip4 != nil {
					log.Info().Str("url", fmt.Sprintf("http://%s:%d", ip4.String(), port)).Msg("network")
				}
			}
		}
	}
}
