package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/geoexplorer/internal/render"
	"github.com/MeKo-Tech/geoexplorer/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve explorer sessions over HTTP and websocket",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Int("viewport-width", 1024, "Viewport width in pixels used to pick fitted zooms")
	serveCmd.Flags().Int("viewport-height", 768, "Viewport height in pixels used to pick fitted zooms")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "Grace period for in-flight requests on shutdown")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.viewport_width", "viewport-width")
	mustBind("serve.viewport_height", "viewport-height")
	mustBind("serve.shutdown_timeout", "shutdown-timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	addr := viper.GetString("serve.addr")
	country := viper.GetString("country")

	router := newOSRMClient()
	srv := server.New(server.Config{
		Sessions: server.SessionConfig{
			Geo:         newOverpassClient(),
			Router:      router,
			CountryCode: country,
			Render: render.Options{
				ViewportWidth:  viper.GetInt("serve.viewport_width"),
				ViewportHeight: viper.GetInt("serve.viewport_height"),
			},
		},
		Search: newNominatimClient(),
		Logger: logger,
	})
	defer srv.Close()

	httpSrv := &http.Server{Addr: addr, Handler: srv.Handler(), ReadHeaderTimeout: 5 * time.Second}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("explorer server listening",
			"addr", addr,
			"country", country,
			"overpass", viper.GetString("overpass.endpoint"),
			"osrm", viper.GetString("osrm.endpoint"),
		)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down", "sessions", srv.Sessions().Len())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("serve.shutdown_timeout"))
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}
