package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"inventory_admin/internal/app"
	"inventory_admin/internal/config"
	"inventory_admin/internal/gateway"
	"inventory_admin/internal/pkg/logger"
	"inventory_admin/internal/service"
	"inventory_admin/internal/session"
	"inventory_admin/internal/storage"
)

func main() {
	var l *logger.Logger
	var err error
	if l, err = logger.CreateLogger(config.LogLevel); err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer l.Sync()

	ctx := context.Background()
	store, err := storage.Open(ctx, config.SessionStore, config.SessionDSN, l)
	if err != nil {
		log.Fatal(err)
	}
	defer store.Close()

	sess := session.NewManager(ctx, store, l)
	gw := gateway.New(config.APIBaseURL, config.APIPrefix, sess, l, gateway.WithLoginPath(config.LoginPath))
	admin := app.NewApp(gw, sess, config.PageSize, l)
	service := service.NewService(admin, config.ServerRunAddress, l)

	const readHeaderTimeout = 5 * time.Second
	server := &http.Server{Addr: config.ServerRunAddress, Handler: service.NewRouter(), ReadHeaderTimeout: readHeaderTimeout}

	serverCtx, serverStopCtx := context.WithCancel(ctx)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sig

		const shutdownTimeout = 30 * time.Second
		shutdownCtx, cancel := context.WithTimeout(serverCtx, shutdownTimeout)
		defer cancel()

		go func() {
			<-shutdownCtx.Done()
			if errors.Is(shutdownCtx.Err(), context.DeadlineExceeded) {
				log.Fatal("graceful shutdown timed out.. forcing exit.")
			}
		}()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Fatal(err)
		}
		serverStopCtx()
	}()

	l.Sugar().Infof("Dashboard listening on %s, backend %s%s", config.ServerRunAddress, config.APIBaseURL, config.APIPrefix)
	if err = server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal(err)
	}

	<-serverCtx.Done()
}
