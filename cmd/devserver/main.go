// Command devserver serves the in-memory CipherSafe backend for trying the
// CLI locally. Passcodes and reset links are printed to the log instead of
// being emailed. State is lost on exit.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/ciphersafe/internal/client/backendfake"
	"github.com/dmitrijs2005/ciphersafe/internal/logging"
	"github.com/dmitrijs2005/ciphersafe/internal/redact"
)

func initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func main() {
	addr := flag.String("a", ":8000", "listen address")
	level := flag.String("l", "info", "log level")
	flag.Parse()

	logger := logging.New(os.Stdout, *level)
	ctx, cancelFunc := context.WithCancel(context.Background())
	initSignalHandler(cancelFunc)

	fake := backendfake.New(backendfake.WithMailer(func(to, body string) {
		logger.Info(ctx, "mail", "to", redact.Email(to), "body", body)
	}))
	srv := &http.Server{
		Addr:              *addr,
		Handler:           fake.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		logger.Info(ctx, "starting dev backend", "addr", *addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error(ctx, "server failed", "error", err)
			cancelFunc()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error(shutdownCtx, "shutdown failed", "error", err)
	}
	wg.Wait()
	logger.Info(shutdownCtx, "stopped")
}
