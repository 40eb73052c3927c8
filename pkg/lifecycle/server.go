package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mfreeman451/compdata/pkg/api"
	"github.com/mfreeman451/compdata/pkg/bus"
)

const (
	ShutdownTimeout = 10 * time.Second
)

// ServerOptions holds everything needed to run a worker.
type ServerOptions struct {
	ServiceName string
	BusServer   *bus.Server
	APIServer   *api.Server
	ListenAddr  string
}

// Run starts the bus consumers (and the status API when a listen
// address is configured) and blocks until a termination signal or a
// component failure. A clean signal exit returns nil.
func Run(ctx context.Context, opts *ServerOptions) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	log.Printf("*** Starting service %s", opts.ServiceName)

	errChan := make(chan error, 2)

	go func() {
		if err := opts.BusServer.Start(ctx); err != nil {
			select {
			case errChan <- fmt.Errorf("bus server: %w", err):
			default:
				log.Printf("Bus server error: %v", err)
			}
		}
	}()

	if opts.APIServer != nil && opts.ListenAddr != "" {
		go func() {
			if err := opts.APIServer.Start(opts.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
				select {
				case errChan <- fmt.Errorf("status API: %w", err):
				default:
					log.Printf("Status API error: %v", err)
				}
			}
		}()
	}

	return handleShutdown(ctx, cancel, opts, errChan)
}

func handleShutdown(ctx context.Context, cancel context.CancelFunc, opts *ServerOptions, errChan chan error) error {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	var runErr error

	select {
	case sig := <-sigChan:
		log.Printf("Received signal %v, initiating shutdown", sig)
	case err := <-errChan:
		log.Printf("Received error: %v, initiating shutdown", err)

		runErr = err
	case <-ctx.Done():
		log.Printf("Context canceled, initiating shutdown")

		runErr = ctx.Err()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), ShutdownTimeout)
	defer shutdownCancel()

	// Canceling the main context drains the bus workers.
	cancel()

	if opts.APIServer != nil {
		if err := opts.APIServer.Stop(shutdownCtx); err != nil {
			log.Printf("Error stopping status API: %v", err)
		}
	}

	return runErr
}
