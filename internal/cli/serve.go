package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/localmem/memsys/internal/queue"
	"github.com/localmem/memsys/internal/server"
	"github.com/spf13/cobra"
)

// maintenanceInterval is how often the background maintenance sweep
// runs inside the serve process, independent of the queue consumer's
// own poll loop.
const maintenanceInterval = 6 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server and background queue consumer",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := openApp()
	if err != nil {
		return fmt.Errorf("wire components: %w", err)
	}
	defer a.Close()

	srv := server.New(a.mem, a.db, a.search, a.graph, a.promoter, a.sharer, a.review, a.maint, VersionString()).
		WithQueueCapacity(a.cfg.Queue.Capacity)
	addr := a.cfg.ListenAddr()

	httpServer := &http.Server{
		Addr:    addr,
		Handler: srv,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumer := queue.New(a.db, a.consolidator)
	go consumer.Run(ctx)
	go runMaintenanceLoop(ctx, a)

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		fmt.Fprintf(os.Stderr, "memsys serving on %s\n", addr)
		fmt.Fprintf(os.Stderr, "  memory dir: %s\n", a.cfg.Memory.MemoryDir)
		fmt.Fprintf(os.Stderr, "  db: %s\n", a.cfg.Database.Path)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			fmt.Fprintf(os.Stderr, "server error: %v\n", err)
			os.Exit(1)
		}
	}()

	<-done
	fmt.Fprintln(os.Stderr, "\nshutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	return httpServer.Shutdown(shutdownCtx)
}

// runMaintenanceLoop runs decay/archival on a fixed interval until ctx
// is cancelled, logging failures rather than exiting the server.
func runMaintenanceLoop(ctx context.Context, a *app) {
	ticker := time.NewTicker(maintenanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			windowKey := time.Now().Format("2006-01-02")
			if result, err := a.maint.RunDaily(windowKey, false); err != nil {
				fmt.Fprintf(os.Stderr, "maintenance: %v\n", err)
			} else {
				fmt.Fprintf(os.Stderr, "maintenance: %s\n", result.Summary())
			}
		}
	}
}
