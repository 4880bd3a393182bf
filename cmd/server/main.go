/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the leave engine server. Handles configuration,
  dependency injection, policy seeding, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Seed policies and leave types (standard bundle or -seed file)
  4. Create API handler with dependencies
  5. Start accrual scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port              HTTP server port (default: 8080)
  -db                SQLite database path (default: leave.db)
                     Use ":memory:" for in-memory database
  -seed              Policy bundle JSON path (default: built-in standard bundle)
  -accrual-interval  How often the accrual sweep runs (default: 1h, 0 disables)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Stop the accrual scheduler
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/leave.db"

  # Run with a custom policy bundle
  ./server -seed="./policies/company.json"

  # Daily accruals instead of hourly
  ./server -accrual-interval=24h

SEE ALSO:
  - api/server.go: Router configuration
  - api/scheduler.go: Accrual scheduler
  - factory/policy.go: Policy bundle format
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fairwork/leave-engine/api"
	"github.com/fairwork/leave-engine/factory"
	"github.com/fairwork/leave-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "leave.db", "SQLite database path")
	seedPath := flag.String("seed", "", "policy bundle JSON path (empty = built-in standard bundle)")
	accrualInterval := flag.Duration("accrual-interval", 1*time.Hour, "accrual sweep interval (0 disables)")
	flag.Parse()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Seed policies and leave types
	if err := seedBundle(context.Background(), store, *seedPath); err != nil {
		log.Fatalf("Failed to seed policies: %v", err)
	}

	// Initialize handler
	handler := api.NewHandler(store)

	// Start accrual scheduler
	scheduler := api.NewAccrualScheduler(store, handler.Ledger)
	if *accrualInterval <= 0 {
		scheduler.Enabled = false
	} else {
		scheduler.CheckInterval = *accrualInterval
	}
	scheduler.Start()
	defer scheduler.Stop()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%d", *port)
		log.Printf("API available at http://localhost:%d/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// seedBundle loads policies and leave types into the store. With no -seed
// flag the built-in standard bundle is used, and only when the store has no
// policies yet so restarts never clobber edits made through the API.
func seedBundle(ctx context.Context, store *sqlite.Store, path string) error {
	var bundle *factory.Bundle
	var err error

	if path != "" {
		bundle, err = factory.LoadBundle(path)
		if err != nil {
			return err
		}
	} else {
		existing, err := store.ListPolicies(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		bundle, err = factory.ParseBundle([]byte(factory.StandardBundleJSON()))
		if err != nil {
			return err
		}
	}

	for i := range bundle.Policies {
		if err := store.SavePolicy(ctx, &bundle.Policies[i]); err != nil {
			return err
		}
	}
	for i := range bundle.LeaveTypes {
		if err := store.SaveLeaveType(ctx, &bundle.LeaveTypes[i]); err != nil {
			return err
		}
	}

	log.Printf("Seeded %d policies and %d leave types", len(bundle.Policies), len(bundle.LeaveTypes))
	return nil
}
