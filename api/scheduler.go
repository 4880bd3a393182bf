/*
scheduler.go - Automated accrual scheduler

PURPOSE:
  Periodically brings every active employee's leave balances current by
  running the accrual sweep across all categories.

DESIGN:
  - Runs a background goroutine with configurable check interval
  - Accrual is idempotent via the per-balance watermark, so overlapping
    runs and restarts never double-credit
  - Employees without a service start date are skipped and logged

CONFIGURATION:
  - CheckInterval: How often to run (default: 1 hour)
  - Enabled: Whether scheduler is active (default: true)

USAGE:
  scheduler := NewAccrualScheduler(store, handler.Ledger)
  scheduler.Start()
  // ... later
  scheduler.Stop()

SEE ALSO:
  - handlers.go: RunAccruals endpoint (manual sweep)
  - leave/ledger.go: Accrue and the watermark invariant
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/fairwork/leave-engine/leave"
	"github.com/fairwork/leave-engine/store/sqlite"
)

// AccrualScheduler keeps balances current in the background.
type AccrualScheduler struct {
	Store         *sqlite.Store
	Ledger        *leave.Ledger
	CheckInterval time.Duration
	Enabled       bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewAccrualScheduler creates a new scheduler.
func NewAccrualScheduler(store *sqlite.Store, ledger *leave.Ledger) *AccrualScheduler {
	return &AccrualScheduler{
		Store:         store,
		Ledger:        ledger,
		CheckInterval: 1 * time.Hour,
		Enabled:       true,
		stop:          make(chan bool),
	}
}

// Start begins the scheduler.
func (as *AccrualScheduler) Start() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if !as.Enabled {
		log.Println("[Scheduler] Disabled, not starting")
		return
	}

	as.ticker = time.NewTicker(as.CheckInterval)
	as.wg.Add(1)

	go as.run()

	log.Printf("[Scheduler] Started with check interval: %v", as.CheckInterval)
}

// Stop stops the scheduler.
func (as *AccrualScheduler) Stop() {
	as.mu.Lock()
	defer as.mu.Unlock()

	if as.ticker != nil {
		as.ticker.Stop()
		close(as.stop)
		as.wg.Wait()
		log.Println("[Scheduler] Stopped")
	}
}

func (as *AccrualScheduler) run() {
	defer as.wg.Done()

	// Run immediately on start
	as.sweep()

	for {
		select {
		case <-as.ticker.C:
			as.sweep()
		case <-as.stop:
			return
		}
	}
}

func (as *AccrualScheduler) sweep() {
	log.Printf("[Scheduler] Running accrual sweep at %v", time.Now().Format(time.RFC3339))

	processed, failed := accrueAll(context.Background(), as.Store, as.Ledger)

	if processed > 0 || failed > 0 {
		log.Printf("[Scheduler] Completed: %d processed, %d failed", processed, failed)
	}
}

// RunNow triggers an immediate sweep (for testing/admin).
func (as *AccrualScheduler) RunNow() {
	as.sweep()
}

// GetNextRunTime returns when the next scheduled sweep will occur.
func (as *AccrualScheduler) GetNextRunTime() time.Time {
	return time.Now().Add(as.CheckInterval)
}

// accrueAll runs accrual for every active employee across all categories.
// Shared between the scheduler and the admin endpoint. Returns the number of
// employee/category pairs processed and the number that failed.
func accrueAll(ctx context.Context, store *sqlite.Store, ledger *leave.Ledger) (processed, failed int) {
	asOf := leave.Today()

	employees, err := store.ActiveEmployees(ctx)
	if err != nil {
		log.Printf("[Scheduler] Error listing employees: %v", err)
		return 0, 0
	}

	for _, emp := range employees {
		if emp.ServiceStart.IsZero() {
			log.Printf("[Scheduler] Skipping %s: no service start date", emp.ID)
			continue
		}
		for _, cat := range leave.Categories() {
			if err := ledger.Accrue(ctx, emp.ID, cat, asOf); err != nil {
				log.Printf("[Scheduler] Error accruing %s/%s: %v", emp.ID, cat, err)
				failed++
				continue
			}
			processed++
		}
	}

	return processed, failed
}
