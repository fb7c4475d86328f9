package jobqueue

import (
	"context"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/ManuelReschke/CleanConnect/internal/pkg/env"
)

const sweepBatchSize = 200

// CandidateLister lists issues whose resolution check is still pending.
type CandidateLister interface {
	ListReconcileCandidates(ctx context.Context, limit int) ([]string, error)
}

// Manager owns the global job queue and the periodic reconciliation sweep
type Manager struct {
	queue         *Queue
	reconciler    Reconciler
	lister        CandidateLister
	sweepInterval time.Duration
	sweepTicker   *time.Ticker
	enqueue       func(ctx context.Context, issueID, reason string) error
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.Mutex
	running       bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	managerOnce.Do(func() {
		globalManager = newManager(NewQueue(env.GetEnvInt("RECONCILE_WORKERS", 2)))
	})
	return globalManager
}

func newManager(queue *Queue) *Manager {
	m := &Manager{
		queue:         queue,
		sweepInterval: time.Duration(env.GetEnvInt("RECONCILE_SWEEP_MINUTES", 15)) * time.Minute,
		stopCh:        make(chan struct{}),
	}
	m.enqueue = queue.EnqueueReconcile
	return m
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start registers the reconcile handler, starts the workers and the sweep
func (m *Manager) Start(reconciler Reconciler, lister CandidateLister) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return
	}

	m.reconciler = reconciler
	m.lister = lister
	m.stopCh = make(chan struct{})
	m.running = true
	log.Info("[JobQueue Manager] Starting job queue and reconciliation sweep")

	m.queue.RegisterHandler(JobTypeReconcileResolution, NewReconcileHandler(reconciler))
	m.queue.Start()

	m.sweepTicker = time.NewTicker(m.sweepInterval)
	m.wg.Add(1)
	go m.sweepWorker()

	log.Info("[JobQueue Manager] Started successfully")
}

// Stop stops the sweep and the job queue
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")
	if m.sweepTicker != nil {
		m.sweepTicker.Stop()
	}
	close(m.stopCh)
	m.running = false
	m.wg.Wait()
	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped successfully")
}

// IsRunning reports whether the manager has been started
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

func (m *Manager) sweepWorker() {
	defer m.wg.Done()
	for {
		select {
		case <-m.stopCh:
			return
		case <-m.sweepTicker.C:
			if n, err := m.SweepOnce(context.Background()); err != nil {
				log.Errorf("[JobQueue Manager] Reconciliation sweep failed: %v", err)
			} else if n > 0 {
				log.Infof("[JobQueue Manager] Reconciliation sweep resolved %d issues", n)
			}
		}
	}
}

// SweepOnce reconciles every issue with a pending resolution check inline. Candidates that fail are handed
// to the queue for retry. It returns the number of issues resolved.
func (m *Manager) SweepOnce(ctx context.Context) (int, error) {
	ids, err := m.lister.ListReconcileCandidates(ctx, sweepBatchSize)
	if err != nil {
		return 0, err
	}

	resolved := 0
	for _, id := range ids {
		_, changed, err := m.reconciler.Reconcile(ctx, id)
		if err != nil {
			log.Warnf("[JobQueue Manager] Reconciling issue %s failed, queueing retry: %v", id, err)
			if qerr := m.enqueue(ctx, id, err.Error()); qerr != nil {
				log.Errorf("[JobQueue Manager] Failed to queue reconcile for issue %s: %v", id, qerr)
			}
			continue
		}
		if changed {
			resolved++
		}
	}
	return resolved, nil
}
