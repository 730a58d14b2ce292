package jobqueue

import (
	"context"
	"sync"

	"github.com/gofiber/fiber/v2/log"
	"github.com/robfig/cron/v3"
)

const defaultReconcileSchedule = "@every 15m"

// Manager owns the global job queue and its scheduled tasks.
type Manager struct {
	queue             *Queue
	scheduler         *cron.Cron
	reconcileSchedule string
	mu                sync.Mutex
	running           bool
}

var (
	globalManager *Manager
	managerOnce   sync.Once
)

// InitManager creates the global manager once. Later calls return the
// existing instance unchanged.
func InitManager(workers int, reconcileSchedule string) *Manager {
	managerOnce.Do(func() {
		if reconcileSchedule == "" {
			reconcileSchedule = defaultReconcileSchedule
		}
		globalManager = &Manager{
			queue:             NewQueue(workers),
			reconcileSchedule: reconcileSchedule,
		}
	})
	return globalManager
}

// GetManager returns the global job queue manager (singleton)
func GetManager() *Manager {
	return InitManager(0, "")
}

// GetQueue returns the managed job queue
func (m *Manager) GetQueue() *Queue {
	return m.queue
}

// Start starts the workers and the reconcile schedule.
func (m *Manager) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.running {
		return nil
	}

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(m.reconcileSchedule, m.enqueueReconcile); err != nil {
		return err
	}

	log.Info("[JobQueue Manager] Starting job queue and background tasks")
	m.queue.Start()
	scheduler.Start()
	m.scheduler = scheduler
	m.running = true
	log.Infof("[JobQueue Manager] Reconcile scheduled %q", m.reconcileSchedule)
	return nil
}

// Stop stops the scheduler and waits for the workers.
func (m *Manager) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.running {
		return
	}

	log.Info("[JobQueue Manager] Stopping job queue and background tasks...")
	if m.scheduler != nil {
		<-m.scheduler.Stop().Done()
		m.scheduler = nil
	}
	m.running = false
	m.queue.Stop()
	log.Info("[JobQueue Manager] Stopped successfully")
}

func (m *Manager) enqueueReconcile() {
	if _, err := m.queue.EnqueueReconcile(context.Background()); err != nil {
		log.Errorf("[JobQueue Manager] Enqueueing reconcile failed: %v", err)
	}
}

// IsRunning returns whether the manager is currently running
func (m *Manager) IsRunning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// ValidSchedule reports whether spec parses as a cron schedule.
func ValidSchedule(spec string) bool {
	_, err := cron.ParseStandard(spec)
	return err == nil
}
