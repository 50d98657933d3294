package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// LifecycleManager drives an Agent's start/stop/health-check cycle.
type LifecycleManager struct {
	agent  Agent
	logger *zap.Logger

	mu       sync.RWMutex
	running  bool
	stopChan chan struct{}
	doneChan chan struct{}

	healthCheckInterval time.Duration
	lastHealthCheck     time.Time
	healthStatus        HealthStatus
}

// HealthStatus is a point-in-time health assessment of an agent.
type HealthStatus struct {
	Healthy   bool      `json:"healthy"`
	State     State     `json:"state"`
	LastCheck time.Time `json:"last_check"`
	Message   string    `json:"message,omitempty"`
}

// NewLifecycleManager builds a manager for agent.
func NewLifecycleManager(agent Agent, logger *zap.Logger) *LifecycleManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LifecycleManager{
		agent:               agent,
		logger:              logger,
		stopChan:            make(chan struct{}),
		doneChan:            make(chan struct{}),
		healthCheckInterval: 30 * time.Second,
		healthStatus: HealthStatus{
			Healthy: false,
			State:   agent.State(),
		},
	}
}

// Start initializes the agent and begins its background health check
// loop.
func (lm *LifecycleManager) Start(ctx context.Context) error {
	lm.mu.Lock()
	if lm.running {
		lm.mu.Unlock()
		return fmt.Errorf("agent already running")
	}
	lm.running = true
	lm.mu.Unlock()

	lm.logger.Info("starting agent lifecycle manager",
		zap.String("agent_id", lm.agent.ID()),
		zap.String("agent_name", lm.agent.Name()),
	)

	if err := lm.agent.Init(ctx); err != nil {
		lm.mu.Lock()
		lm.running = false
		lm.mu.Unlock()
		return fmt.Errorf("failed to initialize agent: %w", err)
	}

	go lm.healthCheckLoop(ctx)

	lm.logger.Info("agent lifecycle manager started")
	return nil
}

// Stop halts the health check loop and tears down the agent.
func (lm *LifecycleManager) Stop(ctx context.Context) error {
	lm.mu.Lock()
	if !lm.running {
		lm.mu.Unlock()
		return fmt.Errorf("agent not running")
	}
	// running=false and channel close happen in the same critical
	// section so two concurrent Stop() calls can't both pass the check
	// and double-close.
	lm.running = false
	close(lm.stopChan)
	lm.mu.Unlock()

	lm.logger.Info("stopping agent lifecycle manager", zap.String("agent_id", lm.agent.ID()))

	select {
	case <-lm.doneChan:
	case <-time.After(5 * time.Second):
		lm.logger.Warn("health check loop did not stop in time")
	}

	if err := lm.agent.Teardown(ctx); err != nil {
		lm.logger.Error("failed to teardown agent", zap.Error(err))
		return err
	}

	lm.logger.Info("agent lifecycle manager stopped")
	return nil
}

// IsRunning reports whether the manager's agent is currently running.
func (lm *LifecycleManager) IsRunning() bool {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.running
}

// GetHealthStatus returns the most recent health assessment.
func (lm *LifecycleManager) GetHealthStatus() HealthStatus {
	lm.mu.RLock()
	defer lm.mu.RUnlock()
	return lm.healthStatus
}

func (lm *LifecycleManager) healthCheckLoop(ctx context.Context) {
	defer close(lm.doneChan)

	ticker := time.NewTicker(lm.healthCheckInterval)
	defer ticker.Stop()

	lm.performHealthCheck()

	for {
		select {
		case <-lm.stopChan:
			lm.logger.Info("health check loop stopped")
			return
		case <-ticker.C:
			lm.performHealthCheck()
		case <-ctx.Done():
			lm.logger.Info("health check loop cancelled")
			return
		}
	}
}

func (lm *LifecycleManager) performHealthCheck() {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	state := lm.agent.State()
	now := time.Now()

	healthy := state == StateReady || state == StateRunning
	message := ""
	if !healthy {
		message = fmt.Sprintf("agent in unhealthy state: %s", state)
	}

	lm.healthStatus = HealthStatus{
		Healthy:   healthy,
		State:     state,
		LastCheck: now,
		Message:   message,
	}
	lm.lastHealthCheck = now

	if !healthy {
		lm.logger.Warn("agent health check failed",
			zap.String("agent_id", lm.agent.ID()),
			zap.String("state", string(state)),
			zap.String("message", message),
		)
	} else {
		lm.logger.Debug("agent health check passed",
			zap.String("agent_id", lm.agent.ID()),
			zap.String("state", string(state)),
		)
	}
}

// Restart stops then starts the agent, recreating its stop/done
// channels under lock so a concurrent reader never observes a closed
// channel from the prior run.
func (lm *LifecycleManager) Restart(ctx context.Context) error {
	lm.logger.Info("restarting agent", zap.String("agent_id", lm.agent.ID()))

	if err := lm.Stop(ctx); err != nil {
		return fmt.Errorf("failed to stop agent: %w", err)
	}

	time.Sleep(1 * time.Second)

	lm.mu.Lock()
	lm.stopChan = make(chan struct{})
	lm.doneChan = make(chan struct{})
	lm.mu.Unlock()

	if err := lm.Start(ctx); err != nil {
		return fmt.Errorf("failed to start agent: %w", err)
	}

	lm.logger.Info("agent restarted successfully")
	return nil
}
