package swarm

import (
	"fmt"
	"sync"
	"time"

	"github.com/BaSui01/swarmflow/swarm/events"
	"go.uber.org/zap"
)

// healthChecker 周期性检查 agent 活跃度
type healthChecker struct {
	coordinator *Coordinator
	interval    time.Duration
	logger      *zap.Logger

	done     chan struct{}
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func newHealthChecker(c *Coordinator, interval time.Duration, logger *zap.Logger) *healthChecker {
	return &healthChecker{
		coordinator: c,
		interval:    interval,
		logger:      logger.With(zap.String("component", "health_checker")),
		done:        make(chan struct{}),
	}
}

func (h *healthChecker) start() {
	h.wg.Add(1)
	go h.run()
	h.logger.Debug("health checker started", zap.Duration("interval", h.interval))
}

func (h *healthChecker) stop() {
	h.stopOnce.Do(func() {
		close(h.done)
		h.wg.Wait()
		h.logger.Debug("health checker stopped")
	})
}

func (h *healthChecker) run() {
	defer h.wg.Done()

	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			report := h.coordinator.CheckHealth()
			if len(report.TimedOut) > 0 || len(report.Failed) > 0 {
				h.logger.Info("health check pass",
					zap.Int("checked", report.Checked),
					zap.Strings("timed_out", report.TimedOut),
					zap.Strings("failed", report.Failed),
				)
			}
		case <-h.done:
			return
		}
	}
}

// CheckHealth runs one health pass: every agent that is not already offline
// and has been inactive longer than AgentStaleTimeout is marked offline and
// reported with an AgentTimeout event. A failure while checking one agent
// is recorded and does not stop the pass.
func (c *Coordinator) CheckHealth() HealthReport {
	now := c.now()
	report := HealthReport{CheckedAt: now}
	var timeouts []events.AgentTimeout

	c.agentsMu.Lock()
	for _, id := range c.agentOrder {
		agent := c.agents[id]
		report.Checked++

		timedOut, err := c.inspectAgent(agent, now)
		if err != nil {
			report.Failed = append(report.Failed, id)
			c.logger.Error("agent health check failed", zap.String("agent_id", id), zap.Error(err))
			continue
		}
		if timedOut {
			report.TimedOut = append(report.TimedOut, id)
			timeouts = append(timeouts, events.AgentTimeout{
				AgentID:    id,
				LastActive: agent.LastActive,
				Timestamp:  now,
			})
		}
	}
	c.agentsMu.Unlock()

	for _, e := range timeouts {
		c.logger.Warn("agent timed out",
			zap.String("agent_id", e.AgentID),
			zap.Time("last_active", e.LastActive),
		)
		c.bus.Publish(e)
	}
	return report
}

// inspectAgent marks a stale agent offline. Callers hold agentsMu.
func (c *Coordinator) inspectAgent(agent *Agent, now time.Time) (timedOut bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("health check panic: %v", r)
		}
	}()

	if agent.Status == AgentOffline {
		return false, nil
	}
	if now.Sub(agent.LastActive) <= c.config.AgentStaleTimeout {
		return false, nil
	}
	agent.Status = AgentOffline
	return true, nil
}
