// Package health tracks error and success counts per pipeline collaborator
// and rolls them up into a status report for the health endpoint.
package health

import (
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// #region status

// Status is the health of one component or of the whole system.
type Status string

const (
	StatusHealthy  Status = "healthy"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Component names recorded by the pipeline.
const (
	ComponentEmotion    = "emotion_analysis"
	ComponentPolicy     = "policy_lookup"
	ComponentPrecedents = "precedent_lookup"
	ComponentAudit      = "audit_store"
	ComponentSessions   = "session_store"
	ComponentPipeline   = "pipeline"
)

const (
	degradedAfter = 3
	failedAfter   = 5
)

func statusFor(errors int) Status {
	switch {
	case errors >= failedAfter:
		return StatusFailed
	case errors >= degradedAfter:
		return StatusDegraded
	default:
		return StatusHealthy
	}
}

func worse(a, b Status) Status {
	rank := map[Status]int{StatusHealthy: 0, StatusDegraded: 1, StatusFailed: 2}
	if rank[b] > rank[a] {
		return b
	}
	return a
}

// #endregion status

// #region monitor

// ComponentHealth is the reported state of one component.
type ComponentHealth struct {
	Status      Status     `json:"status"`
	Errors      int        `json:"errors"`
	Successes   int        `json:"successes"`
	LastError   string     `json:"last_error,omitempty"`
	LastErrorAt *time.Time `json:"last_error_at,omitempty"`
}

// Report is a point-in-time view of every known component. Overall is the
// worst component status; Degraded is true whenever Overall is not healthy.
type Report struct {
	Overall    Status                     `json:"overall"`
	Degraded   bool                       `json:"degraded_mode"`
	Components map[string]ComponentHealth `json:"components"`
	CheckedAt  time.Time                  `json:"checked_at"`
}

// Monitor counts outcomes per component. Errors raise the count, successes
// lower it by one, so a component recovers gradually. A nil *Monitor
// ignores every call.
type Monitor struct {
	mu         sync.Mutex
	components map[string]*ComponentHealth
	clock      func() time.Time
	logger     zerolog.Logger
}

// NewMonitor starts every named component healthy.
func NewMonitor(logger zerolog.Logger, components ...string) *Monitor {
	m := &Monitor{
		components: make(map[string]*ComponentHealth, len(components)),
		clock:      time.Now,
		logger:     logger.With().Str("component", "health").Logger(),
	}
	for _, c := range components {
		m.components[c] = &ComponentHealth{Status: StatusHealthy}
	}
	return m
}

// WithClock overrides the time source.
func (m *Monitor) WithClock(clock func() time.Time) *Monitor {
	m.clock = clock
	return m
}

func (m *Monitor) component(name string) *ComponentHealth {
	c, ok := m.components[name]
	if !ok {
		c = &ComponentHealth{Status: StatusHealthy}
		m.components[name] = c
	}
	return c
}

// RecordError counts a failure of component.
func (m *Monitor) RecordError(component string, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.component(component)
	c.Errors++
	now := m.clock().UTC()
	c.LastErrorAt = &now
	if err != nil {
		c.LastError = err.Error()
	}
	m.transition(component, c)
}

// RecordSuccess counts a success of component and forgives one error.
func (m *Monitor) RecordSuccess(component string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	c := m.component(component)
	c.Successes++
	if c.Errors > 0 {
		c.Errors--
	}
	m.transition(component, c)
}

func (m *Monitor) transition(name string, c *ComponentHealth) {
	next := statusFor(c.Errors)
	if next == c.Status {
		return
	}
	m.logger.Warn().
		Str("target", name).
		Str("from", string(c.Status)).
		Str("to", string(next)).
		Int("errors", c.Errors).
		Msg("component health changed")
	c.Status = next
}

// Report snapshots every component.
func (m *Monitor) Report() Report {
	if m == nil {
		return Report{Overall: StatusHealthy, Components: map[string]ComponentHealth{}}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	r := Report{
		Overall:    StatusHealthy,
		Components: make(map[string]ComponentHealth, len(m.components)),
		CheckedAt:  m.clock().UTC(),
	}
	for name, c := range m.components {
		r.Components[name] = *c
		r.Overall = worse(r.Overall, c.Status)
	}
	r.Degraded = r.Overall != StatusHealthy
	return r
}

// Names lists the tracked components, sorted.
func (r Report) Names() []string {
	names := make([]string, 0, len(r.Components))
	for n := range r.Components {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// #endregion monitor
