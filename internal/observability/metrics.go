package observability

import (
	"context"
	"sort"
	"sync"
)

// Metrics collects gate metrics.
type Metrics interface {
	RecordDecision(ctx context.Context, labels DecisionLabels)
}

// DecisionLabels contains metric dimensions.
type DecisionLabels struct {
	Endpoint string
	Status   int
}

// DecisionCount is one row of a DecisionCounters snapshot
type DecisionCount struct {
	Endpoint string `json:"endpoint"`
	Status   int    `json:"status"`
	Count    uint64 `json:"count"`
}

// DecisionCounters counts gate decisions in memory
type DecisionCounters struct {
	mu     sync.Mutex
	counts map[DecisionLabels]uint64
}

// NewDecisionCounters creates empty counters
func NewDecisionCounters() *DecisionCounters {
	return &DecisionCounters{counts: make(map[DecisionLabels]uint64)}
}

// RecordDecision implements Metrics
func (c *DecisionCounters) RecordDecision(_ context.Context, labels DecisionLabels) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.counts[labels]++
}

// Snapshot returns the counters ordered by endpoint then status
func (c *DecisionCounters) Snapshot() []DecisionCount {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]DecisionCount, 0, len(c.counts))
	for labels, n := range c.counts {
		out = append(out, DecisionCount{Endpoint: labels.Endpoint, Status: labels.Status, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Endpoint != out[j].Endpoint {
			return out[i].Endpoint < out[j].Endpoint
		}
		return out[i].Status < out[j].Status
	})
	return out
}

// NopMetrics discards everything
type NopMetrics struct{}

// RecordDecision implements Metrics
func (NopMetrics) RecordDecision(context.Context, DecisionLabels) {}
