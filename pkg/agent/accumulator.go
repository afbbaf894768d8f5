package agent

import (
	"sync"

	"github.com/strandworks/strand/pkg/models"
)

// Accumulator tracks token usage, cost and tool outcomes within a single
// execution. All counters are monotonically increasing: never decremented,
// never reset mid-run.
type Accumulator struct {
	mu    sync.Mutex
	usage models.Usage
	tools models.ToolStats
}

// NewAccumulator creates a zeroed accumulator for one execution.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// AddUsage folds one LLM call's usage into the totals.
func (a *Accumulator) AddUsage(usage models.Usage) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.usage.Add(usage)
}

// RecordTool counts one tool invocation outcome.
func (a *Accumulator) RecordTool(result *models.ToolCallResult) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.tools.Attempted++

	if result.Success {
		a.tools.Succeeded++
	} else {
		a.tools.Failed++
	}
}

// Snapshot returns the current totals.
func (a *Accumulator) Snapshot() (models.Usage, models.ToolStats) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.usage, a.tools
}
