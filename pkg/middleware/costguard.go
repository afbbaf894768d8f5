package middleware

import (
	"context"
	"sync"
	"time"

	"github.com/strandworks/strand/pkg/models"
)

// UsageReader exposes the monthly spend aggregate per workspace. The backing
// store serializes concurrent writes; the guard only reads.
type UsageReader interface {
	MonthlyUsage(ctx context.Context, workspaceID, month string) (models.Usage, error)
}

type cachedSpend struct {
	spent     float64
	fetchedAt time.Time
}

// CostGuard is a before_llm middleware that evaluates rolling monthly usage
// against a budget and aborts when it is exceeded. The aggregate is cached
// per workspace with a TTL: the guard is a soft circuit breaker, and an
// eventually-consistent read with periodic re-evaluation is acceptable.
type CostGuard struct {
	usage    UsageReader
	limitUSD float64
	ttl      time.Duration

	mu    sync.Mutex
	cache map[string]cachedSpend
}

// NewCostGuard creates the guard with the given monthly USD limit.
func NewCostGuard(usage UsageReader, limitUSD float64, ttl time.Duration) *CostGuard {
	return &CostGuard{
		usage:    usage,
		limitUSD: limitUSD,
		ttl:      ttl,
		cache:    make(map[string]cachedSpend),
	}
}

// Middleware binds the guard to before_llm.
func (g *CostGuard) Middleware(order int) Middleware {
	return Middleware{
		ID:      "cost_guard",
		Hook:    HookBeforeLLM,
		Order:   order,
		Handler: g.handle,
	}
}

func (g *CostGuard) handle(ctx context.Context, _ *HookData, rc models.RunContext) error {
	spent, err := g.monthlySpend(ctx, rc.WorkspaceID)
	if err != nil {
		// Guard reads are best effort. A store hiccup must not block runs.
		return nil
	}

	if spent >= g.limitUSD {
		return &CostLimitError{
			WorkspaceID: rc.WorkspaceID,
			LimitUSD:    g.limitUSD,
			SpentUSD:    spent,
		}
	}

	return nil
}

func (g *CostGuard) monthlySpend(ctx context.Context, workspaceID string) (float64, error) {
	g.mu.Lock()
	cached, ok := g.cache[workspaceID]
	g.mu.Unlock()

	if ok && time.Since(cached.fetchedAt) < g.ttl {
		return cached.spent, nil
	}

	month := time.Now().UTC().Format("2006-01")

	usage, err := g.usage.MonthlyUsage(ctx, workspaceID, month)
	if err != nil {
		return 0, err
	}

	g.mu.Lock()
	g.cache[workspaceID] = cachedSpend{spent: usage.CostUSD, fetchedAt: time.Now()}
	g.mu.Unlock()

	return usage.CostUSD, nil
}
