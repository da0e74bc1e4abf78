// Package router selects an inference backend per request and owns the
// process-wide routing state, including the low-compute switch.
package router

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/solvent-ai/solvent/pkg/config"
	"github.com/solvent-ai/solvent/pkg/models"
)

// requestTimeout bounds every outbound inference call.
const requestTimeout = 2 * time.Minute

// Router holds the configured provider profiles and the mutable routing
// state. The first configured profile is primary; exactly one profile is
// active at any instant.
type Router struct {
	profiles      []config.ProviderConfig
	byModel       map[string]int
	lowComputeCap int
	client        *http.Client

	mu          sync.Mutex
	active      int
	activeModel string
	activeCap   int
	lowCompute  bool
}

// New creates a Router. Construction fails outright without at least one
// profile; the model ownership map is built here so misrouting surfaces at
// startup, not per call.
func New(profiles []config.ProviderConfig, lowComputeCap int) (*Router, error) {
	if len(profiles) == 0 {
		return nil, ErrNoProviders
	}

	byModel := make(map[string]int)
	for i, p := range profiles {
		if p.Model != "" {
			byModel[p.Model] = i
		}
		for _, m := range p.Models {
			if owner, dup := byModel[m]; dup && owner != i {
				return nil, fmt.Errorf("model %q claimed by both %q and %q",
					m, profiles[owner].Name, p.Name)
			}
			byModel[m] = i
		}
	}

	return &Router{
		profiles:      profiles,
		byModel:       byModel,
		lowComputeCap: lowComputeCap,
		client:        &http.Client{Timeout: requestTimeout},
		active:        0,
		activeModel:   profiles[0].Model,
		activeCap:     profiles[0].MaxTokens,
	}, nil
}

// routeSnapshot is the immutable view a single call works with. A call that
// began before a mode switch completes with its pre-switch snapshot.
type routeSnapshot struct {
	profile   config.ProviderConfig
	model     string
	maxTokens int
}

// snapshot resolves the route for one call. A per-call model override routes
// to the owning profile for this call only and never persists.
func (r *Router) snapshot(opts models.ConverseOptions) (routeSnapshot, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	snap := routeSnapshot{
		profile:   r.profiles[r.active],
		model:     r.activeModel,
		maxTokens: r.activeCap,
	}

	if opts.Model != "" {
		idx, ok := r.byModel[opts.Model]
		if !ok {
			return routeSnapshot{}, fmt.Errorf("%w: %q", ErrUnknownModel, opts.Model)
		}
		snap.profile = r.profiles[idx]
		snap.model = opts.Model
		snap.maxTokens = snap.profile.MaxTokens
		if r.lowCompute && r.lowComputeCap > 0 && r.lowComputeCap < snap.maxTokens {
			snap.maxTokens = r.lowComputeCap
		}
	}

	if opts.MaxTokens > 0 && opts.MaxTokens < snap.maxTokens {
		snap.maxTokens = opts.MaxTokens
	}
	return snap, nil
}

// Converse sends a conversation to the selected backend and returns the
// normalized result. Backend failures surface as typed errors; the caller
// owns retry policy beyond the transport's transient-status retries.
func (r *Router) Converse(ctx context.Context, messages []models.ChatMessage, opts models.ConverseOptions) (models.ConverseResult, error) {
	snap, err := r.snapshot(opts)
	if err != nil {
		return models.ConverseResult{}, err
	}

	switch snap.profile.ProviderType() {
	case config.ProviderAnthropic:
		return r.converseAnthropic(ctx, snap, messages, opts.Tools)
	default:
		return r.converseOpenAI(ctx, snap, messages, opts.Tools)
	}
}

// SetLowComputeMode pins routing to the cheapest configured profile and caps
// the token budget, or restores the primary profile. Idempotent in both
// directions; the swap is atomic relative to in-flight calls.
func (r *Router) SetLowComputeMode(enabled bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.lowCompute == enabled {
		return
	}
	r.lowCompute = enabled

	if enabled {
		idx := r.cheapestLocked()
		r.active = idx
		r.activeModel = r.profiles[idx].Model
		r.activeCap = r.profiles[idx].MaxTokens
		if r.lowComputeCap > 0 && r.lowComputeCap < r.activeCap {
			r.activeCap = r.lowComputeCap
		}
		return
	}

	r.active = 0
	r.activeModel = r.profiles[0].Model
	r.activeCap = r.profiles[0].MaxTokens
}

// cheapestLocked picks the lowest price_rank, ties broken by configured
// order. Callers must hold r.mu.
func (r *Router) cheapestLocked() int {
	best := 0
	for i, p := range r.profiles {
		if p.PriceRank < r.profiles[best].PriceRank {
			best = i
		}
	}
	return best
}

// CurrentModel returns the model the active profile will use.
func (r *Router) CurrentModel() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.activeModel
}

// LowCompute reports whether the low-compute switch is engaged.
func (r *Router) LowCompute() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lowCompute
}
