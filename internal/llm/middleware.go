package llm

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"github.com/TobiSchelling/CommentGender/internal/telemetry"
)

// instrumented counts requests and failures per provider.
type instrumented struct {
	Provider
}

// Instrument wraps p so that every Generate call is counted in the telemetry metrics.
func Instrument(p Provider) Provider {
	return &instrumented{Provider: p}
}

func (i *instrumented) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	telemetry.GenerationRequests.WithLabelValues(i.Name()).Inc()
	text, err := i.Provider.Generate(ctx, prompt, maxTokens)
	if err != nil {
		telemetry.GenerationErrors.WithLabelValues(i.Name()).Inc()
	}
	return text, err
}

// rateLimited paces Generate calls. It only waits; it never retries.
type rateLimited struct {
	Provider
	limiter *rate.Limiter
}

// RateLimit wraps p so that at most perMinute Generate calls start per minute.
func RateLimit(p Provider, perMinute int) Provider {
	return &rateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *rateLimited) Generate(ctx context.Context, prompt string, maxTokens int) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.Provider.Generate(ctx, prompt, maxTokens)
}
