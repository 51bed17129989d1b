// Package classify labels usernames as male, female or unknown with a language model.
//
// Usernames are sent in chunks. Names the model labels M or F are final; names it
// labels U are sent again in the next round, up to a fixed round budget. Whatever
// is still unknown after the last round is labeled U.
package classify

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/TobiSchelling/CommentGender/internal/llm"
	"github.com/TobiSchelling/CommentGender/internal/telemetry"
)

const (
	DefaultRoundBudget = 5
	DefaultChunkSize   = 500
	DefaultMaxTokens   = 8192
)

const instruction = `You are expert in classifying youtube usernames as male, female or unknown. Given a list of usernames, for each and every username, classify its gender as M for male, F for female or U for unknown.
Provide a json. Keep username as key and gender as value.
Format of the json:
{
    "username": gender,
}`

// Entry is one labeled username.
type Entry struct {
	Username string
	Gender   Gender
}

// RoundStat describes one round of classification.
type RoundStat struct {
	Round    int
	Pending  int
	Chunks   int
	Resolved int
}

// Result is the labeled author set. Entries are in commit order: names resolved
// in earlier rounds come first, forced unknowns last.
type Result struct {
	Entries []Entry
	Rounds  []RoundStat
}

// Counts tallies entries per gender.
func (r *Result) Counts() map[Gender]int {
	counts := map[Gender]int{Male: 0, Female: 0, Unknown: 0}
	for _, e := range r.Entries {
		counts[e.Gender]++
	}
	return counts
}

// Requests is the number of generation requests the result took.
func (r *Result) Requests() int {
	n := 0
	for _, rs := range r.Rounds {
		n += rs.Chunks
	}
	return n
}

// Classifier runs the round/chunk loop against a text-generation provider.
type Classifier struct {
	provider  llm.Provider
	logger    *zap.Logger
	rounds    int
	chunkSize int
	maxTokens int
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRoundBudget sets how many rounds unknown names get. Values below 1 are ignored.
func WithRoundBudget(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.rounds = n
		}
	}
}

// WithChunkSize sets how many names go into one request. Values below 1 are ignored.
func WithChunkSize(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

func WithMaxTokens(n int) Option {
	return func(c *Classifier) {
		if n > 0 {
			c.maxTokens = n
		}
	}
}

// New creates a Classifier.
func New(provider llm.Provider, logger *zap.Logger, opts ...Option) *Classifier {
	c := &Classifier{
		provider:  provider,
		logger:    logger,
		rounds:    DefaultRoundBudget,
		chunkSize: DefaultChunkSize,
		maxTokens: DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// MaxRequests is the upper bound of generation requests for n usernames.
func (c *Classifier) MaxRequests(n int) int {
	return c.rounds * ((n + c.chunkSize - 1) / c.chunkSize)
}

// Classify labels every username exactly once. A provider error or an
// unparseable reply aborts the run and no partial result is returned.
func (c *Classifier) Classify(ctx context.Context, usernames []string) (*Result, error) {
	if c.provider == nil {
		return nil, llm.ErrNoProvider
	}

	result := &Result{Entries: make([]Entry, 0, len(usernames))}
	pending := usernames

	for round := 1; round <= c.rounds && len(pending) > 0; round++ {
		chunks := Chunks(pending, c.chunkSize)
		c.logger.Info("classification round",
			zap.Int("round", round),
			zap.Int("rounds", c.rounds),
			zap.Int("pending", len(pending)),
			zap.Int("chunks", len(chunks)))

		var next []string
		resolved := 0
		for i, chunk := range chunks {
			labels, err := c.classifyChunk(ctx, chunk)
			if err != nil {
				return nil, fmt.Errorf("round %d, chunk %d/%d: %w", round, i+1, len(chunks), err)
			}

			for _, name := range chunk {
				g, ok := labels[name]
				if ok && g.Resolved() {
					result.Entries = append(result.Entries, Entry{Username: name, Gender: g})
					resolved++
					continue
				}
				next = append(next, name)
			}
		}

		telemetry.ClassificationRounds.Inc()
		result.Rounds = append(result.Rounds, RoundStat{
			Round:    round,
			Pending:  len(pending),
			Chunks:   len(chunks),
			Resolved: resolved,
		})
		pending = next
	}

	for _, name := range pending {
		result.Entries = append(result.Entries, Entry{Username: name, Gender: Unknown})
	}

	counts := result.Counts()
	for g, n := range counts {
		telemetry.Labels.WithLabelValues(string(g)).Add(float64(n))
	}
	c.logger.Info("classification complete",
		zap.Int("usernames", len(result.Entries)),
		zap.Int("male", counts[Male]),
		zap.Int("female", counts[Female]),
		zap.Int("unknown", counts[Unknown]),
		zap.Int("requests", result.Requests()))
	return result, nil
}

func (c *Classifier) classifyChunk(ctx context.Context, chunk []string) (map[string]Gender, error) {
	prompt, err := buildPrompt(chunk)
	if err != nil {
		return nil, err
	}

	text, err := c.provider.Generate(ctx, prompt, c.maxTokens)
	if err != nil {
		return nil, fmt.Errorf("generating: %w", err)
	}

	labels, err := DecodeResponse(text)
	if err != nil {
		c.logger.Debug("unparseable reply", zap.Int("chunk_size", len(chunk)), zap.String("reply", truncate(text, 512)))
		return nil, err
	}

	extra := 0
	for name := range labels {
		if !slices.Contains(chunk, name) {
			extra++
		}
	}
	if extra > 0 {
		c.logger.Debug("ignoring labels for names outside the chunk", zap.Int("count", extra))
	}
	return labels, nil
}

// buildPrompt embeds the chunk as a JSON array after the instruction.
func buildPrompt(chunk []string) (string, error) {
	names, err := json.Marshal(chunk)
	if err != nil {
		return "", fmt.Errorf("encoding usernames: %w", err)
	}
	return instruction + "\n\n" + string(names), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
