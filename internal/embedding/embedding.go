// Package embedding converts text to fixed-length vectors through an ordered
// chain of providers: the primary is attempted first and any failure falls
// through to the next provider with no change in the output contract.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

// ErrUnavailable is returned when every configured provider failed.
var ErrUnavailable = errors.New("embedding unavailable")

// Embedder converts text into a vector of a fixed, deployment-wide dimension.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
	Close() error
}

// ZeroVector returns the all-zero vector of the given dimension. Nameless
// items carry it so they stay structurally valid but can never match
// anything, not even each other.
func ZeroVector(dim int) []float32 {
	return make([]float32, dim)
}

// Chain tries providers in order until one succeeds. Empty text maps to the
// zero vector without calling any provider.
type Chain struct {
	providers  []Embedder
	dimensions int
	logger     *zap.Logger
}

func NewChain(dimensions int, logger *zap.Logger, providers ...Embedder) *Chain {
	return &Chain{
		providers:  providers,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Dimensions reports the fixed vector dimension of this deployment.
func (c *Chain) Dimensions() int {
	return c.dimensions
}

func (c *Chain) Embed(ctx context.Context, text string) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return ZeroVector(c.dimensions), nil
	}

	var lastErr error
	for _, p := range c.providers {
		vec, err := p.Embed(ctx, text)
		if err != nil {
			c.logger.Warn("Embedding provider failed, trying next",
				zap.String("model", p.Model()),
				zap.Error(err))
			lastErr = err
			continue
		}
		if len(vec) != c.dimensions {
			lastErr = fmt.Errorf("provider %s returned %d dimensions, want %d",
				p.Model(), len(vec), c.dimensions)
			c.logger.Warn("Embedding dimension mismatch, trying next",
				zap.String("model", p.Model()),
				zap.Int("got", len(vec)))
			continue
		}
		return vec, nil
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
	}
	return nil, fmt.Errorf("%w: no providers configured", ErrUnavailable)
}

// Model reports the provider that will be tried first; it is recorded on
// similarity events as the search model.
func (c *Chain) Model() string {
	if len(c.providers) == 0 {
		return "none"
	}
	return c.providers[0].Model()
}

func (c *Chain) Close() error {
	var errs []error
	for _, p := range c.providers {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
