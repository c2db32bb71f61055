package secrets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllStrategiesFailed indicates every decryption strategy failed for a value
var ErrAllStrategiesFailed = errors.New("all decryption strategies failed")

// namedDecrypter pairs a decrypter with the strategy name used in logs and
// error reports
type namedDecrypter struct {
	Name      string
	Decrypter Decrypter
}

// Chain tries decryption strategies in order and returns the first success.
// Values may have been encrypted under either the managed key or the legacy
// keypair, so the caller cannot know upfront which strategy applies.
type Chain struct {
	decrypters []namedDecrypter
}

var _ Decrypter = (*Chain)(nil)

// NewChain creates an empty decryption chain
func NewChain() *Chain {
	return &Chain{}
}

// Append adds a strategy to the end of the chain
func (c *Chain) Append(name string, d Decrypter) *Chain {
	c.decrypters = append(c.decrypters, namedDecrypter{Name: name, Decrypter: d})
	return c
}

// Len returns the number of configured strategies
func (c *Chain) Len() int {
	return len(c.decrypters)
}

// Decrypt attempts each strategy sequentially. A value decrypts successfully
// as soon as one strategy accepts it; the accumulated per-strategy errors are
// reported only when every strategy fails.
func (c *Chain) Decrypt(ctx context.Context, ciphertext string) (string, error) {
	if len(c.decrypters) == 0 {
		return "", errors.New("no decryption strategies configured")
	}

	strategyErrors := make([]error, 0, len(c.decrypters))

	for _, nd := range c.decrypters {
		plaintext, err := nd.Decrypter.Decrypt(ctx, ciphertext)
		if err != nil {
			strategyErrors = append(strategyErrors, fmt.Errorf("%s: %w", nd.Name, err))
			slog.Debug("Decryption strategy failed", "strategy", nd.Name, "error", err)
			continue
		}

		slog.Debug("Decryption strategy succeeded", "strategy", nd.Name)
		return plaintext, nil
	}

	return "", fmt.Errorf("%w: %w", ErrAllStrategiesFailed, errors.Join(strategyErrors...))
}
