// Package ban locks out login targets after repeated failed attempts.
package ban

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Store counts strikes and holds active bans.
type Store interface {
	// Strike records a failed attempt and returns the count within window.
	Strike(ctx context.Context, target string, window time.Duration) (int, error)
	Ban(ctx context.Context, target string, d time.Duration) error
	Banned(ctx context.Context, target string) (bool, error)
	// Clear forgets the strikes of target. Active bans stay.
	Clear(ctx context.Context, target string) error
}

type Policy struct {
	MaxStrikes int
	Window     time.Duration
	Duration   time.Duration
}

type Guard struct {
	store  Store
	policy Policy
	logger *zap.Logger
}

func NewGuard(store Store, policy Policy, logger *zap.Logger) *Guard {
	return &Guard{store: store, policy: policy, logger: logger}
}

// Banned reports whether target is locked out. A nil Guard bans nobody.
func (g *Guard) Banned(ctx context.Context, target string) (bool, error) {
	if g == nil {
		return false, nil
	}
	return g.store.Banned(ctx, target)
}

// Fail records a failed login and bans target once it reaches MaxStrikes.
func (g *Guard) Fail(ctx context.Context, target string) error {
	if g == nil || g.policy.MaxStrikes <= 0 {
		return nil
	}

	strikes, err := g.store.Strike(ctx, target, g.policy.Window)
	if err != nil {
		return err
	}
	if strikes < g.policy.MaxStrikes {
		return nil
	}

	if err := g.store.Ban(ctx, target, g.policy.Duration); err != nil {
		return err
	}
	g.logger.Warn("login target banned",
		zap.String("target", target),
		zap.Int("strikes", strikes),
		zap.Duration("duration", g.policy.Duration),
	)
	return g.store.Clear(ctx, target)
}

func (g *Guard) Reset(ctx context.Context, target string) error {
	if g == nil {
		return nil
	}
	return g.store.Clear(ctx, target)
}
