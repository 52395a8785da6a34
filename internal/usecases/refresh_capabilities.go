package usecases

import (
	"context"

	"mastothread/internal/domain"
	"mastothread/pkg/log"
)

// CapabilitySource fetches the current server limits.
type CapabilitySource interface {
	Instance(ctx context.Context) (domain.Capability, error)
}

// CapabilityCache stores per-server capability snapshots.
type CapabilityCache interface {
	Get(server string) (domain.Capability, bool)
	Set(server string, snap domain.Capability)
}

// RefreshCapabilitiesUseCase keeps a fresh capability snapshot per server.
type RefreshCapabilitiesUseCase struct {
	cache CapabilityCache
}

// NewRefreshCapabilitiesUseCase creates a new RefreshCapabilitiesUseCase.
func NewRefreshCapabilitiesUseCase(cache CapabilityCache) *RefreshCapabilitiesUseCase {
	return &RefreshCapabilitiesUseCase{cache: cache}
}

// Execute returns the cached snapshot when it is still fresh, otherwise
// fetches one from the server. A fetch failure never blocks composition:
// the stale snapshot (or documented defaults) is returned with the rate
// budget marked unknown.
func (uc *RefreshCapabilitiesUseCase) Execute(ctx context.Context, source CapabilitySource, server string) (domain.Capability, error) {
	if snap, fresh := uc.cache.Get(server); fresh {
		log.GlobalDebugCtx(ctx, "capability cache hit", "server", server)
		return snap, nil
	}

	snap, err := source.Instance(ctx)
	if err != nil {
		stale, _ := uc.cache.Get(server)
		stale.RateRemaining = domain.RateUnknown
		log.GlobalWarnCtx(ctx, "capability refresh failed, using last known limits",
			"server", server, "error", err)
		return stale, nil
	}

	uc.cache.Set(server, snap)
	return snap, nil
}
