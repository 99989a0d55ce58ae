package policy

import (
	"context"
	"log/slog"

	"github.com/glowbook/clinicavail/services/availability-service/internal/model"
)

// Policy is the scheduling configuration applied to one tenant's requests. The range bound
// is process-wide and lives with the scheduling service.
type Policy struct {
	SlotIntervalMinutes int
	Timezone            string
}

type Provider interface {
	Policy(ctx context.Context, tenantID string) (Policy, error)
}

type staticProvider struct {
	policy Policy
}

func NewStaticProvider(p Policy) Provider {
	return &staticProvider{policy: p}
}

func (p *staticProvider) Policy(_ context.Context, _ string) (Policy, error) {
	return p.policy, nil
}

// TenantLookup reads tenant settings from the catalog.
type TenantLookup interface {
	GetTenant(ctx context.Context, tenantID string) (model.Tenant, error)
}

type tenantProvider struct {
	logger   *slog.Logger
	tenants  TenantLookup
	fallback Policy
}

// NewTenantProvider overlays per-tenant timezone and slot interval on fallback. Lookup failures
// degrade to fallback so a catalog outage does not block grid computation.
func NewTenantProvider(logger *slog.Logger, tenants TenantLookup, fallback Policy) Provider {
	if tenants == nil {
		return NewStaticProvider(fallback)
	}
	return &tenantProvider{logger: logger, tenants: tenants, fallback: fallback}
}

func (p *tenantProvider) Policy(ctx context.Context, tenantID string) (Policy, error) {
	out := p.fallback
	if tenantID == "" {
		return out, nil
	}
	t, err := p.tenants.GetTenant(ctx, tenantID)
	if err != nil {
		p.logger.Warn("tenant policy unavailable, using defaults", "tenant_id", tenantID, "err", err)
		return out, nil
	}
	if t.Timezone != "" {
		out.Timezone = t.Timezone
	}
	if t.SlotIntervalMinutes > 0 {
		out.SlotIntervalMinutes = t.SlotIntervalMinutes
	}
	return out, nil
}
