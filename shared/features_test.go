package shared

import "testing"

func TestDefaultFeatureFlags(t *testing.T) {
	f := DefaultFeatureFlags()
	if !f.Resilience.EnableNodeWatchers {
		t.Error("expected node watchers enabled by default")
	}
	if !f.Observability.EnableMetrics {
		t.Error("expected metrics enabled by default")
	}
}

func TestNewFeatureFlagsOptions(t *testing.T) {
	f := NewFeatureFlags(DefaultFeatureFlags(), WithNodeWatchers(false), WithMetrics(false))
	if f.Resilience.EnableNodeWatchers {
		t.Error("expected node watchers disabled")
	}
	if f.Observability.EnableMetrics {
		t.Error("expected metrics disabled")
	}
	base := DefaultFeatureFlags()
	if !base.Resilience.EnableNodeWatchers {
		t.Error("NewFeatureFlags should not mutate the base flags")
	}
}
