package metrics

import (
	"context"
	"testing"
)

func TestNewMetricProvider_Prometheus(t *testing.T) {
	mp, err := NewMetricProvider(context.Background(),
		WithServiceName("test"),
		WithProviderConfig(ProviderCfg{Provider: PrometheusProvider}),
	)
	if err != nil {
		t.Fatalf("NewMetricProvider() error = %v", err)
	}
	defer mp.Shutdown(context.Background())

	counter, err := mp.Meter("test").Int64Counter("test_total")
	if err != nil {
		t.Fatalf("Int64Counter() error = %v", err)
	}
	counter.Add(context.Background(), 1)
}

func TestWithProviderConfig_Appends(t *testing.T) {
	cfg := WithProviderConfig(NewOtelCollectorConfig("http://collector:4317", nil, InsecureOtel))(Config{})
	cfg = WithProviderConfig(ProviderCfg{Provider: PrometheusProvider})(cfg)

	if len(cfg.Provider) != 2 || cfg.Provider[0].Provider != OtelCollector {
		t.Errorf("providers = %+v", cfg.Provider)
	}
}
