package observability

import "testing"

func TestParseOTLPHeaders(t *testing.T) {
	got := ParseOTLPHeaders(" x-api-key = abc ,broken, =v, k= ,tenant=heirloom")
	if len(got) != 2 || got["x-api-key"] != "abc" || got["tenant"] != "heirloom" {
		t.Fatalf("headers: %v", got)
	}
	if ParseOTLPHeaders("") != nil {
		t.Fatalf("empty input must yield nil")
	}
}

func TestLoadOtelConfigClampsRatio(t *testing.T) {
	t.Setenv("OTEL_ENABLED", "true")
	t.Setenv("OTEL_SAMPLER_RATIO", "4")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "collector:4318")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "1")
	cfg := LoadOtelConfig()
	if !cfg.Enabled || !cfg.Insecure {
		t.Fatalf("flags: %+v", cfg)
	}
	if cfg.SampleRatio != 1 {
		t.Fatalf("ratio: want=1 got=%v", cfg.SampleRatio)
	}
	if cfg.Endpoint != "collector:4318" {
		t.Fatalf("endpoint: %q", cfg.Endpoint)
	}

	t.Setenv("OTEL_SAMPLER_RATIO", "-3")
	if got := LoadOtelConfig().SampleRatio; got != 0 {
		t.Fatalf("ratio: want=0 got=%v", got)
	}
}
