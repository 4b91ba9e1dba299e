package config_test

import (
	"testing"

	"github.com/easyops/compaction-go/pkg/core/config"
)

func TestDefaultValues(t *testing.T) {
	cfg := config.Default()

	if cfg.Masking.MaskIfCharsGreaterThan != 6000 {
		t.Errorf("unexpected mask threshold %d", cfg.Masking.MaskIfCharsGreaterThan)
	}
	if cfg.Masking.KeepLastUnmasked != 3 {
		t.Errorf("unexpected keep-last %d", cfg.Masking.KeepLastUnmasked)
	}
	if cfg.Summarize.EverySteps != 8 {
		t.Errorf("unexpected every-steps %d", cfg.Summarize.EverySteps)
	}
	if cfg.Summarize.TokenFraction != 0.7 {
		t.Errorf("unexpected token fraction %v", cfg.Summarize.TokenFraction)
	}
	if cfg.Summarize.ModelContextLimit != 128000 {
		t.Errorf("unexpected context limit %d", cfg.Summarize.ModelContextLimit)
	}
	if cfg.Retrieval.ChunkSize != 500 || cfg.Retrieval.OverlapLines != 3 || cfg.Retrieval.TopK != 8 {
		t.Errorf("unexpected retrieval defaults %+v", cfg.Retrieval)
	}
	if cfg.Budgets.WorkingMemory != 400 || cfg.Budgets.RetrievedSnippets != 800 {
		t.Errorf("unexpected budget defaults %+v", cfg.Budgets)
	}
	if cfg.Budgets.TotalFraction != 0.3 {
		t.Errorf("unexpected total fraction %v", cfg.Budgets.TotalFraction)
	}
	if !cfg.Workspace.RedactSecrets {
		t.Error("expected redaction enabled by default")
	}
	if cfg.Metrics.File != "compaction_metrics.jsonl" {
		t.Errorf("unexpected metrics file %q", cfg.Metrics.File)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("COMPACTION_WORKSPACE_DIR", "/tmp/compaction-test")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Workspace.Dir != "/tmp/compaction-test" {
		t.Errorf("expected env override, got %q", cfg.Workspace.Dir)
	}
	// 未覆盖的值保持默认
	if cfg.Masking.MaskIfCharsGreaterThan != 6000 {
		t.Errorf("unexpected mask threshold %d", cfg.Masking.MaskIfCharsGreaterThan)
	}
}
