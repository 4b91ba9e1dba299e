package compaction_test

import (
	"bufio"
	"context"
	"os"
	"strings"
	"testing"

	"github.com/easyops/compaction-go/pkg/compaction"
	"github.com/easyops/compaction-go/pkg/core/config"
	"github.com/easyops/compaction-go/pkg/core/message"
)

func newTestEngine(t *testing.T, mutate func(*config.Config)) *compaction.Engine {
	t.Helper()

	cfg := config.Default()
	cfg.Workspace.Dir = t.TempDir()
	if mutate != nil {
		mutate(cfg)
	}

	engine, err := compaction.NewEngine(cfg)
	if err != nil {
		t.Fatalf("NewEngine failed: %v", err)
	}
	t.Cleanup(func() { engine.Close() })
	return engine
}

func TestEngineRegistersBuiltinTools(t *testing.T) {
	engine := newTestEngine(t, nil)

	for _, name := range []string{"save_artifact", "read_artifact", "search_artifacts", "retrieve_snippets"} {
		if !engine.Tools().Has(name) {
			t.Errorf("expected builtin tool %q registered", name)
		}
	}
}

func TestEngineMasksLargeToolOutput(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.Config) {
		cfg.Masking.MaskIfCharsGreaterThan = 50
	})
	ctx := context.Background()

	big := strings.Repeat("result data line\n", 20)
	content, masked, err := engine.ProcessToolOutput(ctx, "call_1", "fetch_page", big)
	if err != nil {
		t.Fatalf("ProcessToolOutput failed: %v", err)
	}
	if !masked {
		t.Fatal("expected large output to be masked")
	}
	if !strings.Contains(content, "[MASKED OUTPUT: fetch_page]") {
		t.Errorf("expected placeholder text, got %q", content)
	}
	if engine.Store().Count() != 1 {
		t.Errorf("expected 1 persisted artifact, got %d", engine.Store().Count())
	}
}

func TestEngineKeepsSmallOutput(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.Config) {
		cfg.Masking.MaskIfCharsGreaterThan = 50
	})

	content, masked, err := engine.ProcessToolOutput(context.Background(), "call_1", "fetch_page", "small")
	if err != nil {
		t.Fatalf("ProcessToolOutput failed: %v", err)
	}
	if masked || content != "small" {
		t.Errorf("expected small output unchanged, got masked=%v content=%q", masked, content)
	}
}

func TestEngineSkipsOwnTools(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.Config) {
		cfg.Masking.MaskIfCharsGreaterThan = 10
	})

	big := strings.Repeat("artifact listing\n", 10)
	content, masked, err := engine.ProcessToolOutput(context.Background(), "call_1", "search_artifacts", big)
	if err != nil {
		t.Fatalf("ProcessToolOutput failed: %v", err)
	}
	if masked || content != big {
		t.Error("expected builtin tool output to pass through unmasked")
	}
}

func TestEngineStepMetrics(t *testing.T) {
	var metricsPath string
	engine := newTestEngine(t, func(cfg *config.Config) {
		cfg.Metrics.Enabled = true
	})
	metricsPath = engine.Store().Dir() + "/compaction_metrics.jsonl"
	ctx := context.Background()

	engine.BeginStep(ctx)
	engine.EndStep(ctx)

	history := engine.StepMetricsHistory()
	if len(history) != 1 {
		t.Fatalf("expected 1 metrics record, got %d", len(history))
	}
	if history[0].Step != 1 {
		t.Errorf("expected step 1, got %d", history[0].Step)
	}

	f, err := os.Open(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		if strings.Contains(scanner.Text(), `"step":1`) {
			lines++
		}
	}
	if lines != 1 {
		t.Errorf("expected 1 metrics line in file, got %d", lines)
	}
}

func TestEngineSummarizeAfterSteps(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.Config) {
		cfg.Summarize.EverySteps = 2
	})
	ctx := context.Background()

	engine.BeginStep(ctx)
	if engine.ShouldSummarize(0) {
		t.Error("expected no summary trigger after 1 step")
	}
	engine.BeginStep(ctx)
	if !engine.ShouldSummarize(0) {
		t.Error("expected summary trigger after 2 steps")
	}

	state, err := engine.Summarize(ctx, []message.Message{
		message.NewUserMessage("Find the release date"),
		message.NewAssistantMessage("Confirmed that the release happened in March of last year."),
	})
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if state.StepNumber != 2 {
		t.Errorf("expected summary at step 2, got %d", state.StepNumber)
	}
	if engine.ShouldSummarize(0) {
		t.Error("expected trigger reset after summarizing")
	}
}

func TestEngineBuildContext(t *testing.T) {
	engine := newTestEngine(t, func(cfg *config.Config) {
		cfg.Masking.MaskIfCharsGreaterThan = 50
	})
	ctx := context.Background()

	if _, _, err := engine.ProcessToolOutput(ctx, "call_1", "fetch_page",
		strings.Repeat("long output\n", 20)); err != nil {
		t.Fatalf("ProcessToolOutput failed: %v", err)
	}
	if _, _, err := engine.ProcessToolOutput(ctx, "call_2", "run_query", "short result"); err != nil {
		t.Fatalf("ProcessToolOutput failed: %v", err)
	}

	assembled := engine.BuildContext(ctx, compaction.BuildRequest{
		WorkingMemory: "researching release dates",
	})

	text := assembled.ToText()
	if !strings.Contains(text, "## Working Memory") {
		t.Errorf("expected working memory block, got %q", text)
	}
	if !strings.Contains(text, "## Masked Placeholders") {
		t.Errorf("expected placeholders block, got %q", text)
	}
	if !strings.Contains(text, "## Recent Observations") {
		t.Errorf("expected observations block, got %q", text)
	}
	if !strings.Contains(text, "[run_query]\nshort result") {
		t.Errorf("expected unmasked observation content, got %q", text)
	}
}
