package summarizer_test

import (
	"context"
	"strings"
	"testing"

	"github.com/easyops/compaction-go/pkg/artifact"
	"github.com/easyops/compaction-go/pkg/core/message"
	"github.com/easyops/compaction-go/pkg/masker"
	"github.com/easyops/compaction-go/pkg/summarizer"
)

func TestShouldSummarizeByStepCount(t *testing.T) {
	s := summarizer.NewSummarizer(nil, summarizer.WithEverySteps(8))

	if s.ShouldSummarize(7, 0) {
		t.Error("expected no trigger before step interval")
	}
	if !s.ShouldSummarize(8, 0) {
		t.Error("expected trigger at step interval")
	}

	// After a summary the counter restarts from that step.
	if _, err := s.Summarize(context.Background(), nil, 8); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if s.ShouldSummarize(15, 0) {
		t.Error("expected no trigger 7 steps after last summary")
	}
	if !s.ShouldSummarize(16, 0) {
		t.Error("expected trigger 8 steps after last summary")
	}
}

func TestShouldSummarizeByTokenPressure(t *testing.T) {
	s := summarizer.NewSummarizer(nil,
		summarizer.WithEverySteps(100),
		summarizer.WithTokenTrigger(0.7, 1000))

	if s.ShouldSummarize(1, 700) {
		t.Error("expected no trigger at exactly the token threshold")
	}
	if !s.ShouldSummarize(1, 701) {
		t.Error("expected trigger above the token threshold")
	}
	if s.ShouldSummarize(1, 0) {
		t.Error("expected unknown token count to be ignored")
	}
}

func TestSummarizeExtractsStructuredState(t *testing.T) {
	s := summarizer.NewSummarizer(nil)

	messages := []message.Message{
		message.NewUserMessage("Research the population of penguin colonies in Antarctica"),
		message.NewAssistantMessage(
			"Confirmed that the largest colony holds over half a million breeding pairs. " +
				"It might be that climate shifts are reducing krill availability near the peninsula. " +
				"What is the current trend for emperor penguin populations?"),
		message.NewToolMessage("call_1", "search", "results..."),
	}

	state, err := s.Summarize(context.Background(), messages, 5)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	if state.StepNumber != 5 {
		t.Errorf("expected step 5, got %d", state.StepNumber)
	}
	if len(state.ConfirmedFacts) == 0 {
		t.Error("expected confirmed facts to be extracted")
	}
	if len(state.Hypotheses) == 0 {
		t.Error("expected hypotheses to be extracted")
	}
	if len(state.OpenQuestions) == 0 {
		t.Error("expected open questions to be extracted")
	}
	if !strings.Contains(state.ExecutiveSummary, "Task: Research the population") {
		t.Errorf("expected task in executive summary, got %q", state.ExecutiveSummary)
	}
	if !strings.Contains(state.ExecutiveSummary, "1 reasoning steps, 1 tool calls") {
		t.Errorf("expected progress counts, got %q", state.ExecutiveSummary)
	}
}

func TestSummarizeIncludesVisitedSources(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	m := masker.NewMasker(store, masker.WithThreshold(50))

	content := "see https://example.org/report\n" + strings.Repeat("data ", 50)
	if _, err := m.Mask(context.Background(), "c1", "fetch_page", content, masker.MaskRequest{}); err != nil {
		t.Fatalf("Mask failed: %v", err)
	}

	s := summarizer.NewSummarizer(m)
	state, err := s.Summarize(context.Background(), nil, 1)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if len(state.VisitedSources) != 1 || state.VisitedSources[0] != "https://example.org/report" {
		t.Errorf("expected evidence URL in visited sources, got %v", state.VisitedSources)
	}
}

func TestLatestAndAllSummaries(t *testing.T) {
	s := summarizer.NewSummarizer(nil)

	if s.LatestSummary() != nil {
		t.Error("expected nil latest summary before any summarize")
	}

	ctx := context.Background()
	if _, err := s.Summarize(ctx, nil, 1); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}
	if _, err := s.Summarize(ctx, nil, 2); err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	latest := s.LatestSummary()
	if latest == nil || latest.StepNumber != 2 {
		t.Errorf("expected latest summary at step 2, got %+v", latest)
	}
	if got := len(s.AllSummaries()); got != 2 {
		t.Errorf("expected 2 summaries, got %d", got)
	}
}

func TestFormatForContext(t *testing.T) {
	s := summarizer.NewSummarizer(nil)
	messages := []message.Message{
		message.NewUserMessage("Investigate the anomaly"),
		message.NewAssistantMessage("Confirmed that the service restarts every night at midnight exactly."),
	}
	state, err := s.Summarize(context.Background(), messages, 3)
	if err != nil {
		t.Fatalf("Summarize failed: %v", err)
	}

	text := summarizer.FormatForContext(state)
	if !strings.HasPrefix(text, "## Reasoning State Summary") {
		t.Errorf("unexpected header: %q", text)
	}
	if !strings.Contains(text, "*Step 3 |") {
		t.Errorf("expected step line, got %q", text)
	}
	if !strings.Contains(text, "**Confirmed Facts:**") {
		t.Errorf("expected facts section, got %q", text)
	}
}

func TestHeuristicExtractorCapsAndFilters(t *testing.T) {
	e := summarizer.NewHeuristicExtractor()

	// Short matches below the minimum length must be dropped.
	short := []message.Message{
		message.NewAssistantMessage("Confirmed that yes. It might be so."),
	}
	result, err := e.Extract(context.Background(), short)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.ConfirmedFacts) != 0 {
		t.Errorf("expected short facts filtered out, got %v", result.ConfirmedFacts)
	}

	// Non-assistant messages are ignored.
	userOnly := []message.Message{
		message.NewUserMessage("Confirmed that this fact comes from the user and is quite long."),
	}
	result, err = e.Extract(context.Background(), userOnly)
	if err != nil {
		t.Fatalf("Extract failed: %v", err)
	}
	if len(result.ConfirmedFacts) != 0 {
		t.Errorf("expected user messages ignored, got %v", result.ConfirmedFacts)
	}
}
