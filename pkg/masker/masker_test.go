package masker_test

import (
	"context"
	"strings"
	"testing"

	"github.com/easyops/compaction-go/pkg/artifact"
	"github.com/easyops/compaction-go/pkg/masker"
)

func newTestMasker(t *testing.T, opts ...masker.Option) (*masker.Masker, *artifact.Store) {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return masker.NewMasker(store, opts...), store
}

func TestShouldMaskThresholdIsStrict(t *testing.T) {
	m, _ := newTestMasker(t, masker.WithThreshold(100))

	if m.ShouldMask(strings.Repeat("a", 100)) {
		t.Error("content at exactly the threshold must not be masked")
	}
	if !m.ShouldMask(strings.Repeat("a", 101)) {
		t.Error("content one char over the threshold must be masked")
	}
}

func TestMaskSmallOutputKeptUnmasked(t *testing.T) {
	m, store := newTestMasker(t, masker.WithThreshold(100))

	ph, err := m.Mask(context.Background(), "call_1", "search", "short output", masker.MaskRequest{})
	if err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	if ph != nil {
		t.Error("expected small output to stay unmasked")
	}
	if store.Count() != 0 {
		t.Error("unmasked output must not be persisted")
	}

	recent := m.RecentUnmasked()
	if len(recent) != 1 || recent[0].Content != "short output" {
		t.Errorf("expected 1 recent unmasked observation, got %d", len(recent))
	}
}

func TestRecentUnmaskedRingEviction(t *testing.T) {
	m, _ := newTestMasker(t, masker.WithThreshold(1000), masker.WithKeepLast(3))

	ctx := context.Background()
	for _, content := range []string{"one", "two", "three", "four"} {
		if _, err := m.Mask(ctx, "call", "tool", content, masker.MaskRequest{}); err != nil {
			t.Fatalf("Mask failed: %v", err)
		}
	}

	recent := m.RecentUnmasked()
	if len(recent) != 3 {
		t.Fatalf("expected ring capped at 3, got %d", len(recent))
	}
	if recent[0].Content != "two" || recent[2].Content != "four" {
		t.Errorf("expected oldest observation evicted, got %v", recent)
	}
}

func TestMaskLargeOutput(t *testing.T) {
	m, store := newTestMasker(t, masker.WithThreshold(50))

	content := "Summary: the main finding\n" + strings.Repeat("filler text line\n", 20)
	ph, err := m.Mask(context.Background(), "call_2", "fetch_page", content, masker.MaskRequest{})
	if err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	if ph == nil {
		t.Fatal("expected large output to be masked")
	}

	if ph.ToolName != "fetch_page" || ph.ToolCallID != "call_2" {
		t.Errorf("unexpected placeholder identity: %+v", ph)
	}
	if ph.SizeBytes != int64(len(content)) {
		t.Errorf("expected size %d, got %d", len(content), ph.SizeBytes)
	}
	if len(ph.Highlights) == 0 {
		t.Error("expected highlights to be extracted")
	}
	if ph.Highlights[0] != "Summary: the main finding" {
		t.Errorf("expected keyword line as first highlight, got %q", ph.Highlights[0])
	}
	if !strings.Contains(ph.Digest, "fetch_page output") {
		t.Errorf("expected digest with tool name, got %q", ph.Digest)
	}

	// Full content must remain readable through the store.
	stored, err := store.ReadText(context.Background(), ph.ArtifactID)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if stored != content {
		t.Error("expected persisted content to match the original")
	}
	if m.MaskedCount() != 1 {
		t.Errorf("expected masked count 1, got %d", m.MaskedCount())
	}
}

func TestPlaceholderText(t *testing.T) {
	ph := masker.Placeholder{
		ToolName:   "fetch_page",
		Digest:     "fetch_page output (7,000 chars): preview...",
		ArtifactID: "art_abc123def456",
		Highlights: []string{"Result: ok"},
	}

	text := ph.Text()
	if !strings.HasPrefix(text, "[MASKED OUTPUT: fetch_page]") {
		t.Errorf("unexpected placeholder header: %q", text)
	}
	if !strings.Contains(text, "Digest: fetch_page output") {
		t.Errorf("expected digest line, got %q", text)
	}
	if !strings.Contains(text, "Artifact: art_abc123def456") {
		t.Errorf("expected artifact line, got %q", text)
	}
	if !strings.Contains(text, "- Result: ok") {
		t.Errorf("expected highlight bullet, got %q", text)
	}
	if !strings.Contains(text, "retrieve_snippets(artifact_id='art_abc123def456'") {
		t.Errorf("expected retrieval hint, got %q", text)
	}
}

func TestMaskDetectsURLAndRecordsEvidence(t *testing.T) {
	m, store := newTestMasker(t, masker.WithThreshold(50))

	content := "Fetched from https://example.com/page\n" + strings.Repeat("body ", 50)
	ph, err := m.Mask(context.Background(), "call_3", "fetch_page", content, masker.MaskRequest{})
	if err != nil {
		t.Fatalf("Mask failed: %v", err)
	}
	if ph == nil {
		t.Fatal("expected output to be masked")
	}

	evidence := m.Evidence()
	if len(evidence) != 1 {
		t.Fatalf("expected 1 evidence record, got %d", len(evidence))
	}
	if evidence[0].URL != "https://example.com/page" {
		t.Errorf("expected detected URL, got %q", evidence[0].URL)
	}
	if evidence[0].Notes != "Fetched by fetch_page" {
		t.Errorf("unexpected evidence notes: %q", evidence[0].Notes)
	}

	meta, err := store.GetMetadata(ph.ArtifactID)
	if err != nil {
		t.Fatalf("GetMetadata failed: %v", err)
	}
	if meta.SourceURL != "https://example.com/page" {
		t.Errorf("expected source URL on artifact meta, got %q", meta.SourceURL)
	}
}

func TestMaskSniffsContentType(t *testing.T) {
	m, store := newTestMasker(t, masker.WithThreshold(50))
	ctx := context.Background()

	htmlContent := "<!DOCTYPE html><html><body>" + strings.Repeat("x", 100) + "</body></html>"
	ph, err := m.Mask(ctx, "c1", "fetch_page", htmlContent, masker.MaskRequest{})
	if err != nil || ph == nil {
		t.Fatalf("Mask failed: %v", err)
	}
	meta, _ := store.GetMetadata(ph.ArtifactID)
	if meta.ContentType != artifact.ContentTypeHTML {
		t.Errorf("expected text/html, got %s", meta.ContentType)
	}

	jsonContent := `{"items": [` + strings.Repeat(`"x",`, 50) + `"y"]}`
	ph, err = m.Mask(ctx, "c2", "run_query", jsonContent, masker.MaskRequest{})
	if err != nil || ph == nil {
		t.Fatalf("Mask failed: %v", err)
	}
	meta, _ = store.GetMetadata(ph.ArtifactID)
	if meta.ContentType != artifact.ContentTypeJSON {
		t.Errorf("expected application/json, got %s", meta.ContentType)
	}
}

func TestClearOldPlaceholders(t *testing.T) {
	m, _ := newTestMasker(t, masker.WithThreshold(10))

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := m.Mask(ctx, "call", "tool", strings.Repeat("a", 20), masker.MaskRequest{}); err != nil {
			t.Fatalf("Mask failed: %v", err)
		}
	}

	removed := m.ClearOldPlaceholders(2)
	if removed != 3 {
		t.Errorf("expected 3 removed, got %d", removed)
	}
	if got := len(m.Placeholders()); got != 2 {
		t.Errorf("expected 2 placeholders kept, got %d", got)
	}

	if m.ClearOldPlaceholders(10) != 0 {
		t.Error("expected no removal when under the limit")
	}
	// Total count is not affected by pruning.
	if m.MaskedCount() != 5 {
		t.Errorf("expected masked count 5, got %d", m.MaskedCount())
	}
}
