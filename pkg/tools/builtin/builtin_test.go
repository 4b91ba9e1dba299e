package builtin_test

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/easyops/compaction-go/pkg/artifact"
	"github.com/easyops/compaction-go/pkg/retrieval"
	"github.com/easyops/compaction-go/pkg/tools/builtin"
)

func newTestStore(t *testing.T) *artifact.Store {
	t.Helper()
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return store
}

func TestSaveArtifactTool(t *testing.T) {
	store := newTestStore(t)
	tool := builtin.NewSaveArtifactTool(store)

	result, err := tool.Execute(context.Background(), map[string]interface{}{
		"content": "important research finding",
		"title":   "Finding",
		"tags":    "research, notes",
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.HasPrefix(result, "Saved artifact art_") {
		t.Errorf("unexpected result %q", result)
	}

	saved := store.List(artifact.ListFilter{ToolName: "save_artifact"})
	if len(saved) != 1 {
		t.Fatalf("expected 1 artifact, got %d", len(saved))
	}
	if saved[0].Title != "Finding" || len(saved[0].Tags) != 2 {
		t.Errorf("unexpected metadata %+v", saved[0])
	}

	result, err = tool.Execute(context.Background(), map[string]interface{}{
		"content": strings.Repeat("x", 12345),
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.HasSuffix(result, "(12,345 chars)") {
		t.Errorf("expected thousands-separated count, got %q", result)
	}
}

func TestSaveArtifactToolRequiresContent(t *testing.T) {
	tool := builtin.NewSaveArtifactTool(newTestStore(t))

	if _, err := tool.Execute(context.Background(), map[string]interface{}{}); err == nil {
		t.Error("expected error for missing content")
	}
}

func TestReadArtifactToolPaging(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	var lines []string
	for i := 1; i <= 30; i++ {
		lines = append(lines, fmt.Sprintf("line %d", i))
	}
	meta, err := store.WriteText(ctx, strings.Join(lines, "\n"), artifact.WriteRequest{
		ToolName: "fetch_page",
	})
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	tool := builtin.NewReadArtifactTool(store)
	result, err := tool.Execute(ctx, map[string]interface{}{
		"artifact_id": meta.ArtifactID,
		"offset":      float64(10),
		"limit":       float64(5),
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if !strings.HasPrefix(result, "line 11") {
		t.Errorf("expected content from line 11, got %q", result)
	}
	if !strings.Contains(result, "[Showing lines 11-15 of 30]") {
		t.Errorf("expected paging note, got %q", result)
	}
}

func TestReadArtifactToolFullContent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta, err := store.WriteText(ctx, "single line", artifact.WriteRequest{ToolName: "fetch_page"})
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	tool := builtin.NewReadArtifactTool(store)
	result, err := tool.Execute(ctx, map[string]interface{}{"artifact_id": meta.ArtifactID})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != "single line" {
		t.Errorf("expected raw content without paging note, got %q", result)
	}
}

func TestSearchArtifactsTool(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	if _, err := store.WriteText(ctx, "alpha content", artifact.WriteRequest{
		ToolName: "fetch_page",
		Title:    "Alpha",
		Tags:     []string{"research"},
	}); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if _, err := store.WriteText(ctx, "beta content", artifact.WriteRequest{
		ToolName: "run_query",
	}); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	tool := builtin.NewSearchArtifactsTool(store)
	result, err := tool.Execute(ctx, map[string]interface{}{"tool_name": "fetch_page"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result, "Found 1 artifact(s):") {
		t.Errorf("unexpected result %q", result)
	}
	if !strings.Contains(result, "Alpha | fetch_page") {
		t.Errorf("expected metadata line, got %q", result)
	}

	result, err = tool.Execute(ctx, map[string]interface{}{"tool_name": "no_such_tool"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if result != "No artifacts found matching the criteria." {
		t.Errorf("unexpected empty result %q", result)
	}
}

func TestRetrieveSnippetsTool(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	meta, err := store.WriteText(ctx,
		"The capital of France is Paris.\nIt is known for the Eiffel Tower.\nUnrelated trailing text.",
		artifact.WriteRequest{ToolName: "fetch_page"})
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	index, err := retrieval.NewIndex(filepath.Join(t.TempDir(), "index.db"), store)
	if err != nil {
		t.Fatalf("NewIndex failed: %v", err)
	}
	defer index.Close()

	tool := builtin.NewRetrieveSnippetsTool(index)
	result, err := tool.Execute(ctx, map[string]interface{}{
		"query":       "Eiffel Tower",
		"artifact_id": meta.ArtifactID,
	})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result, "snippet(s) matching 'Eiffel Tower'") {
		t.Errorf("unexpected result %q", result)
	}
	if !strings.Contains(result, meta.ArtifactID) {
		t.Errorf("expected artifact ID in result, got %q", result)
	}

	result, err = tool.Execute(ctx, map[string]interface{}{"query": "zebra quantum"})
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !strings.Contains(result, "No snippets matching 'zebra quantum'") {
		t.Errorf("unexpected empty result %q", result)
	}
}
