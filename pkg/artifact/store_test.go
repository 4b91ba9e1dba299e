package artifact_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/easyops/compaction-go/pkg/artifact"
	coreerrors "github.com/easyops/compaction-go/pkg/core/errors"
)

func TestStoreWriteAndRead(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	meta, err := store.WriteText(ctx, "hello world", artifact.WriteRequest{
		ToolName: "fetch_page",
	})
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	if !strings.HasPrefix(meta.ArtifactID, "art_") {
		t.Errorf("expected artifact ID with art_ prefix, got %s", meta.ArtifactID)
	}
	if len(meta.ArtifactID) != len("art_")+12 {
		t.Errorf("expected 12 hex chars in artifact ID, got %s", meta.ArtifactID)
	}
	if len(meta.ContentHash) != 64 {
		t.Errorf("expected sha256 hex hash, got %s", meta.ContentHash)
	}
	if meta.SizeBytes != int64(len("hello world")) {
		t.Errorf("expected %d bytes, got %d", len("hello world"), meta.SizeBytes)
	}
	if !strings.HasSuffix(meta.StoredRawPath, ".txt") {
		t.Errorf("expected .txt extension for text/plain, got %s", meta.StoredRawPath)
	}

	content, err := store.ReadText(ctx, meta.ArtifactID)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if content != "hello world" {
		t.Errorf("expected round-tripped content, got %q", content)
	}
}

func TestStoreContentTypeExtensions(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	cases := []struct {
		contentType string
		wantExt     string
	}{
		{artifact.ContentTypeHTML, ".html"},
		{artifact.ContentTypeJSON, ".json"},
		{artifact.ContentTypeText, ".txt"},
		{"application/octet-stream", ".bin"},
	}

	for _, tc := range cases {
		meta, err := store.WriteText(ctx, "content", artifact.WriteRequest{
			ToolName:    "tool",
			ContentType: tc.contentType,
		})
		if err != nil {
			t.Fatalf("WriteText(%s) failed: %v", tc.contentType, err)
		}
		if filepath.Ext(meta.StoredRawPath) != tc.wantExt {
			t.Errorf("content type %s: expected ext %s, got %s",
				tc.contentType, tc.wantExt, filepath.Ext(meta.StoredRawPath))
		}
	}
}

func TestStoreRedaction(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	secret := "the key is sk-abcdefghij1234567890abcdef and more text"
	meta, err := store.WriteText(ctx, secret, artifact.WriteRequest{ToolName: "tool"})
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	content, err := store.ReadText(ctx, meta.ArtifactID)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if strings.Contains(content, "sk-abcdefghij") {
		t.Error("expected secret to be redacted")
	}
	if !strings.Contains(content, "[REDACTED_API_KEY]") {
		t.Errorf("expected redaction marker, got %q", content)
	}
}

func TestStoreRedactionDisabled(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir(), artifact.WithRedaction(false))
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	secret := "sk-abcdefghij1234567890abcdef"
	meta, err := store.WriteText(ctx, secret, artifact.WriteRequest{ToolName: "tool"})
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	content, err := store.ReadText(ctx, meta.ArtifactID)
	if err != nil {
		t.Fatalf("ReadText failed: %v", err)
	}
	if content != secret {
		t.Errorf("expected unredacted content, got %q", content)
	}
}

func TestStoreLedgerReplay(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := artifact.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	meta1, err := store.WriteText(ctx, "first artifact", artifact.WriteRequest{ToolName: "tool_a"})
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if _, err := store.WriteText(ctx, "second artifact", artifact.WriteRequest{ToolName: "tool_b"}); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	// Corrupt the ledger with a malformed line, replay must skip it.
	ledgerPath := filepath.Join(dir, "artifact_metadata.jsonl")
	f, err := os.OpenFile(ledgerPath, os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		t.Fatalf("failed to open ledger: %v", err)
	}
	if _, err := f.WriteString("{not valid json\n"); err != nil {
		t.Fatalf("failed to corrupt ledger: %v", err)
	}
	f.Close()

	reopened, err := artifact.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore on existing dir failed: %v", err)
	}
	if reopened.Count() != 2 {
		t.Errorf("expected 2 artifacts after replay, got %d", reopened.Count())
	}

	content, err := reopened.ReadText(ctx, meta1.ArtifactID)
	if err != nil {
		t.Fatalf("ReadText after replay failed: %v", err)
	}
	if content != "first artifact" {
		t.Errorf("expected replayed content, got %q", content)
	}
}

func TestStoreConcurrentWritesKeepLedgerIntact(t *testing.T) {
	dir := t.TempDir()
	store, err := artifact.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	const writers = 20
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			content := strings.Repeat(fmt.Sprintf("writer %d content\n", n), 50)
			if _, err := store.WriteText(ctx, content, artifact.WriteRequest{ToolName: "tool"}); err != nil {
				t.Errorf("WriteText failed: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if store.Count() != writers {
		t.Fatalf("expected %d artifacts, got %d", writers, store.Count())
	}

	// Every ledger line must replay cleanly, no interleaved writes.
	reopened, err := artifact.NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore reopen failed: %v", err)
	}
	if reopened.Count() != writers {
		t.Errorf("expected %d artifacts after replay, got %d", writers, reopened.Count())
	}
}

func TestStoreListFilters(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	if _, err := store.WriteText(ctx, "a", artifact.WriteRequest{
		ToolName: "fetch_page",
		SourceURL: "https://example.com/docs",
		Tags:     []string{"web"},
	}); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}
	if _, err := store.WriteText(ctx, "b", artifact.WriteRequest{
		ToolName: "run_query",
		Tags:     []string{"db", "report"},
	}); err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	byTool := store.List(artifact.ListFilter{ToolName: "fetch_page"})
	if len(byTool) != 1 || byTool[0].ToolName != "fetch_page" {
		t.Errorf("expected 1 fetch_page artifact, got %d", len(byTool))
	}

	byTag := store.List(artifact.ListFilter{Tags: []string{"report", "missing"}})
	if len(byTag) != 1 || byTag[0].ToolName != "run_query" {
		t.Errorf("expected 1 artifact matching tag, got %d", len(byTag))
	}

	byURL := store.List(artifact.ListFilter{SourceURLContains: "example.com"})
	if len(byURL) != 1 {
		t.Errorf("expected 1 artifact matching URL substring, got %d", len(byURL))
	}

	limited := store.List(artifact.ListFilter{Limit: 1})
	if len(limited) != 1 {
		t.Errorf("expected limit to cap results, got %d", len(limited))
	}

	if store.Count() != 2 {
		t.Errorf("expected count 2, got %d", store.Count())
	}
	if store.TotalBytes() != 2 {
		t.Errorf("expected 2 total bytes, got %d", store.TotalBytes())
	}
}

func TestStoreReadNotFound(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	_, err = store.Read(context.Background(), "art_missing00000")
	if !errors.Is(err, coreerrors.ErrArtifactNotFound) {
		t.Errorf("expected ErrArtifactNotFound, got %v", err)
	}
	if !coreerrors.IsNotFound(err) {
		t.Error("expected IsNotFound to report true")
	}
}

func TestStoreReadByPath(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	meta, err := store.WriteText(ctx, "by path", artifact.WriteRequest{ToolName: "tool"})
	if err != nil {
		t.Fatalf("WriteText failed: %v", err)
	}

	data, err := store.ReadByPath(ctx, meta.StoredRawPath)
	if err != nil {
		t.Fatalf("ReadByPath failed: %v", err)
	}
	if string(data) != "by path" {
		t.Errorf("expected content by path, got %q", data)
	}
}

func TestStoreReadTextRejectsBinary(t *testing.T) {
	store, err := artifact.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	ctx := context.Background()
	meta, err := store.WriteBytes(ctx, []byte{0x89, 0x50, 0x4e, 0x47}, artifact.WriteRequest{
		ToolName:    "screenshot",
		ContentType: artifact.ContentTypePNG,
	})
	if err != nil {
		t.Fatalf("WriteBytes failed: %v", err)
	}

	_, err = store.ReadText(ctx, meta.ArtifactID)
	if !errors.Is(err, coreerrors.ErrNotTextContent) {
		t.Errorf("expected ErrNotTextContent, got %v", err)
	}
}
