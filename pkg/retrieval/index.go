package retrieval

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/easyops/compaction-go/pkg/artifact"
	coreerrors "github.com/easyops/compaction-go/pkg/core/errors"
	"github.com/easyops/compaction-go/pkg/otel"
)

// DefaultTopK 默认检索返回的结果数
const DefaultTopK = 8

// DefaultContextLines 带上下文检索时前后附带的默认行数
const DefaultContextLines = 3

// ArtifactReader 索引所需的制品读取接口
type ArtifactReader interface {
	ReadText(ctx context.Context, artifactID string) (string, error)
	List(filter artifact.ListFilter) []artifact.Meta
}

// Index 制品全文检索索引
//
// 基于 SQLite FTS5 实现。并发访问依赖 database/sql 的连接池，
// 已索引集合由互斥锁保护。
type Index struct {
	db           *sql.DB
	store        ArtifactReader
	topK         int
	chunkSize    int
	overlapLines int
	logger       otel.Logger
	metrics      otel.Metrics

	mu      sync.Mutex
	indexed map[string]struct{}
	closed  bool
}

// IndexOption Index 配置选项
type IndexOption func(*Index)

// WithTopK 设置默认检索结果数
func WithTopK(k int) IndexOption {
	return func(idx *Index) {
		idx.topK = k
	}
}

// WithChunking 设置分块参数
func WithChunking(chunkSize, overlapLines int) IndexOption {
	return func(idx *Index) {
		idx.chunkSize = chunkSize
		idx.overlapLines = overlapLines
	}
}

// WithIndexLogger 设置日志器
func WithIndexLogger(logger otel.Logger) IndexOption {
	return func(idx *Index) {
		idx.logger = logger
	}
}

// WithIndexMetrics 设置指标收集器
func WithIndexMetrics(metrics otel.Metrics) IndexOption {
	return func(idx *Index) {
		idx.metrics = metrics
	}
}

// NewIndex 创建检索索引
//
// dbPath 为索引数据库文件路径。表不存在时自动创建，
// 已有的索引记录会被加载以避免重复索引。
func NewIndex(dbPath string, store ArtifactReader, opts ...IndexOption) (*Index, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	idx := &Index{
		db:           db,
		store:        store,
		topK:         DefaultTopK,
		chunkSize:    DefaultChunkSize,
		overlapLines: DefaultOverlapLines,
		logger:       otel.GetLogger(),
		metrics:      otel.GetMetrics(),
		indexed:      make(map[string]struct{}),
	}

	for _, opt := range opts {
		opt(idx)
	}

	if err := idx.ensureTables(); err != nil {
		db.Close()
		return nil, err
	}
	if err := idx.loadIndexed(); err != nil {
		db.Close()
		return nil, err
	}

	return idx, nil
}

// ensureTables 确保 FTS5 表和标记表存在
func (idx *Index) ensureTables() error {
	if _, err := idx.db.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS artifact_chunks USING fts5(
			artifact_id,
			line_number,
			content,
			tokenize='porter unicode61'
		)
	`); err != nil {
		return fmt.Errorf("failed to create fts5 table: %w", err)
	}

	if _, err := idx.db.Exec(`
		CREATE TABLE IF NOT EXISTS indexed_artifacts (
			artifact_id TEXT PRIMARY KEY,
			indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create indexed_artifacts table: %w", err)
	}

	return nil
}

// loadIndexed 加载已索引的制品集合
func (idx *Index) loadIndexed() error {
	rows, err := idx.db.Query("SELECT artifact_id FROM indexed_artifacts")
	if err != nil {
		return fmt.Errorf("failed to load indexed artifacts: %w", err)
	}
	defer rows.Close()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return fmt.Errorf("failed to scan indexed artifact: %w", err)
		}
		idx.indexed[id] = struct{}{}
	}
	return rows.Err()
}

// isClosed 检查索引是否已关闭
func (idx *Index) isClosed() bool {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return idx.closed
}

// IndexArtifact 为一个制品建立全文索引
//
// 返回索引的块数。已索引或非文本内容的制品返回 0。
func (idx *Index) IndexArtifact(ctx context.Context, artifactID string) (int, error) {
	if idx.isClosed() {
		return 0, coreerrors.ErrIndexClosed
	}

	idx.mu.Lock()
	_, done := idx.indexed[artifactID]
	idx.mu.Unlock()
	if done {
		return 0, nil
	}

	content, err := idx.store.ReadText(ctx, artifactID)
	if err != nil {
		if errors.Is(err, coreerrors.ErrNotTextContent) {
			idx.logger.Warn("cannot index artifact: not text content", "artifact_id", artifactID)
			return 0, nil
		}
		return 0, fmt.Errorf("failed to read artifact for indexing: %w", err)
	}

	chunks := ChunkContent(content, idx.chunkSize, idx.overlapLines)

	tx, err := idx.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin index transaction: %w", err)
	}
	defer tx.Rollback()

	for _, chunk := range chunks {
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO artifact_chunks (artifact_id, line_number, content) VALUES (?, ?, ?)",
			artifactID, chunk.StartLine, chunk.Text,
		); err != nil {
			return 0, fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO indexed_artifacts (artifact_id) VALUES (?)",
		artifactID,
	); err != nil {
		return 0, fmt.Errorf("failed to mark artifact indexed: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit index transaction: %w", err)
	}

	idx.mu.Lock()
	idx.indexed[artifactID] = struct{}{}
	idx.mu.Unlock()

	idx.metrics.Counter(otel.MetricIndexedArtifacts).Add(ctx, 1)
	idx.metrics.Counter(otel.MetricIndexedChunks).Add(ctx, int64(len(chunks)))
	idx.logger.Debug("indexed artifact", "artifact_id", artifactID, "chunks", len(chunks))
	return len(chunks), nil
}

// IndexAll 为所有尚未索引的制品建立索引
//
// 返回新索引的总块数。
func (idx *Index) IndexAll(ctx context.Context) (int, error) {
	if idx.isClosed() {
		return 0, coreerrors.ErrIndexClosed
	}

	total := 0
	for _, meta := range idx.store.List(artifact.ListFilter{Limit: 1000}) {
		idx.mu.Lock()
		_, done := idx.indexed[meta.ArtifactID]
		idx.mu.Unlock()
		if done {
			continue
		}

		chunks, err := idx.IndexArtifact(ctx, meta.ArtifactID)
		if err != nil {
			return total, err
		}
		total += chunks
	}
	return total, nil
}

// IndexedCount 返回已索引的制品数
func (idx *Index) IndexedCount() int {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	return len(idx.indexed)
}

// Close 关闭索引数据库
func (idx *Index) Close() error {
	idx.mu.Lock()
	if idx.closed {
		idx.mu.Unlock()
		return nil
	}
	idx.closed = true
	idx.mu.Unlock()

	if err := idx.db.Close(); err != nil {
		return fmt.Errorf("failed to close index database: %w", err)
	}
	return nil
}
