package retrieval

import (
	"context"
	"fmt"
	"math"
	"regexp"
	"strings"
	"time"

	coreerrors "github.com/easyops/compaction-go/pkg/core/errors"
	"github.com/easyops/compaction-go/pkg/otel"
)

// Result 单条检索结果
type Result struct {
	// ArtifactID 命中的制品 ID
	ArtifactID string
	// Snippet 命中的文本块
	Snippet string
	// LineNumber 块的起始行号
	LineNumber int
	// Score 相关性得分（BM25，越大越相关）
	Score float64
	// ContextBefore 命中块之前的上下文行
	ContextBefore string
	// ContextAfter 命中块之后的上下文行
	ContextAfter string
}

// SearchRequest 检索请求的可选参数
type SearchRequest struct {
	// ArtifactID 限定检索范围到单个制品
	ArtifactID string
	// TopK 最大返回条数，0 表示使用索引默认值
	TopK int
}

// nonWordPattern 清理 FTS5 特殊字符
var nonWordPattern = regexp.MustCompile(`[^\w\s]`)

// buildFTSQuery 将查询清理为 OR 连接的词项
func buildFTSQuery(query string) (string, bool) {
	safe := nonWordPattern.ReplaceAllString(query, " ")
	terms := strings.Fields(safe)
	if len(terms) == 0 {
		return "", false
	}
	return strings.Join(terms, " OR "), true
}

// Search 检索与查询相关的片段
//
// 查询先清理掉 FTS5 特殊字符，词项以 OR 连接。结果按 BM25
// 相关性排序，得分取绝对值（SQLite 的 bm25() 返回负值）。
func (idx *Index) Search(ctx context.Context, query string, req SearchRequest) ([]Result, error) {
	if idx.isClosed() {
		return nil, coreerrors.ErrIndexClosed
	}

	ftsQuery, ok := buildFTSQuery(query)
	if !ok {
		return nil, coreerrors.ErrEmptyQuery
	}

	topK := req.TopK
	if topK <= 0 {
		topK = idx.topK
	}

	sqlStmt := `
		SELECT artifact_id, line_number, content, bm25(artifact_chunks) AS score
		FROM artifact_chunks
		WHERE artifact_chunks MATCH ?
	`
	args := []interface{}{ftsQuery}
	if req.ArtifactID != "" {
		sqlStmt += " AND artifact_id = ?"
		args = append(args, req.ArtifactID)
	}
	sqlStmt += " ORDER BY score LIMIT ?"
	args = append(args, topK)

	start := time.Now()
	rows, err := idx.db.QueryContext(ctx, sqlStmt, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ArtifactID, &r.LineNumber, &r.Snippet, &r.Score); err != nil {
			return nil, fmt.Errorf("failed to scan search result: %w", err)
		}
		r.Score = math.Abs(r.Score)
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate search results: %w", err)
	}

	idx.metrics.Counter(otel.MetricSearchQueries).Add(ctx, 1)
	idx.metrics.Histogram(otel.MetricSearchDuration).Record(ctx,
		float64(time.Since(start).Milliseconds()))
	if len(results) == 0 {
		idx.metrics.Counter(otel.MetricSearchEmptyHits).Add(ctx, 1)
	}

	return results, nil
}

// SearchWithContext 检索并附带命中块前后的上下文行
func (idx *Index) SearchWithContext(ctx context.Context, query string, req SearchRequest, contextLines int) ([]Result, error) {
	results, err := idx.Search(ctx, query, req)
	if err != nil {
		return nil, err
	}

	for i := range results {
		content, err := idx.store.ReadText(ctx, results[i].ArtifactID)
		if err != nil {
			continue
		}

		lines := strings.Split(content, "\n")
		lineIdx := results[i].LineNumber - 1

		start := lineIdx - contextLines
		if start < 0 {
			start = 0
		}
		end := results[i].LineNumber + contextLines
		if end > len(lines) {
			end = len(lines)
		}

		if start < lineIdx {
			results[i].ContextBefore = strings.Join(lines[start:lineIdx], "\n")
		}
		if end > results[i].LineNumber && results[i].LineNumber <= len(lines) {
			results[i].ContextAfter = strings.Join(lines[results[i].LineNumber:end], "\n")
		}
	}

	return results, nil
}
