// Package retrieval 提供基于 SQLite FTS5 的制品全文检索
//
// 制品在存储后被分块索引，支持按需检索相关片段而无需加载完整内容。
//
// mattn/go-sqlite3 默认不编译 FTS5 扩展，构建和测试本包
// （及依赖它的 compaction 引擎）需启用 sqlite_fts5 标签：
//
//	go build -tags sqlite_fts5 ./...
//	go test -tags sqlite_fts5 ./...
package retrieval

import "strings"

const (
	// DefaultChunkSize 默认分块目标大小（字符数）
	DefaultChunkSize = 500
	// DefaultOverlapLines 相邻块之间的默认重叠行数
	DefaultOverlapLines = 3
)

// Chunk 带起始行号的内容块
type Chunk struct {
	// StartLine 块的起始行号（从 1 开始）
	StartLine int
	// Text 块文本
	Text string
}

// ChunkContent 将内容切分为带行号的重叠块
//
// 按行累积直到超过目标大小，新块以上一块的末尾几行作为重叠开头，
// 保证跨块边界的内容仍可被检索到。
func ChunkContent(content string, chunkSize, overlapLines int) []Chunk {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlapLines < 0 {
		overlapLines = DefaultOverlapLines
	}

	lines := strings.Split(content, "\n")
	var chunks []Chunk

	var current []string
	currentSize := 0
	startLine := 1

	for i, line := range lines {
		lineNum := i + 1
		lineSize := len(line) + 1

		if currentSize+lineSize > chunkSize && len(current) > 0 {
			chunks = append(chunks, Chunk{
				StartLine: startLine,
				Text:      strings.Join(current, "\n"),
			})

			overlap := current
			if len(current) > overlapLines {
				overlap = current[len(current)-overlapLines:]
			}
			current = append([]string(nil), overlap...)
			currentSize = 0
			for _, l := range current {
				currentSize += len(l) + 1
			}
			startLine = lineNum - len(overlap)
			if startLine < 1 {
				startLine = 1
			}
		}

		current = append(current, line)
		currentSize += lineSize
	}

	if len(current) > 0 {
		chunks = append(chunks, Chunk{
			StartLine: startLine,
			Text:      strings.Join(current, "\n"),
		})
	}

	return chunks
}
