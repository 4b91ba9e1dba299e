package masker

import (
	"fmt"
	"regexp"
	"strings"
)

// 识别重要行的启发式模式
var importantLinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(summary|conclusion|result|finding|key|important|note):`),
	regexp.MustCompile(`(?i)^(error|warning|success):`),
	regexp.MustCompile(`^\d+\.\s+`),
	regexp.MustCompile(`^[-*]\s+`),
}

const (
	// maxHighlights 占位符携带的最大要点数
	maxHighlights = 5
	// highlightScanLines 仅扫描前多少行
	highlightScanLines = 50
	// highlightMaxChars 单条要点的最大长度
	highlightMaxChars = 200
)

// extractHighlights 用简单启发式从内容中提取要点
//
// 优先选择以关键词、编号或项目符号开头的行；不足两条时
// 回退到前几条非空行。
func extractHighlights(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}

	var highlights []string
	scan := lines
	if len(scan) > highlightScanLines {
		scan = scan[:highlightScanLines]
	}
	for _, line := range scan {
		if len(highlights) >= maxHighlights {
			break
		}
		for _, pattern := range importantLinePatterns {
			if pattern.MatchString(line) {
				highlights = append(highlights, truncateHighlight(line))
				break
			}
		}
	}

	if len(highlights) < 2 {
		head := lines
		if len(head) > 5 {
			head = head[:5]
		}
		for _, line := range head {
			truncated := truncateHighlight(line)
			if !containsString(highlights, truncated) {
				highlights = append(highlights, truncated)
				if len(highlights) >= maxHighlights {
					break
				}
			}
		}
	}

	return highlights
}

func truncateHighlight(line string) string {
	if len(line) > highlightMaxChars {
		return line[:highlightMaxChars] + "..."
	}
	return line
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

// generateDigest 生成内容的简短摘要
func generateDigest(content, toolName string) string {
	preview := content
	if len(preview) > 100 {
		preview = preview[:100]
	}
	preview = strings.TrimSpace(strings.ReplaceAll(preview, "\n", " "))
	if len(content) > 100 {
		preview += "..."
	}
	return fmt.Sprintf("%s output (%s chars): %s", toolName, formatThousands(len(content)), preview)
}

// formatThousands 按千位分隔格式化整数
func formatThousands(n int) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	rem := len(s) % 3
	if rem > 0 {
		b.WriteString(s[:rem])
	}
	for i := rem; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteString(",")
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// urlPattern 从内容中探测来源 URL
var urlPattern = regexp.MustCompile(`https?://[^\s<>"{}|\\^` + "`" + `\[\]]+`)

// detectURL 在内容开头探测来源 URL
func detectURL(content string) string {
	head := content
	if len(head) > 2000 {
		head = head[:2000]
	}
	return urlPattern.FindString(head)
}

// sniffContentType 根据内容前缀判断内容类型
func sniffContentType(content string) string {
	head := content
	if len(head) > 500 {
		head = head[:500]
	}
	head = strings.ToLower(head)
	if strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html") {
		return "text/html"
	}

	trimmed := strings.TrimSpace(content)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		return "application/json"
	}
	return "text/plain"
}
