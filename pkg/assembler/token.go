package assembler

import (
	"fmt"

	tiktoken "github.com/pkoukk/tiktoken-go"
)

// TokenCounter 估算文本的 Token 数
type TokenCounter interface {
	Count(text string) int
}

// HeuristicCounter 按约 4 字符一个 Token 估算
//
// 不依赖分词器，速度快，用作默认计数器。
type HeuristicCounter struct{}

// NewHeuristicCounter 创建启发式 Token 计数器
func NewHeuristicCounter() *HeuristicCounter {
	return &HeuristicCounter{}
}

// Count 估算文本的 Token 数
func (c *HeuristicCounter) Count(text string) int {
	return len(text) / 4
}

// TiktokenCounter 基于 tiktoken 分词器的精确计数器
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter 创建 tiktoken 计数器
//
// encodingName 为空时使用 cl100k_base。
func NewTiktokenCounter(encodingName string) (*TiktokenCounter, error) {
	if encodingName == "" {
		encodingName = "cl100k_base"
	}
	encoding, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		return nil, fmt.Errorf("failed to load tiktoken encoding: %w", err)
	}
	return &TiktokenCounter{encoding: encoding}, nil
}

// Count 返回文本的精确 Token 数
func (c *TiktokenCounter) Count(text string) int {
	return len(c.encoding.Encode(text, nil, nil))
}

// compile-time interface checks
var (
	_ TokenCounter = (*HeuristicCounter)(nil)
	_ TokenCounter = (*TiktokenCounter)(nil)
)
