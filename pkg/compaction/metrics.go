package compaction

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// StepMetrics 单步压缩指标
type StepMetrics struct {
	// Step 步数
	Step int `json:"step"`
	// Timestamp Unix 秒级时间戳
	Timestamp int64 `json:"timestamp"`
	// ArtifactsCount 当前制品总数
	ArtifactsCount int `json:"artifacts_count"`
	// BytesPersisted 已持久化的字节总数
	BytesPersisted int64 `json:"bytes_persisted"`
	// MaskedCount 累计遮蔽的输出条数
	MaskedCount int `json:"masked_count"`
	// CompactionTimeMS 本步压缩耗时（毫秒）
	CompactionTimeMS int64 `json:"compaction_time_ms"`
}

// StepRecorder 逐步指标记录器
//
// 指标同时保留在内存并以 JSONL 追加到文件，便于离线分析
// 压缩行为随步数的变化。
type StepRecorder struct {
	path string

	mu      sync.Mutex
	records []StepMetrics
}

// NewStepRecorder 创建逐步指标记录器
func NewStepRecorder(path string) *StepRecorder {
	return &StepRecorder{path: path}
}

// Record 记录一条逐步指标并追加到文件
func (r *StepRecorder) Record(m StepMetrics) error {
	r.mu.Lock()
	r.records = append(r.records, m)
	r.mu.Unlock()

	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal step metrics: %w", err)
	}

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}

// All 返回已记录指标的副本
func (r *StepRecorder) All() []StepMetrics {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]StepMetrics, len(r.records))
	copy(result, r.records)
	return result
}

// Path 返回指标文件路径
func (r *StepRecorder) Path() string {
	return r.path
}
