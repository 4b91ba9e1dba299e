// Package config 提供压缩引擎配置的加载和管理功能
package config

import (
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config 全局配置结构
type Config struct {
	// Workspace 工作区配置
	Workspace WorkspaceConfig `koanf:"workspace"`
	// Masking 观测遮蔽配置
	Masking MaskingConfig `koanf:"masking"`
	// Summarize 推理状态摘要配置
	Summarize SummarizeConfig `koanf:"summarize"`
	// Retrieval 检索索引配置
	Retrieval RetrievalConfig `koanf:"retrieval"`
	// Budgets 上下文块 Token 预算配置
	Budgets BudgetConfig `koanf:"budgets"`
	// Metrics 指标记录配置
	Metrics MetricsConfig `koanf:"metrics"`
	// Observability 可观测性配置
	Observability ObservabilityConfig `koanf:"observability"`
}

// WorkspaceConfig 工作区配置
type WorkspaceConfig struct {
	// Dir 制品与元数据的根目录
	Dir string `koanf:"dir"`
	// RedactSecrets 是否对制品内容做密钥脱敏
	RedactSecrets bool `koanf:"redact_secrets"`
}

// MaskingConfig 观测遮蔽配置
type MaskingConfig struct {
	// MaskIfCharsGreaterThan 超过该字符数的工具输出将被持久化并替换为占位符
	MaskIfCharsGreaterThan int `koanf:"mask_if_chars_gt"`
	// KeepLastUnmasked 保留最近 N 条未遮蔽的工具输出
	KeepLastUnmasked int `koanf:"keep_last_unmasked"`
}

// SummarizeConfig 推理状态摘要配置
type SummarizeConfig struct {
	// EverySteps 每 N 步生成一次摘要
	EverySteps int `koanf:"every_steps"`
	// TokenFraction 估算上下文超过模型限制的该比例时触发摘要
	TokenFraction float64 `koanf:"token_fraction"`
	// ModelContextLimit 模型上下文 Token 上限
	ModelContextLimit int `koanf:"model_context_limit"`
}

// RetrievalConfig 检索索引配置
type RetrievalConfig struct {
	// TopK 检索返回的默认结果数
	TopK int `koanf:"top_k"`
	// ChunkSize 分块目标大小（字符数）
	ChunkSize int `koanf:"chunk_size"`
	// OverlapLines 相邻块之间的重叠行数
	OverlapLines int `koanf:"overlap_lines"`
	// ContextLines 带上下文检索时前后附带的行数
	ContextLines int `koanf:"context_lines"`
}

// BudgetConfig 上下文块 Token 预算配置
type BudgetConfig struct {
	// WorkingMemory 工作记忆块预算
	WorkingMemory int `koanf:"working_memory"`
	// PlanState 计划状态块预算
	PlanState int `koanf:"plan_state"`
	// DecisionLedger 决策账本块预算
	DecisionLedger int `koanf:"decision_ledger"`
	// ReasoningState 推理状态块预算
	ReasoningState int `koanf:"reasoning_state"`
	// RecentObservations 近期观测块预算
	RecentObservations int `koanf:"recent_observations"`
	// MaskedPlaceholders 遮蔽占位符块预算
	MaskedPlaceholders int `koanf:"masked_placeholders"`
	// RetrievedSnippets 检索片段块预算
	RetrievedSnippets int `koanf:"retrieved_snippets"`
	// TotalFraction 压缩上下文占模型上下文上限的比例
	TotalFraction float64 `koanf:"total_fraction"`
}

// MetricsConfig 指标记录配置
type MetricsConfig struct {
	// Enabled 是否启用逐步指标记录
	Enabled bool `koanf:"enabled"`
	// File 指标文件名（JSONL 格式，位于工作区内）
	File string `koanf:"file"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	// Enabled 是否启用
	Enabled bool `koanf:"enabled"`
	// ServiceName 服务名称
	ServiceName string `koanf:"service_name"`
	// TracerEndpoint 追踪端点
	TracerEndpoint string `koanf:"tracer_endpoint"`
	// MetricsEndpoint 指标端点
	MetricsEndpoint string `koanf:"metrics_endpoint"`
	// SampleRate 采样率 [0, 1]
	SampleRate float64 `koanf:"sample_rate"`
}

// Loader 配置加载器
type Loader struct {
	k *koanf.Koanf
}

// NewLoader 创建配置加载器
func NewLoader() *Loader {
	return &Loader{
		k: koanf.New("."),
	}
}

// LoadEnv 从环境变量加载配置
func (l *Loader) LoadEnv(prefix string) error {
	return l.k.Load(env.Provider(prefix, ".", func(s string) string {
		// 转换环境变量名: COMPACTION_MASKING_KEEP_LAST_UNMASKED -> masking.keep_last_unmasked
		s = strings.TrimPrefix(s, prefix)
		s = strings.ToLower(s)
		s = strings.ReplaceAll(s, "_", ".")
		return s
	}), nil)
}

// Unmarshal 解析配置到结构体
func (l *Loader) Unmarshal(cfg *Config) error {
	return l.k.Unmarshal("", cfg)
}

// Get 获取配置值
func (l *Loader) Get(key string) interface{} {
	return l.k.Get(key)
}

// GetString 获取字符串配置值
func (l *Loader) GetString(key string) string {
	return l.k.String(key)
}

// GetInt 获取整数配置值
func (l *Loader) GetInt(key string) int {
	return l.k.Int(key)
}

// GetBool 获取布尔配置值
func (l *Loader) GetBool(key string) bool {
	return l.k.Bool(key)
}

// GetDuration 获取时间间隔配置值
func (l *Loader) GetDuration(key string) time.Duration {
	return l.k.Duration(key)
}

// Load 加载完整配置（环境变量 + 默认值）
func Load() (*Config, error) {
	loader := NewLoader()

	if err := loader.LoadEnv("COMPACTION_"); err != nil {
		return nil, err
	}

	cfg := Default()
	if err := loader.Unmarshal(cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)

	return cfg, nil
}

// Default 返回具有默认值的完整配置
func Default() *Config {
	cfg := &Config{}
	// 脱敏默认开启；环境变量 COMPACTION_WORKSPACE_REDACT_SECRETS=false 可关闭
	cfg.Workspace.RedactSecrets = true
	applyDefaults(cfg)
	return cfg
}

// applyDefaults 应用默认配置值
func applyDefaults(cfg *Config) {
	if cfg.Workspace.Dir == "" {
		cfg.Workspace.Dir = ".compaction"
	}

	if cfg.Masking.MaskIfCharsGreaterThan == 0 {
		cfg.Masking.MaskIfCharsGreaterThan = 6000
	}
	if cfg.Masking.KeepLastUnmasked == 0 {
		cfg.Masking.KeepLastUnmasked = 3
	}

	if cfg.Summarize.EverySteps == 0 {
		cfg.Summarize.EverySteps = 8
	}
	if cfg.Summarize.TokenFraction == 0 {
		cfg.Summarize.TokenFraction = 0.7
	}
	if cfg.Summarize.ModelContextLimit == 0 {
		cfg.Summarize.ModelContextLimit = 128000
	}

	if cfg.Retrieval.TopK == 0 {
		cfg.Retrieval.TopK = 8
	}
	if cfg.Retrieval.ChunkSize == 0 {
		cfg.Retrieval.ChunkSize = 500
	}
	if cfg.Retrieval.OverlapLines == 0 {
		cfg.Retrieval.OverlapLines = 3
	}
	if cfg.Retrieval.ContextLines == 0 {
		cfg.Retrieval.ContextLines = 3
	}

	if cfg.Budgets.WorkingMemory == 0 {
		cfg.Budgets.WorkingMemory = 400
	}
	if cfg.Budgets.PlanState == 0 {
		cfg.Budgets.PlanState = 300
	}
	if cfg.Budgets.DecisionLedger == 0 {
		cfg.Budgets.DecisionLedger = 400
	}
	if cfg.Budgets.ReasoningState == 0 {
		cfg.Budgets.ReasoningState = 600
	}
	if cfg.Budgets.RecentObservations == 0 {
		cfg.Budgets.RecentObservations = 1000
	}
	if cfg.Budgets.MaskedPlaceholders == 0 {
		cfg.Budgets.MaskedPlaceholders = 200
	}
	if cfg.Budgets.RetrievedSnippets == 0 {
		cfg.Budgets.RetrievedSnippets = 800
	}
	if cfg.Budgets.TotalFraction == 0 {
		cfg.Budgets.TotalFraction = 0.3
	}

	if cfg.Metrics.File == "" {
		cfg.Metrics.File = "compaction_metrics.jsonl"
	}

	if cfg.Observability.ServiceName == "" {
		cfg.Observability.ServiceName = "compaction"
	}
	if cfg.Observability.SampleRate == 0 {
		cfg.Observability.SampleRate = 1.0
	}
}
