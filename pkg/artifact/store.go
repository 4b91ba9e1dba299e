package artifact

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/easyops/compaction-go/pkg/core/errors"
	"github.com/easyops/compaction-go/pkg/otel"
)

const (
	// artifactsSubdir 制品文件子目录
	artifactsSubdir = "artifacts"
	// ledgerFilename 元数据账本文件名
	ledgerFilename = "artifact_metadata.jsonl"
)

// Store 制品存储
//
// 制品以文件形式存储，元数据追加写入 JSONL 账本。每个制品拥有
// 唯一 ID、内容哈希和关联的元数据。账本在创建 Store 时重放，
// 损坏的行会被跳过并记录警告。
type Store struct {
	dir           string
	artifactsDir  string
	ledgerPath    string
	redactSecrets bool
	logger        otel.Logger

	mu       sync.RWMutex
	metadata map[string]*Meta
	order    []string
}

// StoreOption Store 配置选项
type StoreOption func(*Store)

// WithRedaction 设置是否对文本制品做密钥脱敏
func WithRedaction(enabled bool) StoreOption {
	return func(s *Store) {
		s.redactSecrets = enabled
	}
}

// WithLogger 设置日志器
func WithLogger(logger otel.Logger) StoreOption {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore 创建制品存储
//
// dir 为空时使用临时目录。目录和账本不存在时自动创建，
// 已存在的账本会被重放以恢复元数据。
func NewStore(dir string, opts ...StoreOption) (*Store, error) {
	if dir == "" {
		tmp, err := os.MkdirTemp("", "compaction_")
		if err != nil {
			return nil, fmt.Errorf("failed to create workspace dir: %w", err)
		}
		dir = tmp
	}

	s := &Store{
		dir:           dir,
		artifactsDir:  filepath.Join(dir, artifactsSubdir),
		ledgerPath:    filepath.Join(dir, ledgerFilename),
		redactSecrets: true,
		logger:        otel.GetLogger(),
		metadata:      make(map[string]*Meta),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(s.artifactsDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create artifacts dir: %w", err)
	}

	if err := s.replayLedger(); err != nil {
		return nil, err
	}

	return s, nil
}

// Dir 返回工作区目录
func (s *Store) Dir() string {
	return s.dir
}

// replayLedger 重放账本恢复元数据，跳过损坏的行
func (s *Store) replayLedger() error {
	f, err := os.Open(s.ledgerPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open metadata ledger: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var meta Meta
		if err := json.Unmarshal(line, &meta); err != nil || meta.ArtifactID == "" {
			s.logger.Warn("failed to parse metadata line, skipping", "error", err)
			continue
		}
		if _, ok := s.metadata[meta.ArtifactID]; !ok {
			s.order = append(s.order, meta.ArtifactID)
		}
		m := meta
		s.metadata[meta.ArtifactID] = &m
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read metadata ledger: %w", err)
	}
	return nil
}

// appendLedger 将元数据追加写入账本，调用方必须持有 s.mu
func (s *Store) appendLedger(meta *Meta) error {
	f, err := os.OpenFile(s.ledgerPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open metadata ledger: %w", err)
	}
	defer f.Close()

	data, err := json.Marshal(meta)
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append metadata: %w", err)
	}
	return nil
}

// newArtifactID 生成唯一制品 ID
func newArtifactID() string {
	u := uuid.New()
	return "art_" + hex.EncodeToString(u[:])[:12]
}

// WriteRequest 制品写入请求
type WriteRequest struct {
	// ToolName 产生内容的工具名称（必填）
	ToolName string
	// ContentType 内容的 MIME 类型，默认 text/plain
	ContentType string
	// SourceURL 来源 URL
	SourceURL string
	// Title 标题或摘要
	Title string
	// Tags 分类标签
	Tags []string
	// PublishDate 发布日期
	PublishDate *time.Time
}

// WriteText 写入文本制品
//
// 启用脱敏时内容先经过密钥脱敏，内容哈希基于脱敏后的字节计算。
func (s *Store) WriteText(ctx context.Context, content string, req WriteRequest) (*Meta, error) {
	if s.redactSecrets {
		content = RedactSecrets(content)
	}
	return s.writeBytes(ctx, []byte(content), req)
}

// WriteBytes 写入二进制制品
func (s *Store) WriteBytes(ctx context.Context, content []byte, req WriteRequest) (*Meta, error) {
	return s.writeBytes(ctx, content, req)
}

func (s *Store) writeBytes(ctx context.Context, content []byte, req WriteRequest) (*Meta, error) {
	select {
	case <-ctx.Done():
		return nil, errors.ErrContextCanceled
	default:
	}

	if req.ContentType == "" {
		req.ContentType = ContentTypeText
	}

	artifactID := newArtifactID()
	sum := sha256.Sum256(content)

	filename := artifactID + ExtForContentType(req.ContentType)
	storedPath := filepath.Join(s.artifactsDir, filename)
	if err := os.WriteFile(storedPath, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write artifact file: %w", err)
	}

	meta := &Meta{
		ArtifactID:    artifactID,
		CreatedAt:     time.Now().UTC(),
		ToolName:      req.ToolName,
		SourceURL:     req.SourceURL,
		ContentType:   req.ContentType,
		ContentHash:   hex.EncodeToString(sum[:]),
		StoredRawPath: storedPath,
		SizeBytes:     int64(len(content)),
		PublishDate:   req.PublishDate,
		Title:         req.Title,
		Tags:          req.Tags,
	}

	s.mu.Lock()
	if err := s.appendLedger(meta); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	s.metadata[artifactID] = meta
	s.order = append(s.order, artifactID)
	s.mu.Unlock()

	s.logger.Debug("stored artifact",
		"artifact_id", artifactID,
		"tool", req.ToolName,
		"bytes", len(content),
	)
	return meta, nil
}

// Read 按 ID 读取制品内容
func (s *Store) Read(ctx context.Context, artifactID string) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, errors.ErrContextCanceled
	default:
	}

	s.mu.RLock()
	meta, ok := s.metadata[artifactID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", artifactID, errors.ErrArtifactNotFound)
	}

	data, err := os.ReadFile(meta.StoredRawPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("artifact file %s: %w", meta.StoredRawPath, errors.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("failed to read artifact file: %w", err)
	}
	return data, nil
}

// ReadText 按 ID 读取文本制品内容
//
// 内容类型不是文本时返回 ErrNotTextContent。
func (s *Store) ReadText(ctx context.Context, artifactID string) (string, error) {
	s.mu.RLock()
	meta, ok := s.metadata[artifactID]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("artifact %s: %w", artifactID, errors.ErrArtifactNotFound)
	}
	if !IsTextContentType(meta.ContentType) {
		return "", fmt.Errorf("artifact %s has content type %s: %w",
			artifactID, meta.ContentType, errors.ErrNotTextContent)
	}

	data, err := s.Read(ctx, artifactID)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// ReadByPath 按文件路径读取制品内容
//
// 优先查找账本中匹配的制品，未命中时尝试直接读取文件。
func (s *Store) ReadByPath(ctx context.Context, path string) ([]byte, error) {
	s.mu.RLock()
	var found string
	for id, meta := range s.metadata {
		if meta.StoredRawPath == path {
			found = id
			break
		}
	}
	s.mu.RUnlock()

	if found != "" {
		return s.Read(ctx, found)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("path %s: %w", path, errors.ErrArtifactNotFound)
		}
		return nil, fmt.Errorf("failed to read artifact file: %w", err)
	}
	return data, nil
}

// GetMetadata 获取制品元数据
func (s *Store) GetMetadata(artifactID string) (*Meta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, ok := s.metadata[artifactID]
	if !ok {
		return nil, fmt.Errorf("artifact %s: %w", artifactID, errors.ErrArtifactNotFound)
	}
	m := *meta
	return &m, nil
}

// ListFilter 制品列表过滤条件
type ListFilter struct {
	// ToolName 按工具名称过滤
	ToolName string
	// Tags 按标签过滤（任一匹配）
	Tags []string
	// SourceURLContains 按来源 URL 子串过滤
	SourceURLContains string
	// Limit 最大返回条数，默认 100
	Limit int
}

// List 按过滤条件列出制品元数据（按写入顺序）
func (s *Store) List(filter ListFilter) []Meta {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Meta, 0)
	for _, id := range s.order {
		meta := s.metadata[id]
		if filter.ToolName != "" && meta.ToolName != filter.ToolName {
			continue
		}
		if len(filter.Tags) > 0 && !anyTagMatch(meta.Tags, filter.Tags) {
			continue
		}
		if filter.SourceURLContains != "" &&
			(meta.SourceURL == "" || !strings.Contains(meta.SourceURL, filter.SourceURLContains)) {
			continue
		}
		results = append(results, *meta)
		if len(results) >= limit {
			break
		}
	}
	return results
}

// Count 返回已存储的制品总数
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.metadata)
}

// TotalBytes 返回所有制品的总字节数
func (s *Store) TotalBytes() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var total int64
	for _, meta := range s.metadata {
		total += meta.SizeBytes
	}
	return total
}

func anyTagMatch(have, want []string) bool {
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

