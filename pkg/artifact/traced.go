package artifact

import (
	"context"
	"time"

	"github.com/easyops/compaction-go/pkg/otel"
)

// TracedStore wraps a Store with tracing and metrics support
type TracedStore struct {
	store   *Store
	tracer  otel.Tracer
	metrics otel.Metrics
}

// TracedStoreOption configures the traced store
type TracedStoreOption func(*TracedStore)

// WithTracedStoreTracer sets the tracer
func WithTracedStoreTracer(tracer otel.Tracer) TracedStoreOption {
	return func(s *TracedStore) {
		s.tracer = tracer
	}
}

// WithTracedStoreMetrics sets the metrics
func WithTracedStoreMetrics(metrics otel.Metrics) TracedStoreOption {
	return func(s *TracedStore) {
		s.metrics = metrics
	}
}

// NewTracedStore creates a traced artifact store wrapper
func NewTracedStore(store *Store, opts ...TracedStoreOption) *TracedStore {
	ts := &TracedStore{
		store:   store,
		tracer:  otel.NewNoopTracer(),
		metrics: otel.NewNoopMetrics(),
	}

	for _, opt := range opts {
		opt(ts)
	}

	return ts
}

// Store returns the underlying store
func (s *TracedStore) Store() *Store {
	return s.store
}

// WriteText writes a text artifact with tracing
func (s *TracedStore) WriteText(ctx context.Context, content string, req WriteRequest) (*Meta, error) {
	ctx, span := s.tracer.Start(ctx, "artifact.write",
		otel.WithAttributes(
			otel.ToolName(req.ToolName),
			otel.ArtifactKind(req.ContentType),
		),
	)
	defer span.End()

	start := time.Now()
	meta, err := s.store.WriteText(ctx, content, req)
	duration := time.Since(start)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		s.metrics.Counter(otel.MetricArtifactErrors).Add(ctx, 1,
			otel.NewAttr(otel.AttrToolName, req.ToolName))
		return nil, err
	}

	span.SetAttributes(
		otel.ArtifactID(meta.ArtifactID),
		otel.ArtifactBytes(meta.SizeBytes),
	)
	span.SetStatus(otel.StatusOK, "")

	s.metrics.Counter(otel.MetricArtifactWrites).Add(ctx, 1,
		otel.NewAttr(otel.AttrToolName, req.ToolName))
	s.metrics.Counter(otel.MetricArtifactBytes).Add(ctx, meta.SizeBytes)
	s.metrics.Histogram(otel.MetricArtifactWriteDuration).Record(ctx,
		float64(duration.Milliseconds()))

	return meta, nil
}

// Read reads an artifact by ID with tracing
func (s *TracedStore) Read(ctx context.Context, artifactID string) ([]byte, error) {
	ctx, span := s.tracer.Start(ctx, "artifact.read",
		otel.WithAttributes(otel.ArtifactID(artifactID)),
	)
	defer span.End()

	data, err := s.store.Read(ctx, artifactID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		s.metrics.Counter(otel.MetricArtifactErrors).Add(ctx, 1)
		return nil, err
	}

	span.SetStatus(otel.StatusOK, "")
	s.metrics.Counter(otel.MetricArtifactReads).Add(ctx, 1)
	return data, nil
}

// ReadText reads a text artifact by ID with tracing
func (s *TracedStore) ReadText(ctx context.Context, artifactID string) (string, error) {
	ctx, span := s.tracer.Start(ctx, "artifact.read",
		otel.WithAttributes(otel.ArtifactID(artifactID)),
	)
	defer span.End()

	content, err := s.store.ReadText(ctx, artifactID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otel.StatusError, err.Error())
		s.metrics.Counter(otel.MetricArtifactErrors).Add(ctx, 1)
		return "", err
	}

	span.SetStatus(otel.StatusOK, "")
	s.metrics.Counter(otel.MetricArtifactReads).Add(ctx, 1)
	return content, nil
}
