package narrative

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/synaptica-ai/cardio-extract/pkg/common/logger"
	"github.com/synaptica-ai/cardio-extract/pkg/common/models"
	"github.com/synaptica-ai/cardio-extract/pkg/extraction"
	"github.com/synaptica-ai/cardio-extract/pkg/observability/metrics"
)

const serviceName = "extraction-service"

// Extractor is satisfied by *extraction.Engine.
type Extractor interface {
	Extract(ctx context.Context, text string) extraction.Report
}

type Store interface {
	Create(ctx context.Context, rec *Record) error
	Get(ctx context.Context, id string) (*Record, error)
}

type Cache interface {
	Get(ctx context.Context, text string) (*CachedResult, bool)
	Set(ctx context.Context, text string, result CachedResult)
}

type Publisher interface {
	PublishEvent(ctx context.Context, eventType, source, key string, data map[string]interface{}) error
}

type Option func(*Service)

func WithStore(store Store) Option {
	return func(s *Service) { s.store = store }
}

func WithCache(cache Cache) Option {
	return func(s *Service) { s.cache = cache }
}

func WithPublisher(publisher Publisher) Option {
	return func(s *Service) { s.publisher = publisher }
}

// Service validates requests, runs the engine and records the outcome.
// Store, cache and publisher are optional and their failures never fail
// an extraction.
type Service struct {
	engine    Extractor
	validator *Validator
	store     Store
	cache     Cache
	publisher Publisher
}

func NewService(engine Extractor, validator *Validator, opts ...Option) *Service {
	s := &Service{engine: engine, validator: validator}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Process(ctx context.Context, req models.ExtractRequest) (*models.ExtractResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		metrics.ObserveExtractionFailure()
		return nil, err
	}

	start := time.Now()
	resp := &models.ExtractResponse{
		ID:         uuid.New().String(),
		DocumentID: req.DocumentID,
		Timestamp:  time.Now().UTC(),
	}

	if cached, ok := s.lookup(ctx, req.Text); ok {
		resp.Fields = cached.Fields
		resp.Strategies = cached.Strategies
		resp.Cached = true
	} else {
		report := s.engine.Extract(ctx, req.Text)
		resp.Fields = report.Fused
		resp.Strategies = report.Counts()
		s.remember(ctx, req.Text, report)
	}
	if resp.Fields == nil {
		resp.Fields = models.FusedResult{}
	}
	latency := time.Since(start)

	metrics.ObserveExtraction(resp.Cached, len(resp.Fields))
	log := logger.WithFields(map[string]interface{}{
		"extraction_id": resp.ID,
		"document_id":   req.DocumentID,
		"source":        req.Source,
		"fields":        len(resp.Fields),
		"cached":        resp.Cached,
		"latency_ms":    latency.Milliseconds(),
	})
	log.Info("narrative extracted")

	s.persist(ctx, req, resp, latency)
	s.publish(ctx, req, resp)
	return resp, nil
}

func (s *Service) lookup(ctx context.Context, text string) (*CachedResult, bool) {
	if s.cache == nil {
		return nil, false
	}
	return s.cache.Get(ctx, text)
}

// remember caches a result only when every configured strategy answered and
// the request was not cancelled; a degraded result is never replayed.
func (s *Service) remember(ctx context.Context, text string, report extraction.Report) {
	if s.cache == nil {
		return
	}
	if !report.Complete() || ctx.Err() != nil {
		logger.Log.WithFields(map[string]interface{}{
			"degraded":  report.Degraded,
			"cancelled": ctx.Err() != nil,
		}).Debug("skipping cache for incomplete extraction")
		return
	}
	s.cache.Set(ctx, text, CachedResult{Fields: report.Fused, Strategies: report.Counts()})
}

func (s *Service) persist(ctx context.Context, req models.ExtractRequest, resp *models.ExtractResponse, latency time.Duration) {
	if s.store == nil {
		return
	}
	rec, err := newRecord(req, resp, latency)
	if err == nil {
		err = s.store.Create(ctx, rec)
	}
	if err != nil {
		logger.Log.WithError(err).WithField("extraction_id", resp.ID).Error("failed to persist extraction record")
	}
}

func (s *Service) publish(ctx context.Context, req models.ExtractRequest, resp *models.ExtractResponse) {
	if s.publisher == nil {
		return
	}
	fields, err := toJSONMap(resp.Fields)
	if err != nil {
		logger.Log.WithError(err).Error("failed to encode extraction event")
		return
	}
	payload := map[string]interface{}{
		"extraction_id": resp.ID,
		"document_id":   req.DocumentID,
		"source":        req.Source,
		"fields":        map[string]interface{}(fields),
		"strategies":    resp.Strategies,
		"cached":        resp.Cached,
		"extracted_at":  resp.Timestamp,
	}
	key := req.DocumentID
	if key == "" {
		key = resp.ID
	}
	if err := s.publisher.PublishEvent(ctx, models.EventExtractionCompleted, serviceName, key, payload); err != nil {
		logger.Log.WithError(err).WithField("extraction_id", resp.ID).Error("failed to publish extraction event")
	}
}

func newRecord(req models.ExtractRequest, resp *models.ExtractResponse, latency time.Duration) (*Record, error) {
	fields, err := toJSONMap(resp.Fields)
	if err != nil {
		return nil, err
	}
	strategies, err := toJSONMap(resp.Strategies)
	if err != nil {
		return nil, err
	}
	rec := &Record{
		ID:         resp.ID,
		DocumentID: req.DocumentID,
		Source:     req.Source,
		TextHash:   TextHash(req.Text),
		TextLength: len([]rune(req.Text)),
		Fields:     fields,
		Strategies: strategies,
		Cached:     resp.Cached,
		LatencyMS:  latency.Milliseconds(),
		CreatedAt:  resp.Timestamp,
	}
	if len(req.Metadata) > 0 {
		meta, err := toJSONMap(req.Metadata)
		if err != nil {
			return nil, err
		}
		rec.Metadata = meta
	}
	return rec, nil
}

func (s *Service) Status(ctx context.Context, id string) (*Record, error) {
	if s.store == nil {
		return nil, ErrNotFound
	}
	return s.store.Get(ctx, id)
}

// HandleEvent processes document.text events from the bus. Invalid payloads
// are dropped so they are committed rather than redelivered.
func (s *Service) HandleEvent(ctx context.Context, event models.Event) error {
	if event.Type != models.EventDocumentText {
		logger.Log.WithFields(map[string]interface{}{
			"event_id":   event.ID,
			"event_type": event.Type,
		}).Debug("ignoring event")
		return nil
	}

	req, err := requestFromEvent(event)
	if err == nil {
		_, err = s.Process(ctx, req)
	}
	if err != nil {
		if IsValidationError(err) {
			logger.Log.WithError(err).WithField("event_id", event.ID).Warn("dropping invalid document event")
			return nil
		}
		return fmt.Errorf("processing event %s: %w", event.ID, err)
	}
	return nil
}
