package services

import (
	"context"

	"bicycle-counts/internal/models"
	"bicycle-counts/internal/query"
	"bicycle-counts/internal/repository"
	"bicycle-counts/pkg/logging"
	"bicycle-counts/pkg/metrics"
)

// CountService orchestrates count record operations between the HTTP
// surface and the repository.
type CountService struct {
	repo    repository.CountRepository
	queries *query.Builder
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCountService creates a new count service.
func NewCountService(repo repository.CountRepository, queries *query.Builder, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CountService {
	return &CountService{
		repo:    repo,
		queries: queries,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Get retrieves one count with joined weather.
func (s *CountService) Get(ctx context.Context, recordNum int64) (*models.CountWithWeather, error) {
	return s.repo.Get(ctx, recordNum)
}

// List retrieves counts matching the listing filters, ordered by set date.
func (s *CountService) List(ctx context.Context, filters query.ListingFilters) ([]*models.CountWithWeather, error) {
	sqlText, args, err := s.queries.Listing(filters)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, sqlText, args)
}

// Nearest retrieves the five counts closest to the given point.
func (s *CountService) Nearest(ctx context.Context, lon, lat string) ([]*models.CountWithWeather, error) {
	sqlText, args, err := s.queries.Nearest(lon, lat)
	if err != nil {
		return nil, err
	}
	return s.repo.List(ctx, sqlText, args)
}

// Create inserts a validated count payload.
func (s *CountService) Create(ctx context.Context, fields map[string]interface{}) (*models.CountWithWeather, error) {
	count, err := s.repo.Create(ctx, fields)
	if err != nil {
		return nil, err
	}
	s.logger.Info(ctx, "[COUNT_CREATED] New count record", logging.Fields{
		"record_num": count.RecordNum,
		"global_id":  count.GlobalID,
	})
	return count, nil
}

// Update applies a validated partial update to one count.
func (s *CountService) Update(ctx context.Context, recordNum int64, fields map[string]interface{}) (*models.CountWithWeather, error) {
	return s.repo.Update(ctx, recordNum, fields)
}

// Delete removes one count.
func (s *CountService) Delete(ctx context.Context, recordNum int64) error {
	return s.repo.Delete(ctx, recordNum)
}

// Facilities returns the distinct facility values present in storage.
func (s *CountService) Facilities(ctx context.Context) ([]string, error) {
	return s.repo.Facilities(ctx)
}

// HealthCheck reports storage health.
func (s *CountService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
