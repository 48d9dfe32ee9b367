package services

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"bicycle-counts/internal/models"
	"bicycle-counts/internal/repository"
	"bicycle-counts/pkg/logging"
	"bicycle-counts/pkg/metrics"
)

// WeatherIngestionService loads daily weather observations into the
// read-side weather table the count listing joins against.
type WeatherIngestionService struct {
	repo    repository.CountRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles        int
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	Duration          time.Duration
	Errors            []string
}

// NewWeatherIngestionService creates a new ingestion service
func NewWeatherIngestionService(repo repository.CountRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *WeatherIngestionService {
	return &WeatherIngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestDirectory ingests all weather CSV files from a directory.
// Expected row format: date,precipitation,temp_avg,temp_max,temp_min with
// YYYY-MM-DD dates; an empty cell means the measure was not observed and
// is stored as NULL.
func (s *WeatherIngestionService) IngestDirectory(ctx context.Context, dataDir string, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting weather ingestion", logging.Fields{
		"data_dir":   dataDir,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{
		Errors: make([]string, 0),
	}

	files, err := filepath.Glob(filepath.Join(dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no weather files found in %s", dataDir)
	}

	result.TotalFiles = len(files)

	for _, filePath := range files {
		total, ok, failed, err := s.ingestFile(ctx, filePath, batchSize)
		if err != nil {
			errMsg := fmt.Sprintf("failed to ingest %s: %v", filePath, err)
			result.Errors = append(result.Errors, errMsg)
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError("file_error")
			continue
		}

		result.TotalRecords += total
		result.SuccessfulRecords += ok
		result.FailedRecords += failed

		s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested", logging.Fields{
			"file_path":          filePath,
			"total_records":      total,
			"successful_records": ok,
			"failed_records":     failed,
			"stage":              "FILE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Weather ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// ingestFile ingests a single weather CSV file in batches.
func (s *WeatherIngestionService) ingestFile(ctx context.Context, filePath string, batchSize int) (total, ok, failed int, err error) {
	file, err := os.Open(filePath)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = 5

	batch := make([]*models.WeatherObservation, 0, batchSize)

	for {
		row, readErr := reader.Read()
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return total, ok, failed, fmt.Errorf("error reading file: %w", readErr)
		}

		// Skip a header line if present.
		if strings.EqualFold(row[0], "date") {
			continue
		}

		total++

		obs, parseErr := parseWeatherRow(row)
		if parseErr != nil {
			failed++
			s.metrics.RecordIngestionError("parse_error")
			continue
		}

		batch = append(batch, obs)
		if len(batch) >= batchSize {
			if err := s.repo.CreateWeatherBatch(ctx, batch); err != nil {
				return total, ok, failed, fmt.Errorf("failed to insert batch: %w", err)
			}
			ok += len(batch)
			batch = batch[:0]
		}
	}

	if len(batch) > 0 {
		if err := s.repo.CreateWeatherBatch(ctx, batch); err != nil {
			return total, ok, failed, fmt.Errorf("failed to insert final batch: %w", err)
		}
		ok += len(batch)
	}

	return total, ok, failed, nil
}

// parseWeatherRow parses one CSV row into an observation.
func parseWeatherRow(row []string) (*models.WeatherObservation, error) {
	date, err := models.ParseDate(strings.TrimSpace(row[0]))
	if err != nil {
		return nil, err
	}

	obs := &models.WeatherObservation{Date: date}
	measures := []**float64{&obs.Precipitation, &obs.TempAvg, &obs.TempMax, &obs.TempMin}
	names := []string{"precipitation", "temp_avg", "temp_max", "temp_min"}

	for i, dest := range measures {
		cell := strings.TrimSpace(row[i+1])
		if cell == "" {
			continue
		}
		v, err := strconv.ParseFloat(cell, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", names[i], cell, err)
		}
		*dest = &v
	}

	return obs, nil
}
