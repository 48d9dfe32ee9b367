package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"bicycle-counts/internal/models"
	"bicycle-counts/internal/query"
	"bicycle-counts/internal/schema"
	"bicycle-counts/pkg/database"
	"bicycle-counts/pkg/logging"
	"bicycle-counts/pkg/metrics"
)

// CountRepository owns all access to the bicycle count table and the
// joined weather view. Mutations run inside a single transaction so the
// row write and the geometry sync commit or roll back together, and every
// operation keyed by record_num enforces the exactly-one-match invariant.
type CountRepository interface {
	Get(ctx context.Context, recordNum int64) (*models.CountWithWeather, error)
	List(ctx context.Context, sqlText string, args []interface{}) ([]*models.CountWithWeather, error)
	Create(ctx context.Context, fields map[string]interface{}) (*models.CountWithWeather, error)
	Update(ctx context.Context, recordNum int64, fields map[string]interface{}) (*models.CountWithWeather, error)
	Delete(ctx context.Context, recordNum int64) error
	Facilities(ctx context.Context) ([]string, error)

	// Weather side, written only by the ingester.
	CreateWeatherBatch(ctx context.Context, observations []*models.WeatherObservation) error

	HealthCheck(ctx context.Context) error
}

// countRepository implements CountRepository over Postgres/PostGIS.
type countRepository struct {
	db       *database.PostgresDB
	registry *schema.Registry
	queries  *query.Builder
	logger   *logging.StructuredLogger
	metrics  *metrics.Collector
}

// NewCountRepository creates a new count repository.
func NewCountRepository(db *database.PostgresDB, registry *schema.Registry, queries *query.Builder, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) CountRepository {
	return &countRepository{
		db:       db,
		registry: registry,
		queries:  queries,
		logger:   logger,
		metrics:  metricsCollector,
	}
}

// geometrySync recomputes the derived point from the row's current
// longitude/latitude pair. Run after every insert and after any update
// that touched either coordinate, inside the same transaction.
const geometrySync = `
	UPDATE bicycle_counts
	SET geometry = ST_SetSRID(ST_MakePoint(longitude, latitude), 4326)
	WHERE record_num = $1
`

// Get retrieves one count with its joined weather observation.
func (r *countRepository) Get(ctx context.Context, recordNum int64) (*models.CountWithWeather, error) {
	sqlText, args := r.queries.Get(recordNum)

	var count models.CountWithWeather
	err := r.db.GetContext(ctx, "get_count", &count, sqlText, args...)

	if err == sql.ErrNoRows {
		return nil, &NotFoundError{
			Resource: "bicycle_count",
			ID:       fmt.Sprintf("%d", recordNum),
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get count: %w", err)
	}

	return &count, nil
}

// List executes a listing or nearest query built by the query builder.
// Zero rows is reported as NotFoundError so callers can distinguish an
// empty result from a query failure.
func (r *countRepository) List(ctx context.Context, sqlText string, args []interface{}) ([]*models.CountWithWeather, error) {
	var counts []*models.CountWithWeather
	err := r.db.SelectContext(ctx, "list_counts", &counts, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list counts: %w", err)
	}

	if len(counts) == 0 {
		return nil, &NotFoundError{Resource: "bicycle_counts", ID: "no matching records"}
	}

	return counts, nil
}

// Create inserts a new count and persists its derived geometry in the
// same transaction. global_id, updated_at, and set_year are assigned
// here; the caller submits only validated client fields.
func (r *countRepository) Create(ctx context.Context, fields map[string]interface{}) (*models.CountWithWeather, error) {
	columns, args, err := r.coerceFields(fields)
	if err != nil {
		return nil, err
	}

	setDate, ok := argFor(columns, args, "set_date").(models.Date)
	if !ok {
		return nil, fmt.Errorf("create requires a set_date")
	}

	columns = append(columns, "set_year", "global_id", "updated_at")
	args = append(args, setDate.Year(), uuid.NewString(), time.Now().UTC())

	placeholders := make([]string, len(columns))
	for i := range columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	insert := fmt.Sprintf(
		"INSERT INTO bicycle_counts (%s) VALUES (%s) RETURNING record_num",
		joinColumns(columns), joinColumns(placeholders),
	)

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var recordNum int64
	if err := tx.QueryRowContext(ctx, insert, args...).Scan(&recordNum); err != nil {
		return nil, fmt.Errorf("failed to insert count: %w", err)
	}

	if _, err := tx.ExecContext(ctx, geometrySync, recordNum); err != nil {
		return nil, fmt.Errorf("failed to sync geometry: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.GeometrySyncsTotal.Inc()
	r.logger.Debug(ctx, "[REPO_CREATE_COUNT] Count created", logging.Fields{
		"record_num": recordNum,
	})

	return r.Get(ctx, recordNum)
}

// Update applies a partial update to exactly one count. Server-managed
// fields are dropped if submitted, updated_at is always refreshed, and
// geometry is recomputed from the post-update row whenever latitude or
// longitude was among the submitted fields. set_year follows set_date.
func (r *countRepository) Update(ctx context.Context, recordNum int64, fields map[string]interface{}) (*models.CountWithWeather, error) {
	columns, args, err := r.coerceFields(fields)
	if err != nil {
		return nil, err
	}

	coordsTouched := false
	for _, col := range columns {
		if col == "latitude" || col == "longitude" {
			coordsTouched = true
		}
	}

	// set_year tracks set_date, so a date change carries the derived year
	// with it.
	if setDate, ok := argFor(columns, args, "set_date").(models.Date); ok {
		columns = append(columns, "set_year")
		args = append(args, setDate.Year())
	}

	columns = append(columns, "updated_at")
	args = append(args, time.Now().UTC())

	assignments := make([]string, len(columns))
	for i, col := range columns {
		assignments[i] = fmt.Sprintf("%s = $%d", col, i+1)
	}
	args = append(args, recordNum)
	update := fmt.Sprintf(
		"UPDATE bicycle_counts SET %s WHERE record_num = $%d",
		joinColumns(assignments), len(args),
	)

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.checkMultiplicity(ctx, tx, recordNum); err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx, update, args...); err != nil {
		return nil, fmt.Errorf("failed to update count: %w", err)
	}

	if coordsTouched {
		if _, err := tx.ExecContext(ctx, geometrySync, recordNum); err != nil {
			return nil, fmt.Errorf("failed to sync geometry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	if coordsTouched {
		r.metrics.GeometrySyncsTotal.Inc()
	}
	r.logger.Debug(ctx, "[REPO_UPDATE_COUNT] Count updated", logging.Fields{
		"record_num": recordNum,
		"fields":     len(fields),
	})

	return r.Get(ctx, recordNum)
}

// Delete removes exactly one count. Physical and immediate; no soft
// delete.
func (r *countRepository) Delete(ctx context.Context, recordNum int64) error {
	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.checkMultiplicity(ctx, tx, recordNum); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, "DELETE FROM bicycle_counts WHERE record_num = $1", recordNum); err != nil {
		return fmt.Errorf("failed to delete count: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_DELETE_COUNT] Count deleted", logging.Fields{
		"record_num": recordNum,
	})

	return nil
}

// Facilities returns the distinct facility values present in storage.
func (r *countRepository) Facilities(ctx context.Context) ([]string, error) {
	sqlText := `
		SELECT DISTINCT bike_ped_facility
		FROM bicycle_counts
		WHERE bike_ped_facility IS NOT NULL
		ORDER BY bike_ped_facility
	`

	var facilities []string
	if err := r.db.SelectContext(ctx, "list_facilities", &facilities, sqlText); err != nil {
		return nil, fmt.Errorf("failed to list facilities: %w", err)
	}

	if len(facilities) == 0 {
		return nil, &NotFoundError{Resource: "facilities", ID: "none recorded"}
	}

	return facilities, nil
}

// CreateWeatherBatch upserts daily weather observations in a single
// transaction, keyed by date.
func (r *countRepository) CreateWeatherBatch(ctx context.Context, observations []*models.WeatherObservation) error {
	if len(observations) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.IngestionBatchSize.Observe(float64(len(observations)))
		r.logger.Debug(ctx, "[REPO_WEATHER_BATCH] Batch insert completed", logging.Fields{
			"count":       len(observations),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO weather (date, precipitation, temp_avg, temp_max, temp_min)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (date) DO UPDATE SET
			precipitation = EXCLUDED.precipitation,
			temp_avg = EXCLUDED.temp_avg,
			temp_max = EXCLUDED.temp_max,
			temp_min = EXCLUDED.temp_min
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, obs := range observations {
		_, err := stmt.ExecContext(ctx,
			obs.Date,
			obs.Precipitation,
			obs.TempAvg,
			obs.TempMax,
			obs.TempMin,
		)
		if err != nil {
			return fmt.Errorf("failed to insert observation for %s: %w", obs.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(observations)))

	return nil
}

// HealthCheck performs a repository health check.
func (r *countRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// checkMultiplicity enforces the exactly-one-match invariant inside a
// transaction: zero rows is NotFound, more than one is an integrity
// conflict surfaced as a server error. record_num is intended unique but
// not enforced unique by this layer, so the check runs every time.
func (r *countRepository) checkMultiplicity(ctx context.Context, tx *sqlx.Tx, recordNum int64) error {
	var matches int
	err := tx.GetContext(ctx, &matches, "SELECT COUNT(*) FROM bicycle_counts WHERE record_num = $1", recordNum)
	if err != nil {
		return fmt.Errorf("failed to count matches: %w", err)
	}

	switch {
	case matches == 0:
		return &NotFoundError{
			Resource: "bicycle_count",
			ID:       fmt.Sprintf("%d", recordNum),
		}
	case matches > 1:
		r.metrics.RecordDBError("multiplicity_conflict")
		return &ConflictError{RecordNum: recordNum, Matches: matches}
	default:
		return nil
	}
}

// coerceFields turns a validated field map into aligned column and
// argument slices, in registry declaration order, dropping server-managed
// names if a client submitted them.
func (r *countRepository) coerceFields(fields map[string]interface{}) ([]string, []interface{}, error) {
	var (
		columns []string
		args    []interface{}
	)
	for _, name := range r.registry.FieldNames() {
		value, present := fields[name]
		if !present {
			continue
		}
		typed, err := r.registry.Coerce(name, value)
		if err != nil {
			return nil, nil, err
		}
		columns = append(columns, name)
		args = append(args, typed)
	}
	return columns, args, nil
}

// argFor returns the argument bound to a column, or nil.
func argFor(columns []string, args []interface{}, name string) interface{} {
	for i, col := range columns {
		if col == name {
			return args[i]
		}
	}
	return nil
}

func joinColumns(cols []string) string {
	out := ""
	for i, c := range cols {
		if i > 0 {
			out += ", "
		}
		out += c
	}
	return out
}

// NotFoundError represents a zero-match lookup or an empty result set.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

// ConflictError represents a violation of the exactly-one-match
// invariant: more than one stored row shares a record_num. This is a
// storage integrity fault, not a client mistake.
type ConflictError struct {
	RecordNum int64
	Matches   int
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("integrity conflict: %d records share record_num %d", e.Matches, e.RecordNum)
}
