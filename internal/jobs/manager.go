package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/config"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/database"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/events"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/fetch"
)

const (
	// SourceHTML crawls the server-rendered product listing pages
	SourceHTML = "html"
	// SourceAPI crawls the mobile catalog search endpoint
	SourceAPI = "api"
)

var ErrJobNotFound = errors.New("job not found")

// Job represents one crawl request: a taxonomy to walk, which source
// to walk it through, and a page budget.
type Job struct {
	ID            string     `json:"id"`
	TaxonomyID    string     `json:"taxonomy_id"`
	Query         string     `json:"query,omitempty"`
	Source        string     `json:"source"`
	BonusOnly     bool       `json:"bonus_only"`
	MaxPages      int        `json:"max_pages"`
	Status        string     `json:"status"`
	ProductsFound int        `json:"products_found"`
	CreatedAt     time.Time  `json:"created_at"`
	StartedAt     *time.Time `json:"started_at,omitempty"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	Error         string     `json:"error,omitempty"`
}

// Stats aggregates job and product counts for the health surface.
type Stats struct {
	TotalJobs          int     `json:"total_jobs"`
	PendingJobs        int     `json:"pending_jobs"`
	RunningJobs        int     `json:"running_jobs"`
	CompletedJobs      int     `json:"completed_jobs"`
	FailedJobs         int     `json:"failed_jobs"`
	TotalProducts      int     `json:"total_products"`
	DiscountedProducts int     `json:"discounted_products"`
	SuccessRate        float64 `json:"success_rate"`
}

type Manager struct {
	db        *database.DB
	site      *fetch.SiteClient
	api       *fetch.APIClient
	publisher *events.Publisher
	cfg       config.CrawlConfig
	siteBase  string
	apiBase   string
	logger    *slog.Logger
}

func NewManager(db *database.DB, site *fetch.SiteClient, api *fetch.APIClient, publisher *events.Publisher, cfg *config.Config, logger *slog.Logger) *Manager {
	return &Manager{
		db:        db,
		site:      site,
		api:       api,
		publisher: publisher,
		cfg:       cfg.Crawl,
		siteBase:  cfg.Site.BaseURL,
		apiBase:   cfg.API.BaseURL,
		logger:    logger.With("component", "job_manager"),
	}
}

// CreateJob queues a new crawl job.
func (m *Manager) CreateJob(ctx context.Context, taxonomyID, query, source string, bonusOnly bool, maxPages int) (*Job, error) {
	if source != SourceHTML && source != SourceAPI {
		return nil, fmt.Errorf("unknown source %q", source)
	}
	if maxPages <= 0 {
		maxPages = m.cfg.MaxPages
	}
	if taxonomyID == "" && query == "" {
		taxonomyID = m.cfg.TaxonomyID
	}

	job := &Job{
		ID:         uuid.New().String(),
		TaxonomyID: taxonomyID,
		Query:      query,
		Source:     source,
		BonusOnly:  bonusOnly,
		MaxPages:   maxPages,
		Status:     "pending",
		CreatedAt:  time.Now(),
	}

	insert := `
		INSERT INTO crawl_jobs
			(id, taxonomy_id, query, source, bonus_only, max_pages, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := m.db.Exec(ctx, insert,
		job.ID, job.TaxonomyID, job.Query, job.Source, job.BonusOnly,
		job.MaxPages, job.Status, job.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	m.logger.Info("job created",
		"id", job.ID, "taxonomy", taxonomyID, "source", source, "bonus_only", bonusOnly)
	return job, nil
}

// GetJob retrieves a job by id.
func (m *Manager) GetJob(ctx context.Context, jobID string) (*Job, error) {
	query := `
		SELECT id, taxonomy_id, query, source, bonus_only, max_pages, status,
		       products_found, created_at, started_at, completed_at, COALESCE(error, '')
		FROM crawl_jobs
		WHERE id = $1`

	job := &Job{}
	err := m.db.QueryRow(ctx, query, jobID).Scan(
		&job.ID, &job.TaxonomyID, &job.Query, &job.Source, &job.BonusOnly,
		&job.MaxPages, &job.Status, &job.ProductsFound,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.Error,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return job, nil
}

// ListJobs returns recent jobs, newest first.
func (m *Manager) ListJobs(ctx context.Context) ([]*Job, error) {
	query := `
		SELECT id, taxonomy_id, query, source, bonus_only, max_pages, status,
		       products_found, created_at, started_at, completed_at
		FROM crawl_jobs
		ORDER BY created_at DESC
		LIMIT 100`

	rows, err := m.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job := &Job{}
		err := rows.Scan(
			&job.ID, &job.TaxonomyID, &job.Query, &job.Source, &job.BonusOnly,
			&job.MaxPages, &job.Status, &job.ProductsFound,
			&job.CreatedAt, &job.StartedAt, &job.CompletedAt,
		)
		if err != nil {
			continue
		}
		jobs = append(jobs, job)
	}

	return jobs, rows.Err()
}

// GetStats aggregates crawl and product counters.
func (m *Manager) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	query := `
		SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'pending' THEN 1 END),
			COUNT(CASE WHEN status = 'running' THEN 1 END),
			COUNT(CASE WHEN status = 'completed' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END)
		FROM crawl_jobs`

	err := m.db.QueryRow(ctx, query).Scan(
		&stats.TotalJobs, &stats.PendingJobs, &stats.RunningJobs,
		&stats.CompletedJobs, &stats.FailedJobs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	if stats.TotalJobs > 0 {
		stats.SuccessRate = float64(stats.CompletedJobs) / float64(stats.TotalJobs) * 100
	}

	if stats.TotalProducts, err = m.db.CountProducts(ctx); err != nil {
		return nil, err
	}
	if stats.DiscountedProducts, err = m.db.CountDiscountedProducts(ctx); err != nil {
		return nil, err
	}

	return stats, nil
}

func (m *Manager) updateJobStatus(ctx context.Context, jobID, status string, cause error) error {
	var query string
	var args []interface{}

	switch {
	case status == "running":
		query = `UPDATE crawl_jobs SET status = $1, started_at = $2 WHERE id = $3`
		args = []interface{}{status, time.Now(), jobID}
	case status == "completed":
		query = `UPDATE crawl_jobs SET status = $1, completed_at = $2 WHERE id = $3`
		args = []interface{}{status, time.Now(), jobID}
	case status == "failed" && cause != nil:
		query = `UPDATE crawl_jobs SET status = $1, completed_at = $2, error = $3 WHERE id = $4`
		args = []interface{}{status, time.Now(), cause.Error(), jobID}
	default:
		query = `UPDATE crawl_jobs SET status = $1 WHERE id = $2`
		args = []interface{}{status, jobID}
	}

	_, err := m.db.Exec(ctx, query, args...)
	return err
}

func (m *Manager) updateJobProgress(ctx context.Context, jobID string, productsFound int) error {
	query := `UPDATE crawl_jobs SET products_found = $1 WHERE id = $2`
	_, err := m.db.Exec(ctx, query, productsFound, jobID)
	return err
}
