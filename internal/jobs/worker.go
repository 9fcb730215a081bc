package jobs

import (
	"context"
	"time"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/crawler"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/fetch"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/pagination"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/parser"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/ratelimit"
)

// StartWorker polls for pending jobs until the context is cancelled.
// Jobs run one at a time; the crawl itself paces requests, so a second
// concurrent crawl would only raise the load on the upstream site.
func (m *Manager) StartWorker(ctx context.Context) {
	m.logger.Info("job worker started")

	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("job worker stopping")
			return
		case <-ticker.C:
			m.processNextJob(ctx)
		}
	}
}

func (m *Manager) processNextJob(ctx context.Context) {
	// SKIP LOCKED lets multiple server instances share the table
	// without double-claiming a job.
	query := `
		SELECT id, taxonomy_id, query, source, bonus_only, max_pages
		FROM crawl_jobs
		WHERE status = 'pending'
		ORDER BY created_at
		LIMIT 1
		FOR UPDATE SKIP LOCKED`

	job := &Job{}
	err := m.db.QueryRow(ctx, query).Scan(
		&job.ID, &job.TaxonomyID, &job.Query, &job.Source, &job.BonusOnly, &job.MaxPages)
	if err != nil {
		// No pending jobs
		return
	}

	m.logger.Info("processing job", "id", job.ID, "taxonomy", job.TaxonomyID, "source", job.Source)

	if err := m.updateJobStatus(ctx, job.ID, "running", nil); err != nil {
		m.logger.Error("failed to update job status", "error", err)
		return
	}

	if err := m.runJob(ctx, job); err != nil {
		m.logger.Error("job failed", "id", job.ID, "error", err)
		m.updateJobStatus(ctx, job.ID, "failed", err)
		return
	}

	if err := m.updateJobStatus(ctx, job.ID, "completed", nil); err != nil {
		m.logger.Error("failed to mark job as completed", "error", err)
	}

	m.logger.Info("job completed", "id", job.ID)
}

func (m *Manager) runJob(ctx context.Context, job *Job) error {
	var records []models.ProductRecord
	switch job.Source {
	case SourceAPI:
		records = m.crawlCatalog(ctx, job)
	default:
		records = m.crawlListing(ctx, job)
	}

	published := 0
	for _, record := range records {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := m.publisher.PublishProductDiscovered(ctx, record, job.Source); err != nil {
			m.logger.Error("failed to publish product", "id", record.ID, "error", err)
			continue
		}
		published++
	}

	if err := m.updateJobProgress(ctx, job.ID, published); err != nil {
		m.logger.Error("failed to update progress", "error", err)
	}

	m.logger.Info("job processing complete",
		"job", job.ID, "found", len(records), "published", published)
	return nil
}

func (m *Manager) crawlListing(ctx context.Context, job *Job) []models.ProductRecord {
	normalizer := parser.NewNormalizer(parser.SlogObserver{Logger: m.logger})
	normalizer.Category = job.TaxonomyID

	orchestrator := crawler.NewOrchestrator(
		m.site,
		normalizer,
		pagination.NewDiscoverer(pagination.SlogObserver{Logger: m.logger}),
		ratelimit.NewPoliteLimiter(m.cfg.DelayMin, m.cfg.DelayMax),
		m.logger,
		crawler.Options{MaxPages: job.MaxPages, BonusOnly: job.BonusOnly},
	)

	startRef := fetch.ListingURL(m.siteBase, job.TaxonomyID, job.BonusOnly)
	return orchestrator.Crawl(ctx, startRef)
}

func (m *Manager) crawlCatalog(ctx context.Context, job *Job) []models.ProductRecord {
	normalizer := parser.NewNormalizer(parser.SlogObserver{Logger: m.logger})

	catalog := crawler.NewCatalogCrawler(
		m.api,
		normalizer,
		ratelimit.NewPoliteLimiter(m.cfg.DelayMin, m.cfg.DelayMax),
		m.logger,
		job.MaxPages,
	)

	opts := m.cfg
	opts.TaxonomyID = job.TaxonomyID
	opts.Query = job.Query
	opts.BonusOnly = job.BonusOnly
	startRef := fetch.SearchURL(m.apiBase, opts)
	return catalog.Crawl(ctx, startRef)
}
