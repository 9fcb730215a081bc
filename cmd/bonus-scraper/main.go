package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/config"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/crawler"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/database"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/events"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/fetch"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/logger"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/models"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/pagination"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/parser"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/queue"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/ratelimit"
	"github.com/mariusadrian77/Acties-Dutch-Groceries/internal/storage"
)

const maxTaskRetries = 2

func main() {
	var (
		taxonomies = flag.String("taxonomy", "", "Comma-separated taxonomy ids to crawl (e.g. 6401,1301)")
		searchTerm = flag.String("query", "", "Search term to crawl instead of a taxonomy")
		source     = flag.String("source", "html", "Crawl source: html or api")
		bonusOnly  = flag.Bool("bonus", false, "Only keep products with an active bonus")
		sortKey    = flag.String("sort", "", "Sort order for api crawls: RELEVANCE, PRICELOWHIGH, PRICEHIGHLOW")
		maxPages   = flag.Int("max-pages", 0, "Maximum pages per taxonomy (0 uses CRAWL_MAX_PAGES)")
		output     = flag.String("output", "", "Output: stdout, csv or postgres (defaults to OUTPUT_FORMAT)")
		outputDir  = flag.String("output-dir", "", "Directory for csv output (defaults to OUTPUT_PATH)")
		listCats   = flag.Bool("list-categories", false, "Print the category tree and exit")
		detailID   = flag.String("detail", "", "Print the detail document for one product id and exit")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *output != "" {
		cfg.Output.Format = *output
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	if *sortKey != "" {
		cfg.Crawl.SortKey = *sortKey
	}
	if *maxPages > 0 {
		cfg.Crawl.MaxPages = *maxPages
	}
	if *outputDir != "" {
		cfg.Output.Path = *outputDir
	}

	logger := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Starting bonus scraper")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received")
		cancel()
	}()

	if *listCats || *detailID != "" {
		tokens := fetch.NewAnonymousTokenSource(cfg.API.BaseURL, cfg.API.ClientID, cfg.API.Timeout, logger)
		apiClient := fetch.NewAPIClient(cfg.API.BaseURL, tokens, cfg.API.Timeout, logger)
		if *listCats {
			if err := printCategories(ctx, apiClient); err != nil {
				logger.Error("Failed to list categories", "error", err)
				os.Exit(1)
			}
			return
		}
		if err := printDetail(ctx, apiClient, *detailID); err != nil {
			logger.Error("Failed to fetch product detail", "error", err)
			os.Exit(1)
		}
		return
	}

	taskQueue := queue.NewInMemoryQueue()
	defer taskQueue.Close()

	loadTasks(taskQueue, *taxonomies, *searchTerm, *source, *bonusOnly, cfg.Crawl.TaxonomyID)
	if taskQueue.Size() == 0 {
		fmt.Println("No tasks to process. Use -taxonomy or -query to specify what to crawl.")
		flag.Usage()
		os.Exit(1)
	}

	rateLimiter := ratelimit.NewAdaptiveLimiter(cfg.Crawl.DelayMin, cfg.Crawl.DelayMax)

	siteClient := fetch.NewSiteClient(cfg.Site.BaseURL, cfg.Site.Timeout, logger)
	tokens := fetch.NewAnonymousTokenSource(cfg.API.BaseURL, cfg.API.ClientID, cfg.API.Timeout, logger)
	apiClient := fetch.NewAPIClient(cfg.API.BaseURL, tokens, cfg.API.Timeout, logger)

	var sink storage.Sink
	switch cfg.Output.Format {
	case "csv":
		sink = storage.NewCSVSink(cfg.Output.Path, "ah_bonus", logger)
	case "postgres":
		db, err := database.New(ctx, database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			MaxConns: cfg.Database.MaxConns,
		})
		if err != nil {
			logger.Error("Failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		publisher := events.NewPublisher(db, cfg.Redis.Stream, logger)
		sink = storage.NewPostgresSink(publisher, *source, logger)
	}

	logger.Info("Starting crawl", "tasks", taskQueue.Size(), "source", *source)

	var all []models.ProductRecord
	for {
		select {
		case <-ctx.Done():
			logger.Info("Context cancelled, exiting")
			return
		default:
		}

		if taskQueue.Size() == 0 {
			break
		}

		task, err := taskQueue.Pop(ctx)
		if err != nil {
			logger.Info("Queue drained, finishing")
			break
		}

		logger.Info("Processing task", "taxonomy", task.TaxonomyID, "query", task.Query, "source", task.Source)

		records := runTask(ctx, task, cfg, siteClient, apiClient, rateLimiter, logger)
		if len(records) == 0 {
			rateLimiter.RecordError()
			if task.Retries < maxTaskRetries {
				task.Retries++
				taskQueue.Push(task)
				logger.Info("Retrying task", "taxonomy", task.TaxonomyID, "retry", task.Retries)
			}
			continue
		}

		rateLimiter.RecordSuccess()
		all = append(all, records...)

		if sink == nil {
			printResults(records)
		}
	}

	if sink != nil && len(all) > 0 {
		if err := sink.Write(ctx, all); err != nil {
			logger.Error("Failed to write output", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("Crawl completed", "products", len(all))
}

func runTask(ctx context.Context, task *queue.Task, cfg *config.Config, siteClient *fetch.SiteClient, apiClient *fetch.APIClient, limiter ratelimit.Limiter, logger *slog.Logger) []models.ProductRecord {
	normalizer := parser.NewNormalizer(parser.SlogObserver{Logger: logger})

	if task.Source == "api" {
		catalog := crawler.NewCatalogCrawler(apiClient, normalizer, limiter, logger, cfg.Crawl.MaxPages)
		opts := cfg.Crawl
		opts.TaxonomyID = task.TaxonomyID
		opts.Query = task.Query
		opts.BonusOnly = task.BonusOnly
		return catalog.Crawl(ctx, fetch.SearchURL(cfg.API.BaseURL, opts))
	}

	normalizer.Category = task.TaxonomyID
	orchestrator := crawler.NewOrchestrator(
		siteClient,
		normalizer,
		pagination.NewDiscoverer(pagination.SlogObserver{Logger: logger}),
		limiter,
		logger,
		crawler.Options{MaxPages: cfg.Crawl.MaxPages, BonusOnly: task.BonusOnly},
	)
	return orchestrator.Crawl(ctx, fetch.ListingURL(cfg.Site.BaseURL, task.TaxonomyID, task.BonusOnly))
}

func loadTasks(q queue.Queue, taxonomies, searchTerm, source string, bonusOnly bool, defaultTaxonomy string) {
	var ids []string
	for _, id := range strings.Split(taxonomies, ",") {
		id = strings.TrimSpace(id)
		if id != "" {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 && searchTerm == "" {
		ids = []string{defaultTaxonomy}
	}

	for i, id := range ids {
		q.Push(&queue.Task{
			ID:         fmt.Sprintf("task-%d", i),
			TaxonomyID: id,
			Source:     source,
			BonusOnly:  bonusOnly,
			Priority:   1,
			CreatedAt:  time.Now(),
		})
	}

	if searchTerm != "" {
		q.Push(&queue.Task{
			ID:        fmt.Sprintf("task-%d", len(ids)),
			Query:     searchTerm,
			Source:    source,
			BonusOnly: bonusOnly,
			Priority:  2,
			CreatedAt: time.Now(),
		})
	}
}

func printCategories(ctx context.Context, client *fetch.APIClient) error {
	categories, err := client.Categories(ctx)
	if err != nil {
		return err
	}

	for _, category := range categories {
		id := categoryID(category)
		fmt.Printf("%s\t%v\n", id, category["name"])

		subs, err := client.SubCategories(ctx, id)
		if err != nil {
			continue
		}
		for _, sub := range subs {
			fmt.Printf("  %s\t%v\n", categoryID(sub), sub["name"])
		}
	}
	return nil
}

// categoryID tolerates the id arriving as a JSON number or string.
func categoryID(category map[string]any) string {
	switch v := category["id"].(type) {
	case float64:
		return strconv.FormatInt(int64(v), 10)
	case string:
		return v
	}
	return ""
}

func printDetail(ctx context.Context, client *fetch.APIClient, productID string) error {
	detail, err := client.ProductDetail(ctx, productID)
	if err != nil {
		return err
	}

	pretty, err := json.MarshalIndent(detail, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(pretty))
	return nil
}

func printResults(records []models.ProductRecord) {
	for _, r := range records {
		fmt.Printf("Product: %s\n", r.Title)
		fmt.Printf("ID: %s\n", r.ID)
		fmt.Printf("Price: %s (was %s)\n", r.CurrentPrice.Display, r.OriginalPrice.Display)
		if r.DiscountText != "" {
			fmt.Printf("Bonus: %s\n", r.DiscountText)
		}
		if r.UnitSize != "" {
			fmt.Printf("Unit: %s\n", r.UnitSize)
		}
		fmt.Println("---")
	}
}
