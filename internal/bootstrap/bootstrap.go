package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/core/usecase"
	"github.com/kirillkom/docqa/internal/infrastructure/awsclient"
	"github.com/kirillkom/docqa/internal/infrastructure/extractor/pdftext"
	"github.com/kirillkom/docqa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
)

type App struct {
	Config config.Config

	QA       *usecase.QAService
	Sessions *usecase.SessionRegistry
	Uploader *usecase.UploadUseCase
	Catalog  *usecase.CatalogQueryUseCase

	// Objects serves signed links for the local storage backend; nil otherwise.
	Objects http.Handler

	// Events is set when NATS_URL is configured.
	Events *nats.Queue

	closers []func()
}

// New builds every adapter selected by cfg and wires the use cases.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	app := &App{Config: cfg}
	ok := false
	defer func() {
		if !ok {
			app.Close()
		}
	}()

	var awsCfg aws.Config
	if needsAWS(cfg) {
		loaded, err := awsclient.Load(ctx, awsclient.Options{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.AWSEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		awsCfg = loaded
	}

	stores, err := newStorage(cfg, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("init object storage: %w", err)
	}
	app.Objects = stores.objects

	catalog, closeCatalog, err := newCatalogStore(ctx, cfg, awsCfg)
	if err != nil {
		return nil, fmt.Errorf("init catalog store: %w", err)
	}
	app.closers = append(app.closers, closeCatalog)

	models := newModels(cfg, awsCfg)
	vectors := newVectorBuilder(cfg)

	var citationOpts []usecase.CitationOption
	if cfg.RedisAddr != "" {
		cache, closeCache, err := newLinkCache(cfg)
		if err != nil {
			return nil, fmt.Errorf("init link cache: %w", err)
		}
		app.closers = append(app.closers, closeCache)
		citationOpts = append(citationOpts, usecase.WithLinkCache(cache, cfg.LinkCacheMargin()))
	}

	var events ports.CatalogEvents
	if cfg.NATSURL != "" {
		queue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			ResilienceExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		})
		if err != nil {
			return nil, fmt.Errorf("init catalog events: %w", err)
		}
		app.Events = queue
		app.closers = append(app.closers, queue.Close)
		events = queue
	}

	composer := usecase.NewAnswerComposer(
		models.completer,
		resilience.NewExecutor(resilience.BackoffConfig(cfg.CompletionMaxRetries, cfg.CompletionBackoff())),
	)

	app.Sessions = usecase.NewSessionRegistry(
		usecase.WithIdleTTL(cfg.QASessionIdleTTL()),
		usecase.WithMaxSessions(cfg.QAMaxSessions),
	)
	app.closers = append(app.closers, app.Sessions.CloseAll)
	app.QA = usecase.NewQAService(
		usecase.NewDocumentSource(stores.documents, pdftext.NewExtractor()),
		usecase.NewIndexBuilder(models.embedder, vectors, cfg.EmbedBatchSize),
		usecase.NewRetriever(models.embedder),
		composer,
		usecase.NewCitationResolver(stores.documents, cfg.LinkTTL(), citationOpts...),
		app.Sessions,
		cfg.RAGTopK,
	)
	app.Uploader = usecase.NewUploadUseCase(stores.uploads, catalog, events, cfg.LinkTTL())
	app.Catalog = usecase.NewCatalogQueryUseCase(catalog, stores.uploads)

	slog.Info("bootstrap_complete",
		"storage_backend", cfg.StorageBackend,
		"catalog_backend", cfg.CatalogBackend,
		"llm_provider", cfg.LLMProvider,
		"index_backend", cfg.IndexBackend,
		"embed_model", models.embedder.Model(),
		"link_cache", cfg.RedisAddr != "",
		"catalog_events", cfg.NATSURL != "",
	)

	ok = true
	return app, nil
}

// Close releases open sessions and backend connections in reverse order.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if a.closers[i] != nil {
			a.closers[i]()
		}
	}
	a.closers = nil
}

func needsAWS(cfg config.Config) bool {
	return cfg.StorageBackend == config.StorageS3 ||
		cfg.CatalogBackend == config.CatalogDynamoDB ||
		cfg.LLMProvider == config.ProviderBedrock
}
