package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"

	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/core/ports"
	"github.com/kirillkom/docqa/internal/infrastructure/cache/redis"
	"github.com/kirillkom/docqa/internal/infrastructure/llm/bedrock"
	"github.com/kirillkom/docqa/internal/infrastructure/llm/ollama"
	"github.com/kirillkom/docqa/internal/infrastructure/repository/dynamodb"
	"github.com/kirillkom/docqa/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/docqa/internal/infrastructure/resilience"
	"github.com/kirillkom/docqa/internal/infrastructure/storage/localfs"
	s3storage "github.com/kirillkom/docqa/internal/infrastructure/storage/s3"
	"github.com/kirillkom/docqa/internal/infrastructure/vector/memory"
	"github.com/kirillkom/docqa/internal/infrastructure/vector/qdrant"
)

type storageSet struct {
	documents ports.ObjectStorage
	uploads   ports.ObjectStorage
	objects   http.Handler
}

func newStorage(cfg config.Config, awsCfg aws.Config) (storageSet, error) {
	switch cfg.StorageBackend {
	case config.StorageLocal:
		signer, err := localfs.NewSigner(cfg.SigningKey, cfg.PublicBaseURL, "")
		if err != nil {
			return storageSet{}, err
		}
		store, err := localfs.New(cfg.StoragePath, signer)
		if err != nil {
			return storageSet{}, err
		}
		return storageSet{documents: store, uploads: store, objects: store.Handler()}, nil
	case config.StorageS3:
		documents, err := s3storage.NewFromConfig(awsCfg, cfg.DocumentsBucket, cfg.DocumentsPrefix, cfg.S3UsePathStyle)
		if err != nil {
			return storageSet{}, err
		}
		uploads, err := s3storage.NewFromConfig(awsCfg, cfg.UploadsBucketOrDefault(), "", cfg.S3UsePathStyle)
		if err != nil {
			return storageSet{}, err
		}
		return storageSet{documents: documents, uploads: uploads}, nil
	default:
		return storageSet{}, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

func newCatalogStore(ctx context.Context, cfg config.Config, awsCfg aws.Config) (ports.CatalogStore, func(), error) {
	switch cfg.CatalogBackend {
	case config.CatalogPostgres:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		repo := postgres.NewCatalogRepository(db)
		if err := repo.EnsureSchema(ctx); err != nil {
			_ = db.Close()
			return nil, nil, fmt.Errorf("ensure schema: %w", err)
		}
		return repo, func() { _ = db.Close() }, nil
	case config.CatalogDynamoDB:
		return dynamodb.NewFromConfig(awsCfg, cfg.DynamoDBTable), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown catalog backend %q", cfg.CatalogBackend)
	}
}

type modelSet struct {
	embedder  ports.Embedder
	completer ports.CompletionModel
}

func newModels(cfg config.Config, awsCfg aws.Config) modelSet {
	if cfg.LLMProvider == config.ProviderOllama {
		client := ollama.New(cfg.OllamaURL, cfg.OllamaGenModel, cfg.OllamaEmbedModel, ollama.Options{
			Timeout:       time.Duration(cfg.OllamaTimeoutSec) * time.Second,
			EmbedExecutor: resilience.NewExecutor(resilience.DefaultConfig()),
		})
		return modelSet{
			embedder:  ollama.NewEmbedder(client),
			completer: ollama.NewCompleter(client),
		}
	}

	client := bedrock.NewClientFromConfig(awsCfg)
	embedRetries := resilience.NewExecutor(resilience.BackoffConfig(4, 500*time.Millisecond))
	return modelSet{
		embedder: bedrock.NewEmbedder(client, cfg.BedrockEmbedModel, bedrock.WithEmbedExecutor(embedRetries)),
		completer: bedrock.NewCompleter(client, cfg.BedrockTextModel, bedrock.TextConfig{
			MaxTokenCount: cfg.BedrockMaxTokens,
			Temperature:   cfg.BedrockTemperature,
			TopP:          bedrock.DefaultTextConfig().TopP,
		}),
	}
}

func newVectorBuilder(cfg config.Config) ports.VectorIndexBuilder {
	if cfg.IndexBackend == config.IndexQdrant {
		return qdrant.NewBuilder(qdrant.New(cfg.QdrantURL), cfg.QdrantCollection)
	}
	return memory.NewBuilder()
}

func newLinkCache(cfg config.Config) (ports.LinkCache, func(), error) {
	cache, client, err := redis.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return cache, func() {
		if err := client.Close(); err != nil {
			slog.Warn("redis_close_failed", "error", err)
		}
	}, nil
}
