package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/docqa/internal/adapters/cli"
	"github.com/kirillkom/docqa/internal/bootstrap"
	"github.com/kirillkom/docqa/internal/config"
	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/infrastructure/queue/nats"
	"github.com/kirillkom/docqa/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(load)
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func load(ctx context.Context) (*cli.Services, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	slog.SetDefault(logging.NewJSONLoggerTo(os.Stderr, "docqa", cfg.LogLevel))
	// One interactive session lives as long as the process.
	cfg.QASessionIdleTTLSeconds = 0

	app, err := bootstrap.New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	services := &cli.Services{
		QA:       app.QA,
		Uploader: app.Uploader,
		Catalog:  app.Catalog,
		Close:    app.Close,
	}
	if app.Events != nil {
		services.Events = natsSubscriber(app.Events)
	}
	return services, nil
}

func natsSubscriber(queue *nats.Queue) cli.RecordSubscriber {
	return cli.RecordSubscriberFunc(func(ctx context.Context, handler func(context.Context, domain.CatalogRecord) error) error {
		return queue.SubscribeRecordPersisted(ctx, func(ctx context.Context, event nats.RecordPersistedEvent) error {
			return handler(ctx, event.Record)
		})
	})
}
