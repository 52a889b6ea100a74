package cli

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/kirillkom/docqa/internal/core/domain"
	"github.com/kirillkom/docqa/internal/core/ports"
)

// RecordSubscriber streams persisted catalog records until ctx is done.
type RecordSubscriber interface {
	SubscribeRecords(ctx context.Context, handler func(context.Context, domain.CatalogRecord) error) error
}

type RecordSubscriberFunc func(ctx context.Context, handler func(context.Context, domain.CatalogRecord) error) error

func (f RecordSubscriberFunc) SubscribeRecords(ctx context.Context, handler func(context.Context, domain.CatalogRecord) error) error {
	return f(ctx, handler)
}

// Services are the use cases the commands drive. Events is optional.
type Services struct {
	QA       ports.QASessions
	Uploader ports.CatalogUploader
	Catalog  ports.CatalogReader
	Events   RecordSubscriber
	Close    func()
}

// Loader builds Services lazily so that --help never touches a backend.
type Loader func(ctx context.Context) (*Services, error)

var errNoServices = errors.New("services are not loaded")

type app struct {
	load     Loader
	services *Services
}

func NewRootCommand(load Loader) *cobra.Command {
	a := &app{load: load}

	root := &cobra.Command{
		Use:           "docqa",
		Short:         "Ask questions about PDFs in object storage and manage the upload catalog",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newAskCommand(a))
	root.AddCommand(newUploadCommand(a))
	root.AddCommand(newCatalogCommand(a))
	return root
}

// run loads services once per invocation and releases them when fn returns.
func (a *app) run(fn func(cmd *cobra.Command, args []string, services *Services) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		services, err := a.ensure(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args, services)
	}
}

func (a *app) ensure(ctx context.Context) (*Services, error) {
	if a.services != nil {
		return a.services, nil
	}
	if a.load == nil {
		return nil, errNoServices
	}
	services, err := a.load(ctx)
	if err != nil {
		return nil, err
	}
	if services == nil {
		return nil, errNoServices
	}
	a.services = services
	return services, nil
}

func (a *app) close() {
	if a.services != nil && a.services.Close != nil {
		a.services.Close()
	}
	a.services = nil
}
