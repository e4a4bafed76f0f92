package container

import (
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"go-medical-imaging/internal/config"
	"go-medical-imaging/internal/factory"
	"go-medical-imaging/internal/logger"
	"go-medical-imaging/internal/observer"
	"go-medical-imaging/internal/payload"
	"go-medical-imaging/internal/service"
	"go-medical-imaging/internal/storage"
	"go-medical-imaging/internal/transport"
	"go-medical-imaging/internal/ui"
	"go-medical-imaging/internal/vision"
	"go-medical-imaging/pkg/validation"
)

// Container holds all application dependencies
type Container struct {
	config     *config.Config
	apiHandler http.Handler
	uiHandler  http.Handler
}

// NewContainer creates a new dependency injection container
func NewContainer(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	events := observer.NewEventPublisher()
	events.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events.Subscribe(observer.NewMetricsObserver(registry))

	sources, err := newSourceFactory(cfg)
	if err != nil {
		return nil, err
	}

	builder := payload.NewBuilder(cfg.Model)
	dispatcher := vision.NewClient(cfg.OpenAIBaseURL, cfg.UpstreamTimeout)
	validator := validation.NewURLValidatorWithOptions(nil, cfg.AllowedFetchHosts)

	newService := func(prompts payload.Prompts) service.AnalysisService {
		return service.NewAnalysisService(service.Options{
			Builder:    builder,
			Prompts:    prompts,
			Dispatcher: dispatcher,
			Events:     events,
			Sources:    sources,
			Validator:  validator,
		})
	}
	apiService := newService(cfg.APIPrompts)
	uiService := newService(cfg.UIPrompts)

	apiHandler := transport.NewHandler(apiService, transport.HandlerConfig{
		MaxRequestBodySize: cfg.MaxRequestBodySize,
		RequestTimeout:     cfg.RequestTimeout,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Metrics:            registry,
	})
	uiHandler := ui.NewHandler(uiService, ui.HandlerConfig{
		MaxUploadSize:  cfg.MaxRequestBodySize,
		MaxImagePixels: cfg.MaxImagePixels,
		RequestTimeout: cfg.RequestTimeout,
		TrustedProxies: cfg.TrustedProxies,
		Metrics:        registry,
	})

	return &Container{
		config:     cfg,
		apiHandler: apiHandler,
		uiHandler:  uiHandler,
	}, nil
}

// newSourceFactory wires the HTTP fetcher and, when credentials are set, blob storage
func newSourceFactory(cfg *config.Config) (factory.StorageFactory, error) {
	httpSource := storage.NewHTTPImageFetcher(cfg.ImageFetchTimeout, cfg.MaxImageSize, cfg.AllowedFetchHosts)

	var azureSource storage.ImageSource
	if cfg.AzureEnabled() {
		src, err := storage.NewAzureStorage(cfg.AzureAccount, cfg.AzureKey, cfg.MaxImageSize)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize azure storage: %w", err)
		}
		azureSource = src
	}

	return factory.NewStorageFactory(httpSource, azureSource), nil
}

// APIHandler returns the JSON API handler
func (c *Container) APIHandler() http.Handler {
	return c.apiHandler
}

// UIHandler returns the browser UI handler
func (c *Container) UIHandler() http.Handler {
	return c.uiHandler
}

// Config returns the configuration
func (c *Container) Config() *config.Config {
	return c.config
}
