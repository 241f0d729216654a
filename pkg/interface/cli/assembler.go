package cli

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/WangYihang/storefront-detector/pkg/application"
	"github.com/WangYihang/storefront-detector/pkg/domain/repository"
	"github.com/WangYihang/storefront-detector/pkg/domain/service"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/cdp"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/domainservice"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/http"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/logger"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/monitor"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/nativemsg"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/replay"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/storage"
	"github.com/prometheus/client_golang/prometheus"
)

// Assembler assembles all components for the application
type Assembler struct {
	config *Config
	logger logger.Logger
}

// Runtime is an assembled coordinator with its substrate
type Runtime struct {
	Coordinator *application.Coordinator
	Source      service.TabSource
	Registry    *prometheus.Registry
	// Exporter is nil unless a metrics address was configured
	Exporter *monitor.Exporter
	// Navigations is the number of replayed navigations in replay mode
	Navigations int

	closers []func() error
}

// Close releases the cache store and output files
func (r *Runtime) Close() error {
	var errs []error
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NewAssembler creates a new assembler
func NewAssembler(config *Config, log logger.Logger) *Assembler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Assembler{config: config, logger: log}
}

// Assemble builds the coordinator and the substrate selected by the mode
func (a *Assembler) Assemble(ctx context.Context) (*Runtime, error) {
	policy := &a.config.Policy
	rt := &Runtime{Registry: monitor.NewRegistry()}
	stats := application.NewStats(rt.Registry)

	cache, err := a.assembleCache(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}

	client := http.NewStatusClient(http.Config{
		BaseURL:         policy.Endpoint.BaseURL,
		Timeout:         policy.Timeout(),
		MaxResponseSize: policy.Endpoint.MaxResponseSize,
		UserAgent:       policy.Endpoint.UserAgent,
		Retry:           policy.RetryPolicy(),
	})

	source, channel, err := a.assembleSubstrate(ctx, rt)
	if err != nil {
		rt.Close()
		return nil, err
	}
	rt.Source = source

	dispatcher := application.NewDispatcher(
		channel,
		storage.NewPendingQueue,
		a.logger.With(logger.String("component", "dispatcher")),
		stats,
	)
	watcher := application.NewNavigationWatcher(
		domainservice.NewExtractor(policy.Navigation.Schemes...),
		source,
		policy.Navigation.Statuses,
		a.logger.With(logger.String("component", "watcher")),
		stats,
	)
	rt.Coordinator = application.NewCoordinator(
		application.Config{},
		cache,
		client,
		dispatcher,
		watcher,
		a.logger.With(logger.String("component", "coordinator")),
		stats,
	)

	if a.config.MetricsAddr != "" {
		rt.Exporter = monitor.NewExporter(a.config.MetricsAddr, rt.Registry)
	}

	return rt, nil
}

// assembleCache opens the configured store and warms the key filter
func (a *Assembler) assembleCache(ctx context.Context, rt *Runtime) (repository.ResultCache, error) {
	policy := &a.config.Policy

	store, err := storage.OpenStore(policy.StoreConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to open %s cache: %w", policy.Cache.Backend, err)
	}
	rt.closers = append(rt.closers, store.Close)

	cacheConfig := storage.CacheConfig{
		TTL:         policy.TTL(),
		CacheErrors: policy.Cache.CacheErrors,
	}
	if policy.Cache.Filter.Enabled {
		cacheConfig.Filter = storage.NewBloomFilter(storage.FilterConfig{
			Size:              policy.Cache.Filter.Size,
			FalsePositiveRate: policy.Cache.Filter.FalsePositive,
		})
	}

	cache := storage.NewResultCache(store, cacheConfig)
	if cacheConfig.Filter != nil {
		n, err := cache.Warm(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to warm cache filter: %w", err)
		}
		a.logger.Info("cache opened",
			logger.String("backend", policy.Cache.Backend),
			logger.Int("entries", n),
		)
	}
	return cache, nil
}

// assembleSubstrate builds the tab source and delivery channel of the mode
func (a *Assembler) assembleSubstrate(ctx context.Context, rt *Runtime) (service.TabSource, service.DeliveryChannel, error) {
	switch a.config.Mode {
	case ModeNative:
		bridge := nativemsg.NewBridge(os.Stdin, os.Stdout, a.logger.With(logger.String("component", "nativemsg")))
		return bridge, bridge, nil

	case ModeCDP:
		source, err := cdp.Connect(ctx, a.config.CDPURL, a.logger.With(logger.String("component", "cdp")))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to attach to browser: %w", err)
		}
		return source, source, nil

	case ModeReplay:
		navigations, err := replay.LoadFile(a.config.InputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load navigations: %w", err)
		}
		writer, err := storage.NewResultWriter(a.config.OutputFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to create result writer: %w", err)
		}
		rt.closers = append(rt.closers, writer.Close, writer.Flush)
		rt.Navigations = len(navigations)
		return replay.NewSource(navigations), replay.NewChannel(writer, nil), nil

	default:
		return nil, nil, fmt.Errorf("unknown mode %q", a.config.Mode)
	}
}
