package application

import (
	"context"
	"sync"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/repository"
	"github.com/WangYihang/storefront-detector/pkg/domain/service"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/logger"
	"golang.org/x/sync/singleflight"
)

// eventBuffer is the capacity of the channel between source and router
const eventBuffer = 64

// Coordinator glues the cache, the status checker and the dispatcher
// together and routes substrate events to them
type Coordinator struct {
	config Config

	cache      repository.ResultCache
	checker    service.StatusChecker
	dispatcher *Dispatcher
	watcher    *NavigationWatcher

	logger logger.Logger
	stats  *Stats

	group            singleflight.Group
	wg               sync.WaitGroup
	metricsObservers []MetricsObserver
}

// Config holds the coordinator configuration
type Config struct {
	// MetricsInterval is the period of observer notifications
	MetricsInterval time.Duration
}

// MetricsObserver observes metrics changes
type MetricsObserver interface {
	OnMetricsUpdate(metrics *entity.Metrics)
	// AddResult is called for every result dispatched to a destination
	AddResult(domain entity.Domain, result entity.ClassificationResult)
}

// NewCoordinator creates a new coordinator
func NewCoordinator(
	config Config,
	cache repository.ResultCache,
	checker service.StatusChecker,
	dispatcher *Dispatcher,
	watcher *NavigationWatcher,
	log logger.Logger,
	stats *Stats,
) *Coordinator {
	if config.MetricsInterval <= 0 {
		config.MetricsInterval = 500 * time.Millisecond
	}
	if log == nil {
		log = logger.NewNop()
	}
	if stats == nil {
		stats = NewStats(nil)
	}
	return &Coordinator{
		config:     config,
		cache:      cache,
		checker:    checker,
		dispatcher: dispatcher,
		watcher:    watcher,
		logger:     log,
		stats:      stats,
	}
}

// RegisterMetricsObserver registers a metrics observer
func (c *Coordinator) RegisterMetricsObserver(observer MetricsObserver) {
	c.metricsObservers = append(c.metricsObservers, observer)
}

// OnDomainChange resolves the classification of domain, from the cache or
// from the service, and sends it to id
func (c *Coordinator) OnDomainChange(ctx context.Context, id entity.DestinationID, domain entity.Domain) {
	c.stats.flowStarted()
	defer c.stats.flowCompleted()

	result := c.resolve(ctx, domain)

	for _, observer := range c.metricsObservers {
		observer.AddResult(domain, result)
	}

	c.logger.Debug("dispatching result",
		logger.String("destination", id.String()),
		logger.String("domain", domain.String()),
		logger.Bool("match", result.IsMatch),
		logger.String("status", string(result.Status)),
	)
	c.dispatcher.Send(ctx, id, entity.NewStatusMessage(result))
}

func (c *Coordinator) resolve(ctx context.Context, domain entity.Domain) entity.ClassificationResult {
	cached, ok, err := c.cache.Get(ctx, domain)
	if err != nil {
		c.logger.Warn("cache read failed",
			logger.String("domain", domain.String()),
			logger.Error(err),
		)
	}
	c.stats.cacheLookup(ok)
	if ok {
		return cached
	}

	// Flows for the same domain share one check
	v, _, _ := c.group.Do(domain.String(), func() (any, error) {
		start := time.Now()
		outcome := c.checker.Check(ctx, domain)
		c.stats.checkFinished(outcome, time.Since(start))

		if outcome.Err != nil {
			c.logger.Warn("status check failed",
				logger.String("domain", domain.String()),
				logger.Int("attempts", outcome.Attempts),
				logger.Error(outcome.Err),
			)
		}
		if err := c.cache.Put(ctx, domain, outcome.Result); err != nil {
			c.logger.Warn("cache write failed",
				logger.String("domain", domain.String()),
				logger.Error(err),
			)
		}
		return outcome.Result, nil
	})
	return v.(entity.ClassificationResult)
}

// Execute runs source and routes its events until it stops or ctx is
// cancelled, then waits for in-flight flows
func (c *Coordinator) Execute(ctx context.Context, source service.TabSource) error {
	c.stats.markStart()

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	go c.updateMetricsPeriodically(metricsCtx)

	events := make(chan entity.TabEvent, eventBuffer)
	runErr := make(chan error, 1)
	go func() {
		runErr <- source.Run(ctx, events)
		close(events)
	}()

	for ev := range events {
		c.route(ctx, ev)
	}

	c.wg.Wait()
	c.notifyMetricsObservers()
	return <-runErr
}

// route handles one event. Navigation flows run on their own goroutine,
// readiness and teardown are applied in arrival order.
func (c *Coordinator) route(ctx context.Context, ev entity.TabEvent) {
	c.stats.eventReceived(ev.Kind)

	switch ev.Kind {
	case entity.EventActivated, entity.EventUpdated:
		if !c.watcher.Accepts(ev) {
			c.stats.eventIgnored()
			return
		}
		c.wg.Add(1)
		go func() {
			defer c.wg.Done()
			c.watcher.Handle(ctx, ev, c.OnDomainChange)
		}()
	case entity.EventReady:
		c.dispatcher.MarkReady(ctx, ev.Destination)
	case entity.EventRemoved:
		c.dispatcher.Teardown(ev.Destination)
	default:
		c.stats.eventIgnored()
		c.logger.Debug("unknown event kind", logger.String("kind", string(ev.Kind)))
	}
}

// Wait blocks until all in-flight flows have finished
func (c *Coordinator) Wait() {
	c.wg.Wait()
}

// GetMetrics returns the current metrics
func (c *Coordinator) GetMetrics() *entity.Metrics {
	metrics := c.stats.Snapshot()
	metrics.ReadyDestinations = c.dispatcher.ReadyCount()
	metrics.PendingMessages = c.dispatcher.PendingCount()
	return &metrics
}

func (c *Coordinator) notifyMetricsObservers() {
	metrics := c.GetMetrics()
	for _, observer := range c.metricsObservers {
		snapshot := *metrics
		observer.OnMetricsUpdate(&snapshot)
	}
}

// updateMetricsPeriodically periodically notifies observers
func (c *Coordinator) updateMetricsPeriodically(ctx context.Context) {
	ticker := time.NewTicker(c.config.MetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.notifyMetricsObservers()
		}
	}
}
