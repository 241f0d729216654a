package application

import (
	"context"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/service"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/logger"
)

// DomainChangeFunc is invoked when a destination navigated to a domain
type DomainChangeFunc func(ctx context.Context, id entity.DestinationID, domain entity.Domain)

// NavigationWatcher turns activation and navigation events into domain
// changes
type NavigationWatcher struct {
	extractor service.DomainExtractor
	source    service.TabSource
	statuses  map[string]struct{}
	logger    logger.Logger
	stats     *Stats
}

// NewNavigationWatcher creates a watcher. source answers URL lookups for
// events that carry no URL and may be nil. statuses lists the navigation
// statuses of updated events that count as a domain change; empty means
// loading only.
func NewNavigationWatcher(
	extractor service.DomainExtractor,
	source service.TabSource,
	statuses []string,
	log logger.Logger,
	stats *Stats,
) *NavigationWatcher {
	if len(statuses) == 0 {
		statuses = []string{entity.NavigationLoading}
	}
	set := make(map[string]struct{}, len(statuses))
	for _, s := range statuses {
		set[s] = struct{}{}
	}
	if log == nil {
		log = logger.NewNop()
	}
	if stats == nil {
		stats = NewStats(nil)
	}
	return &NavigationWatcher{
		extractor: extractor,
		source:    source,
		statuses:  set,
		logger:    log,
		stats:     stats,
	}
}

// Accepts reports whether ev may start a domain change
func (w *NavigationWatcher) Accepts(ev entity.TabEvent) bool {
	switch ev.Kind {
	case entity.EventActivated:
		return true
	case entity.EventUpdated:
		_, ok := w.statuses[ev.Status]
		return ok
	default:
		return false
	}
}

// Handle resolves the domain of ev and calls onChange at most once.
// Events that are not accepted or whose URL is not applicable are ignored.
func (w *NavigationWatcher) Handle(ctx context.Context, ev entity.TabEvent, onChange DomainChangeFunc) {
	if !w.Accepts(ev) {
		w.stats.eventIgnored()
		return
	}

	rawURL := ev.URL
	if rawURL == "" && w.source != nil {
		u, err := w.source.CurrentURL(ctx, ev.Destination)
		if err != nil {
			w.stats.eventIgnored()
			w.logger.Debug("current url lookup failed",
				logger.String("destination", ev.Destination.String()),
				logger.Error(err),
			)
			return
		}
		rawURL = u
	}

	domain, ok := w.extractor.Extract(rawURL)
	if !ok {
		w.stats.eventIgnored()
		w.logger.Debug("ignoring navigation",
			logger.String("destination", ev.Destination.String()),
			logger.String("url", rawURL),
		)
		return
	}

	onChange(ctx, ev.Destination, domain)
}
