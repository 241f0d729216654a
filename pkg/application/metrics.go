package application

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Delivery outcomes
const (
	outcomeDelivered = "delivered"
	outcomeQueued    = "queued"
	outcomeFailed    = "failed"
	outcomeDiscarded = "discarded"
)

// Stats keeps the coordinator counters. Every update goes both to the
// snapshot counters read by observers and to the Prometheus collectors.
type Stats struct {
	eventsReceived    atomic.Int64
	eventsIgnored     atomic.Int64
	flowsStarted      atomic.Int64
	flowsCompleted    atomic.Int64
	cacheHits         atomic.Int64
	cacheMisses       atomic.Int64
	checks            atomic.Int64
	checkErrors       atomic.Int64
	inProgressResults atomic.Int64
	pollAttempts      atomic.Int64
	delivered         atomic.Int64
	queued            atomic.Int64
	deliveryFailures  atomic.Int64
	discarded         atomic.Int64

	timeLock  sync.RWMutex
	startTime time.Time

	events            *prometheus.CounterVec
	ignored           prometheus.Counter
	cacheLookups      *prometheus.CounterVec
	checkResults      *prometheus.CounterVec
	attempts          prometheus.Counter
	checkDuration     prometheus.Histogram
	deliveries        *prometheus.CounterVec
	pendingMessages   prometheus.Gauge
	readyDestinations prometheus.Gauge
}

// NewStats creates the counters and registers the collectors with reg.
// A nil reg leaves the collectors unregistered.
func NewStats(reg prometheus.Registerer) *Stats {
	factory := promauto.With(reg)
	return &Stats{
		startTime: time.Now(),
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "tab_events_total",
			Help:      "Tab events received from the substrate, by kind.",
		}, []string{"kind"}),
		ignored: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "tab_events_ignored_total",
			Help:      "Navigation events that did not resolve to a classifiable domain.",
		}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "cache_lookups_total",
			Help:      "Result cache lookups, by result.",
		}, []string{"result"}),
		checkResults: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "checks_total",
			Help:      "Status checks against the classification service, by final status.",
		}, []string{"status"}),
		attempts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "poll_attempts_total",
			Help:      "HTTP requests issued to the classification service.",
		}),
		checkDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "storefront",
			Name:      "check_duration_seconds",
			Help:      "Wall time of a status check including polling.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
		deliveries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront",
			Name:      "messages_total",
			Help:      "Status messages handled by the dispatcher, by outcome.",
		}, []string{"outcome"}),
		pendingMessages: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "storefront",
			Name:      "pending_messages",
			Help:      "Messages queued for destinations that are not ready yet.",
		}),
		readyDestinations: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "storefront",
			Name:      "ready_destinations",
			Help:      "Destinations whose observer signalled readiness.",
		}),
	}
}

func (s *Stats) eventReceived(kind entity.EventKind) {
	s.eventsReceived.Add(1)
	s.events.WithLabelValues(string(kind)).Inc()
}

func (s *Stats) eventIgnored() {
	s.eventsIgnored.Add(1)
	s.ignored.Inc()
}

func (s *Stats) flowStarted() { s.flowsStarted.Add(1) }
func (s *Stats) flowCompleted() { s.flowsCompleted.Add(1) }

func (s *Stats) cacheLookup(hit bool) {
	if hit {
		s.cacheHits.Add(1)
		s.cacheLookups.WithLabelValues("hit").Inc()
		return
	}
	s.cacheMisses.Add(1)
	s.cacheLookups.WithLabelValues("miss").Inc()
}

func (s *Stats) checkFinished(outcome entity.CheckOutcome, elapsed time.Duration) {
	s.checks.Add(1)
	s.pollAttempts.Add(int64(outcome.Attempts))
	switch outcome.Result.Status {
	case entity.StatusError:
		s.checkErrors.Add(1)
	case entity.StatusInProgress:
		s.inProgressResults.Add(1)
	}
	s.checkResults.WithLabelValues(string(outcome.Result.Status)).Inc()
	s.attempts.Add(float64(outcome.Attempts))
	s.checkDuration.Observe(elapsed.Seconds())
}

func (s *Stats) message(outcome string) {
	switch outcome {
	case outcomeDelivered:
		s.delivered.Add(1)
	case outcomeQueued:
		s.queued.Add(1)
	case outcomeFailed:
		s.deliveryFailures.Add(1)
	case outcomeDiscarded:
		s.discarded.Add(1)
	}
	s.deliveries.WithLabelValues(outcome).Inc()
}

func (s *Stats) setPending(n int64) { s.pendingMessages.Set(float64(n)) }
func (s *Stats) setReady(n int64) { s.readyDestinations.Set(float64(n)) }

// Snapshot returns a copy of the counters
func (s *Stats) Snapshot() entity.Metrics {
	s.timeLock.RLock()
	start := s.startTime
	s.timeLock.RUnlock()

	return entity.Metrics{
		EventsReceived:    s.eventsReceived.Load(),
		EventsIgnored:     s.eventsIgnored.Load(),
		FlowsStarted:      s.flowsStarted.Load(),
		FlowsCompleted:    s.flowsCompleted.Load(),
		CacheHits:         s.cacheHits.Load(),
		CacheMisses:       s.cacheMisses.Load(),
		Checks:            s.checks.Load(),
		CheckErrors:       s.checkErrors.Load(),
		InProgressResults: s.inProgressResults.Load(),
		PollAttempts:      s.pollAttempts.Load(),
		Delivered:         s.delivered.Load(),
		Queued:            s.queued.Load(),
		DeliveryFailures:  s.deliveryFailures.Load(),
		Discarded:         s.discarded.Load(),
		StartTime:         start,
		LastUpdateTime:    time.Now(),
	}
}

func (s *Stats) markStart() {
	s.timeLock.Lock()
	s.startTime = time.Now()
	s.timeLock.Unlock()
}
