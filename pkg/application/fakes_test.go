package application

import (
	"context"
	"errors"
	"sync"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
)

type fakeChannel struct {
	mu        sync.Mutex
	delivered []entity.Delivery
	fail      map[entity.DestinationID]bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{fail: make(map[entity.DestinationID]bool)}
}

func (c *fakeChannel) Deliver(_ context.Context, id entity.DestinationID, msg entity.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail[id] {
		return errors.New("receiving end does not exist")
	}
	c.delivered = append(c.delivered, entity.Delivery{Destination: id, Message: msg})
	return nil
}

func (c *fakeChannel) setFail(id entity.DestinationID, fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fail[id] = fail
}

func (c *fakeChannel) deliveries() []entity.Delivery {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]entity.Delivery(nil), c.delivered...)
}

type fakeChecker struct {
	mu       sync.Mutex
	calls    map[entity.Domain]int
	outcomes map[entity.Domain]entity.CheckOutcome
	release  chan struct{}
}

func newFakeChecker() *fakeChecker {
	return &fakeChecker{
		calls:    make(map[entity.Domain]int),
		outcomes: make(map[entity.Domain]entity.CheckOutcome),
	}
}

func (c *fakeChecker) Check(_ context.Context, domain entity.Domain) entity.CheckOutcome {
	c.mu.Lock()
	c.calls[domain]++
	outcome, ok := c.outcomes[domain]
	release := c.release
	c.mu.Unlock()

	if release != nil {
		<-release
	}
	if !ok {
		return entity.CheckOutcome{Result: entity.ClassificationResult{Status: entity.StatusComplete}, Attempts: 1}
	}
	return outcome
}

func (c *fakeChecker) callCount(domain entity.Domain) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[domain]
}

type fakeSource struct {
	events []entity.TabEvent
	urls   map[entity.DestinationID]string
	err    error
}

func (s *fakeSource) Run(ctx context.Context, events chan<- entity.TabEvent) error {
	for _, ev := range s.events {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case events <- ev:
		}
	}
	return s.err
}

func (s *fakeSource) CurrentURL(_ context.Context, id entity.DestinationID) (string, error) {
	u, ok := s.urls[id]
	if !ok {
		return "", errors.New("no such tab")
	}
	return u, nil
}

type recordingObserver struct {
	mu      sync.Mutex
	results map[entity.Domain]entity.ClassificationResult
	updates int
}

func (o *recordingObserver) OnMetricsUpdate(*entity.Metrics) {
	o.mu.Lock()
	o.updates++
	o.mu.Unlock()
}

func (o *recordingObserver) AddResult(domain entity.Domain, result entity.ClassificationResult) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.results == nil {
		o.results = make(map[entity.Domain]entity.ClassificationResult)
	}
	o.results[domain] = result
}
