package replay

import (
	"context"
	"fmt"
	"sync"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/repository"
	"github.com/WangYihang/storefront-detector/pkg/domain/service"
	"github.com/jonboulle/clockwork"
)

// Source replays navigations as tab events. Every navigation is followed
// by a readiness signal of its destination.
type Source struct {
	navigations []Navigation

	mu   sync.RWMutex
	urls map[entity.DestinationID]string
}

var _ service.TabSource = (*Source)(nil)

// NewSource creates a replay source
func NewSource(navigations []Navigation) *Source {
	return &Source{
		navigations: navigations,
		urls:        make(map[entity.DestinationID]string),
	}
}

// Len returns the number of navigations
func (s *Source) Len() int {
	return len(s.navigations)
}

// Run emits the recorded events and returns when all were consumed
func (s *Source) Run(ctx context.Context, events chan<- entity.TabEvent) error {
	for _, nav := range s.navigations {
		s.mu.Lock()
		s.urls[nav.Destination] = nav.URL
		s.mu.Unlock()

		batch := []entity.TabEvent{
			{Kind: entity.EventUpdated, Destination: nav.Destination, URL: nav.URL, Status: entity.NavigationLoading},
			{Kind: entity.EventReady, Destination: nav.Destination},
		}
		for _, ev := range batch {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case events <- ev:
			}
		}
	}
	return nil
}

// CurrentURL returns the last URL replayed for id
func (s *Source) CurrentURL(_ context.Context, id entity.DestinationID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.urls[id]
	if !ok {
		return "", fmt.Errorf("destination %s never navigated", id)
	}
	return u, nil
}

// Channel records every delivery through a ResultWriter
type Channel struct {
	writer repository.ResultWriter
	clock  clockwork.Clock
}

var _ service.DeliveryChannel = (*Channel)(nil)

// NewChannel creates a recording delivery channel. A nil clock uses the
// real one.
func NewChannel(writer repository.ResultWriter, clock clockwork.Clock) *Channel {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Channel{writer: writer, clock: clock}
}

// Deliver writes msg as a delivery record
func (c *Channel) Deliver(_ context.Context, id entity.DestinationID, msg entity.Message) error {
	err := c.writer.Write(&entity.Delivery{
		Destination: id,
		Message:     msg,
		DeliveredAt: c.clock.Now(),
	})
	if err != nil {
		return &entity.DeliveryError{Destination: id, Err: err}
	}
	return nil
}
