package service

import (
	"context"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
)

// DomainExtractor turns page URLs into classifiable domains
type DomainExtractor interface {
	// Extract returns the canonical domain of a URL, or false when the URL
	// cannot be classified (unparsable, internal browser page, ...)
	Extract(rawURL string) (entity.Domain, bool)
}

// StatusChecker asks the classification service about a domain
type StatusChecker interface {
	// Check never fails outward; failures are folded into an error result
	Check(ctx context.Context, domain entity.Domain) entity.CheckOutcome
}

// DeliveryChannel is the fire-and-forget path to a destination's observer
type DeliveryChannel interface {
	// Deliver sends a message; it fails when the observer is not present
	Deliver(ctx context.Context, dest entity.DestinationID, msg entity.Message) error
}

// TabSource is the browser tab substrate
type TabSource interface {
	// Run emits tab events until the substrate ends or ctx is cancelled.
	// It must not close events.
	Run(ctx context.Context, events chan<- entity.TabEvent) error
	// CurrentURL resolves the URL currently loaded in a destination
	CurrentURL(ctx context.Context, dest entity.DestinationID) (string, error)
}
