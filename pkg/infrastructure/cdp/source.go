// Package cdp drives the coordinator from a running Chromium over the
// DevTools protocol.
package cdp

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/service"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/logger"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// ReadyBinding is the page-side function an observer calls once it is initialized
const ReadyBinding = "__storefrontReady"

// StatusEvent is the DOM event carrying a status message into the page
const StatusEvent = "storefront:status"

const deliverJS = `(m) => { window.dispatchEvent(new CustomEvent("` + StatusEvent + `", { detail: m })); return true; }`

// ErrUnknownTarget is returned when delivering to a page that is not attached
var ErrUnknownTarget = errors.New("unknown page target")

// Source is the tab source and delivery channel backed by the DevTools protocol
type Source struct {
	browser *rod.Browser
	logger  logger.Logger
	tracker *targetTracker

	mu    sync.Mutex
	pages map[proto.TargetTargetID]*rod.Page
}

var (
	_ service.TabSource       = (*Source)(nil)
	_ service.DeliveryChannel = (*Source)(nil)
)

// Connect attaches to the browser listening on controlURL, a DevTools
// websocket URL
func Connect(ctx context.Context, controlURL string, log logger.Logger) (*Source, error) {
	if log == nil {
		log = logger.NewNop()
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to %s: %w", controlURL, err)
	}

	return &Source{
		browser: b,
		logger:  log,
		tracker: newTargetTracker(),
		pages:   make(map[proto.TargetTargetID]*rod.Page),
	}, nil
}

// Run turns target lifecycle events into tab events until ctx is cancelled
func (s *Source) Run(ctx context.Context, events chan<- entity.TabEvent) error {
	browser := s.browser.Context(ctx)

	emit := func(ev entity.TabEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	wait := browser.EachEvent(
		func(e *proto.TargetTargetCreated) {
			s.onTarget(ctx, e.TargetInfo, emit)
		},
		func(e *proto.TargetTargetInfoChanged) {
			s.onTarget(ctx, e.TargetInfo, emit)
		},
		func(e *proto.TargetTargetDestroyed) {
			if !s.tracker.forget(e.TargetID) {
				return
			}
			s.mu.Lock()
			delete(s.pages, e.TargetID)
			s.mu.Unlock()
			emit(entity.TabEvent{Kind: entity.EventRemoved, Destination: entity.DestinationID(e.TargetID)})
		},
	)

	if err := (proto.TargetSetDiscoverTargets{Discover: true}).Call(browser); err != nil {
		return fmt.Errorf("Target.setDiscoverTargets: %w", err)
	}

	wait()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (s *Source) onTarget(ctx context.Context, info *proto.TargetTargetInfo, emit func(entity.TabEvent)) {
	ev, isNew, ok := s.tracker.observe(info)
	if !ok {
		return
	}
	if isNew {
		go s.attach(ctx, info.TargetID, emit)
	}
	emit(ev)
}

// attach installs the readiness binding in a page target
func (s *Source) attach(ctx context.Context, id proto.TargetTargetID, emit func(entity.TabEvent)) {
	page, err := s.browser.PageFromTarget(id)
	if err != nil {
		s.logger.Warn("attach to page failed", logger.String("target", string(id)), logger.Error(err))
		return
	}

	if err := (proto.RuntimeAddBinding{Name: ReadyBinding}).Call(page); err != nil {
		s.logger.Warn("add readiness binding failed", logger.String("target", string(id)), logger.Error(err))
		return
	}

	s.mu.Lock()
	s.pages[id] = page
	s.mu.Unlock()

	page.Context(ctx).EachEvent(func(e *proto.RuntimeBindingCalled) {
		if e.Name != ReadyBinding {
			return
		}
		emit(entity.TabEvent{Kind: entity.EventReady, Destination: entity.DestinationID(id)})
	})()
}

// Deliver dispatches msg as a DOM event in the page of id
func (s *Source) Deliver(ctx context.Context, id entity.DestinationID, msg entity.Message) error {
	s.mu.Lock()
	page, ok := s.pages[proto.TargetTargetID(id)]
	s.mu.Unlock()
	if !ok {
		return &entity.DeliveryError{Destination: id, Err: ErrUnknownTarget}
	}

	if _, err := page.Context(ctx).Eval(deliverJS, msg); err != nil {
		return &entity.DeliveryError{Destination: id, Err: err}
	}
	return nil
}

// CurrentURL returns the URL the target of id currently shows
func (s *Source) CurrentURL(ctx context.Context, id entity.DestinationID) (string, error) {
	res, err := proto.TargetGetTargetInfo{TargetID: proto.TargetTargetID(id)}.Call(s.browser.Context(ctx))
	if err != nil {
		return "", fmt.Errorf("Target.getTargetInfo %s: %w", id, err)
	}
	return res.TargetInfo.URL, nil
}
