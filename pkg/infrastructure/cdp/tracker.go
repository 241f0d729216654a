package cdp

import (
	"sync"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/go-rod/rod/lib/proto"
)

// targetTracker remembers the last URL of every page target so that
// title-only changes do not count as navigations
type targetTracker struct {
	mu   sync.Mutex
	urls map[proto.TargetTargetID]string
}

func newTargetTracker() *targetTracker {
	return &targetTracker{urls: make(map[proto.TargetTargetID]string)}
}

// observe returns the navigation event implied by info, if any. The
// second result reports whether the target is seen for the first time.
func (t *targetTracker) observe(info *proto.TargetTargetInfo) (ev entity.TabEvent, isNew bool, ok bool) {
	if info == nil || info.Type != proto.TargetTargetInfoTypePage {
		return entity.TabEvent{}, false, false
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	last, seen := t.urls[info.TargetID]
	if seen && last == info.URL {
		return entity.TabEvent{}, false, false
	}
	t.urls[info.TargetID] = info.URL

	return entity.TabEvent{
		Kind:        entity.EventUpdated,
		Destination: entity.DestinationID(info.TargetID),
		URL:         info.URL,
		Status:      entity.NavigationLoading,
	}, !seen, true
}

// forget drops a destroyed target and reports whether it was a tracked page
func (t *targetTracker) forget(id proto.TargetTargetID) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	_, ok := t.urls[id]
	delete(t.urls, id)
	return ok
}
