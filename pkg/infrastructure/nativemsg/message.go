package nativemsg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
)

// Inbound message types sent by the extension
const (
	TypeTabActivated = "TAB_ACTIVATED"
	TypeTabUpdated   = "TAB_UPDATED"
	TypeTabRemoved   = "TAB_REMOVED"
	TypeTabURL       = "TAB_URL"
	TypeReady        = string(entity.MessageTypeReady)
)

// TypeGetTab asks the extension for the URL of a tab
const TypeGetTab = "GET_TAB"

// TabID is a browser tab identifier. The extension sends numbers; strings
// are accepted too.
type TabID string

// UnmarshalJSON implements json.Unmarshaler
func (id *TabID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = TabID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("tab id: %w", err)
	}
	*id = TabID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as JSON numbers
func (id TabID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

type inboundMessage struct {
	Type      string `json:"type"`
	TabID     TabID  `json:"tabId"`
	URL       string `json:"url,omitempty"`
	Status    string `json:"status,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	Error     string `json:"error,omitempty"`
}

type outboundMessage struct {
	Type      string                       `json:"type"`
	TabID     TabID                        `json:"tabId"`
	RequestID string                       `json:"requestId,omitempty"`
	Data      *entity.ClassificationResult `json:"data,omitempty"`
}

// toEvent maps a lifecycle message to a TabEvent
func (m inboundMessage) toEvent() (entity.TabEvent, bool) {
	ev := entity.TabEvent{
		Destination: entity.DestinationID(m.TabID),
		URL:         m.URL,
		Status:      m.Status,
	}
	switch m.Type {
	case TypeTabActivated:
		ev.Kind = entity.EventActivated
	case TypeTabUpdated:
		ev.Kind = entity.EventUpdated
	case TypeTabRemoved:
		ev.Kind = entity.EventRemoved
	case TypeReady:
		ev.Kind = entity.EventReady
	default:
		return entity.TabEvent{}, false
	}
	return ev, true
}
