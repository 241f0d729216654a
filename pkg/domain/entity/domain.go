package entity

import (
	"strconv"
	"time"
)

// Domain is a canonical lower-case host name without scheme, port or path
type Domain string

// String returns the domain as a plain string
func (d Domain) String() string {
	return string(d)
}

// DestinationID identifies a message-delivery target (a browser tab)
type DestinationID string

// String returns the identifier as a plain string
func (id DestinationID) String() string {
	return string(id)
}

// DestinationFromInt formats a numeric tab id as a DestinationID
func DestinationFromInt(id int64) DestinationID {
	return DestinationID(strconv.FormatInt(id, 10))
}

// Status is the state of a remote classification
type Status string

const (
	StatusComplete   Status = "complete"
	StatusInProgress Status = "in_progress"
	StatusError      Status = "error"
)

// APIErrorReason is the reason attached to results synthesized after a
// transport or decode failure
const APIErrorReason = "API error"

// ClassificationResult is the verdict of the classification service for a domain
type ClassificationResult struct {
	IsMatch bool   `json:"isMatch"`
	Status  Status `json:"status"`
	Reason  string `json:"reason,omitempty"`
}

// IsFinal reports whether the remote side has finished working on the domain
func (r ClassificationResult) IsFinal() bool {
	return r.Status != StatusInProgress
}

// ErrorResult returns the benign result reported when the service could not be reached or understood
func ErrorResult() ClassificationResult {
	return ClassificationResult{IsMatch: false, Status: StatusError, Reason: APIErrorReason}
}

// CacheEntry wraps a result with the time it was stored
type CacheEntry struct {
	Result    ClassificationResult `json:"result"`
	Timestamp time.Time            `json:"-"`
}

// CheckOutcome is what a status check produced. Result is always usable;
// Err explains why Result was synthesized, when it was.
type CheckOutcome struct {
	Result   ClassificationResult
	Attempts int
	Err      error
}

// MessageType tags messages exchanged with the in-page observer
type MessageType string

const (
	// MessageTypeStatus carries a ClassificationResult to the observer
	MessageTypeStatus MessageType = "SHOPIFY_STATUS"
	// MessageTypeReady is sent once by the observer when it has initialized
	MessageTypeReady MessageType = "CONTENT_SCRIPT_READY"
)

// Message is a payload delivered to a destination
type Message struct {
	Type MessageType          `json:"type"`
	Data ClassificationResult `json:"data"`
}

// NewStatusMessage wraps a result into a status notification
func NewStatusMessage(result ClassificationResult) Message {
	return Message{Type: MessageTypeStatus, Data: result}
}

// EventKind classifies tab lifecycle events
type EventKind string

const (
	EventActivated EventKind = "activated"
	EventUpdated   EventKind = "updated"
	EventRemoved   EventKind = "removed"
	EventReady     EventKind = "ready"
)

// Navigation statuses reported with EventUpdated
const (
	NavigationLoading  = "loading"
	NavigationComplete = "complete"
)

// TabEvent is a single event emitted by the tab substrate
type TabEvent struct {
	Kind        EventKind
	Destination DestinationID
	URL         string
	Status      string
}

// Delivery records a message handed to the delivery channel
type Delivery struct {
	Destination DestinationID `json:"destination"`
	Message     Message       `json:"message"`
	DeliveredAt time.Time     `json:"delivered_at"`
}

// Metrics represents coordinator metrics
type Metrics struct {
	EventsReceived    int64
	EventsIgnored     int64
	FlowsStarted      int64
	FlowsCompleted    int64
	CacheHits         int64
	CacheMisses       int64
	Checks            int64
	CheckErrors       int64
	InProgressResults int64
	PollAttempts      int64
	Delivered         int64
	Queued            int64
	DeliveryFailures  int64
	Discarded         int64
	ReadyDestinations int
	PendingMessages   int
	StartTime         time.Time
	LastUpdateTime    time.Time
}
