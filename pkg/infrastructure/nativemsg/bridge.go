package nativemsg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/WangYihang/storefront-detector/pkg/domain/entity"
	"github.com/WangYihang/storefront-detector/pkg/domain/service"
	"github.com/WangYihang/storefront-detector/pkg/infrastructure/logger"
	"github.com/google/uuid"
)

// ErrClosed is returned by lookups and deliveries after the input stream
// ended
var ErrClosed = errors.New("native messaging port closed")

// DefaultLookupTimeout bounds a GET_TAB round trip
const DefaultLookupTimeout = 5 * time.Second

type urlReply struct {
	url string
	err error
}

// Bridge is both the tab source and the delivery channel of a
// native-messaging host
type Bridge struct {
	reader io.Reader
	writer io.Writer
	logger logger.Logger

	lookupTimeout time.Duration

	writeLock sync.Mutex

	pendingLock sync.Mutex
	pending     map[string]chan urlReply
	closed      bool
}

var (
	_ service.TabSource       = (*Bridge)(nil)
	_ service.DeliveryChannel = (*Bridge)(nil)
)

// NewBridge creates a bridge reading frames from r and writing to w
func NewBridge(r io.Reader, w io.Writer, log logger.Logger) *Bridge {
	if log == nil {
		log = logger.NewNop()
	}
	return &Bridge{
		reader:        r,
		writer:        w,
		logger:        log,
		lookupTimeout: DefaultLookupTimeout,
		pending:       make(map[string]chan urlReply),
	}
}

// Run reads messages until the input ends or ctx is cancelled. A clean end
// of input means the browser closed the port and is not an error.
func (b *Bridge) Run(ctx context.Context, events chan<- entity.TabEvent) error {
	frames := make(chan []byte)
	readErr := make(chan error, 1)

	go func() {
		for {
			payload, err := ReadFrame(b.reader)
			if err != nil {
				readErr <- err
				return
			}
			select {
			case frames <- payload:
			case <-ctx.Done():
				return
			}
		}
	}()

	defer b.closePending()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-readErr:
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read native message: %w", err)
		case payload := <-frames:
			if err := b.handle(ctx, payload, events); err != nil {
				return err
			}
		}
	}
}

func (b *Bridge) handle(ctx context.Context, payload []byte, events chan<- entity.TabEvent) error {
	var msg inboundMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		b.logger.Warn("malformed native message", logger.Error(err))
		return nil
	}

	if msg.Type == TypeTabURL {
		b.resolve(msg)
		return nil
	}

	ev, ok := msg.toEvent()
	if !ok {
		b.logger.Debug("ignoring native message", logger.String("type", msg.Type))
		return nil
	}
	if ev.Destination == "" {
		b.logger.Warn("native message without tab id", logger.String("type", msg.Type))
		return nil
	}

	select {
	case events <- ev:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Deliver sends msg to the content script of tab id through the extension
func (b *Bridge) Deliver(_ context.Context, id entity.DestinationID, msg entity.Message) error {
	data := msg.Data
	err := b.write(outboundMessage{
		Type:  string(msg.Type),
		TabID: TabID(id),
		Data:  &data,
	})
	if err != nil {
		return &entity.DeliveryError{Destination: id, Err: err}
	}
	return nil
}

// CurrentURL asks the extension for the URL of tab id
func (b *Bridge) CurrentURL(ctx context.Context, id entity.DestinationID) (string, error) {
	requestID := uuid.NewString()
	reply := make(chan urlReply, 1)

	b.pendingLock.Lock()
	if b.closed {
		b.pendingLock.Unlock()
		return "", ErrClosed
	}
	b.pending[requestID] = reply
	b.pendingLock.Unlock()

	defer func() {
		b.pendingLock.Lock()
		delete(b.pending, requestID)
		b.pendingLock.Unlock()
	}()

	if err := b.write(outboundMessage{Type: TypeGetTab, TabID: TabID(id), RequestID: requestID}); err != nil {
		return "", fmt.Errorf("request url of tab %s: %w", id, err)
	}

	ctx, cancel := context.WithTimeout(ctx, b.lookupTimeout)
	defer cancel()

	select {
	case r := <-reply:
		return r.url, r.err
	case <-ctx.Done():
		return "", fmt.Errorf("url of tab %s: %w", id, ctx.Err())
	}
}

func (b *Bridge) resolve(msg inboundMessage) {
	b.pendingLock.Lock()
	reply, ok := b.pending[msg.RequestID]
	b.pendingLock.Unlock()
	if !ok {
		b.logger.Debug("unsolicited tab url", logger.String("request_id", msg.RequestID))
		return
	}

	r := urlReply{url: msg.URL}
	if msg.Error != "" {
		r.err = fmt.Errorf("tab %s: %s", msg.TabID, msg.Error)
	}
	select {
	case reply <- r:
	default:
	}
}

func (b *Bridge) closePending() {
	b.pendingLock.Lock()
	defer b.pendingLock.Unlock()

	b.closed = true
	for id, reply := range b.pending {
		select {
		case reply <- urlReply{err: ErrClosed}:
		default:
		}
		delete(b.pending, id)
	}
}

func (b *Bridge) write(msg outboundMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	b.writeLock.Lock()
	defer b.writeLock.Unlock()

	// The browser closes both pipes together; writing to a closed stdout
	// raises SIGPIPE.
	b.pendingLock.Lock()
	closed := b.closed
	b.pendingLock.Unlock()
	if closed {
		return ErrClosed
	}
	return WriteFrame(b.writer, payload)
}
