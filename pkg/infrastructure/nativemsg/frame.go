// Package nativemsg implements a browser native-messaging host: JSON
// messages framed by a 32-bit little-endian length on stdin and stdout.
package nativemsg

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Message size limits imposed by the browser
const (
	MaxInboundSize  = 64 << 20
	MaxOutboundSize = 1 << 20
)

// ReadFrame reads one length-prefixed message from r. io.EOF is returned
// only when r ends cleanly between two frames.
func ReadFrame(r io.Reader) ([]byte, error) {
	var header [4]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := binary.LittleEndian.Uint32(header[:])
	if size > MaxInboundSize {
		return nil, fmt.Errorf("inbound message of %d bytes exceeds %d", size, MaxInboundSize)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("read message body: %w", err)
	}
	return payload, nil
}

// WriteFrame writes payload to w with its length prefix
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxOutboundSize {
		return fmt.Errorf("outbound message of %d bytes exceeds %d", len(payload), MaxOutboundSize)
	}

	frame := make([]byte, 4+len(payload))
	binary.LittleEndian.PutUint32(frame, uint32(len(payload)))
	copy(frame[4:], payload)
	_, err := w.Write(frame)
	return err
}
