package worker

import (
	"fmt"
	"io"
)

// prefixLen is the width of the frame length prefix: nine ASCII decimal
// digits, zero padded. The prefix width is a wire contract shared with
// worker processes and must not change.
const prefixLen = 9

// MaxPayload is the largest payload a single frame can carry, bounded by
// what nine decimal digits can express.
const MaxPayload = 999_999_999

// WriteFrame writes payload to w as one frame: a nine digit decimal length
// prefix followed by exactly that many payload bytes.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxPayload {
		return fmt.Errorf("worker: payload of %d bytes exceeds frame limit %d", len(payload), MaxPayload)
	}

	var prefix [prefixLen]byte
	formatPrefix(prefix[:], len(payload))
	if _, err := w.Write(prefix[:]); err != nil {
		return fmt.Errorf("worker: write frame prefix: %w", err)
	}
	if _, err := w.Write(payload); err != nil {
		return fmt.Errorf("worker: write frame payload: %w", err)
	}
	return nil
}

// ReadFrame reads one frame from r and returns its payload. It returns
// io.EOF when the stream ends cleanly on a frame boundary and
// io.ErrUnexpectedEOF when it ends mid-frame.
func ReadFrame(r io.Reader) ([]byte, error) {
	var prefix [prefixLen]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if err == io.ErrUnexpectedEOF {
			return nil, fmt.Errorf("worker: truncated frame prefix: %w", err)
		}
		return nil, err
	}

	size, err := parsePrefix(prefix[:])
	if err != nil {
		return nil, err
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(r, payload); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("worker: truncated frame payload: %w", err)
	}
	return payload, nil
}

// formatPrefix renders size as zero padded decimal digits into dst.
func formatPrefix(dst []byte, size int) {
	for i := prefixLen - 1; i >= 0; i-- {
		dst[i] = byte('0' + size%10)
		size /= 10
	}
}

// parsePrefix decodes a zero padded decimal prefix, rejecting any byte
// outside '0'..'9'.
func parsePrefix(prefix []byte) (int, error) {
	size := 0
	for _, b := range prefix {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("worker: invalid frame prefix %q", prefix)
		}
		size = size*10 + int(b-'0')
	}
	return size, nil
}
