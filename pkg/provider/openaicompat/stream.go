package openaicompat

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/rabitem/MailAssistantService-sub002/pkg/provider"
)

// DefaultMaxEventSize bounds a single buffered SSE event.
const DefaultMaxEventSize = 1 << 20

const readSize = 4096

var (
	dataPrefix   = []byte("data: ")
	doneSentinel = []byte("[DONE]")
	boundaryLF   = []byte("\n\n")
	boundaryCRLF = []byte("\r\n\r\n")
)

// Decoder turns a Chat Completions SSE byte stream into CompletionChunks.
//
// Bytes are buffered until an event boundary ("\n\n" or "\r\n\r\n") is seen;
// only complete events are split into lines. Each "data: " line carries one
// payload. The payload "[DONE]" ends the sequence at once, even when more
// bytes are buffered. A payload that is not valid JSON is dropped and
// reported to OnMalformed. Lines without the prefix (event:, id:, retry:,
// comments) are ignored. If the source ends without "[DONE]" the sequence
// ends as well, after processing any unterminated trailing event.
//
// The chunks produced do not depend on how the source splits its bytes
// across reads. A Decoder is single-use and not safe for concurrent use.
type Decoder struct {
	r   io.Reader
	buf []byte
	tmp []byte

	// payloads of complete events not yet handed out
	pending [][]byte

	eof     bool
	readErr error
	done    bool
	err     error

	// MaxEventSize bounds the bytes buffered for one event. Exceeding it is
	// a stream-protocol error. Zero means DefaultMaxEventSize.
	MaxEventSize int

	// OnMalformed, if set, is called for every dropped payload.
	OnMalformed func(payload []byte, err error)
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r, tmp: make([]byte, readSize)}
}

// Next returns the next chunk. It returns io.EOF once the sequence has
// ended, a *provider.Error of kind transport-failure when the source fails,
// and one of kind stream-protocol-error when an event exceeds MaxEventSize.
// After the first error every call returns the same error.
func (d *Decoder) Next() (*provider.CompletionChunk, error) {
	for {
		for len(d.pending) > 0 {
			payload := d.pending[0]
			d.pending = d.pending[1:]

			if bytes.Equal(payload, doneSentinel) {
				d.finish(io.EOF)
				return nil, io.EOF
			}

			var chunk ChatCompletionChunk
			if err := json.Unmarshal(payload, &chunk); err != nil {
				if d.OnMalformed != nil {
					d.OnMalformed(payload, err)
				}
				continue
			}
			return TranslateChunk(&chunk), nil
		}

		if d.done {
			return nil, d.err
		}

		if event, ok := d.cutEvent(); ok {
			if len(event) > d.maxEventSize() {
				d.finish(d.oversized())
				return nil, d.err
			}
			d.collect(event)
			continue
		}

		if d.eof {
			// Trailing event without its blank-line terminator.
			if len(d.buf) > d.maxEventSize() {
				d.finish(d.oversized())
				return nil, d.err
			}
			if len(d.buf) > 0 {
				d.collect(d.buf)
				d.buf = nil
			}
			d.done = true
			d.err = io.EOF
			continue
		}

		// Complete events read together with a failure are delivered first.
		if d.readErr != nil {
			d.finish(provider.NewTransportError(d.readErr))
			return nil, d.err
		}

		if len(d.buf) > d.maxEventSize() {
			d.finish(d.oversized())
			return nil, d.err
		}

		d.fill()
	}
}

// fill performs one read from the source.
func (d *Decoder) fill() {
	n, err := d.r.Read(d.tmp)
	if n > 0 {
		d.buf = append(d.buf, d.tmp[:n]...)
	}
	switch {
	case err == nil:
	case errors.Is(err, io.EOF):
		d.eof = true
	default:
		d.readErr = err
	}
}

// cutEvent removes the first complete event from the buffer. The earliest
// boundary of either kind wins.
func (d *Decoder) cutEvent() ([]byte, bool) {
	lf := bytes.Index(d.buf, boundaryLF)
	crlf := bytes.Index(d.buf, boundaryCRLF)

	idx, size := lf, len(boundaryLF)
	if crlf >= 0 && (lf < 0 || crlf < lf) {
		idx, size = crlf, len(boundaryCRLF)
	}
	if idx < 0 {
		return nil, false
	}

	event := d.buf[:idx]
	rest := d.buf[idx+size:]
	// Copy the remainder so the next append does not overwrite payloads
	// still referenced from pending.
	d.buf = append([]byte(nil), rest...)
	return event, true
}

// collect queues the data payloads of one event, in line order.
func (d *Decoder) collect(event []byte) {
	for _, line := range bytes.Split(event, []byte("\n")) {
		line = bytes.TrimSuffix(line, []byte("\r"))
		payload, ok := bytes.CutPrefix(line, dataPrefix)
		if !ok || len(payload) == 0 {
			continue
		}
		d.pending = append(d.pending, payload)
	}
}

func (d *Decoder) finish(err error) {
	d.done = true
	d.err = err
	d.pending = nil
	d.buf = nil
}

func (d *Decoder) oversized() error {
	return provider.NewStreamProtocolError(fmt.Sprintf("event exceeds %d bytes", d.maxEventSize()))
}

func (d *Decoder) maxEventSize() int {
	if d.MaxEventSize > 0 {
		return d.MaxEventSize
	}
	return DefaultMaxEventSize
}
