package wire

import (
	"io"

	"github.com/pkg/errors"
)

const readChunkSize = 512

// Decoder reads whole frames from a byte stream, buffering partial reads
// until a complete frame is available.
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder creates a Decoder reading from r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// ReadMessage blocks until a whole frame has been read and returns it.
// On a malformed frame the buffered bytes are discarded, so the caller can
// keep reading from the same connection; there is no way to find the next
// frame boundary inside a corrupt buffer.
func (d *Decoder) ReadMessage() (Message, error) {
	for {
		if len(d.buf) > 0 {
			msg, n, err := Decode(d.buf)
			switch {
			case err == nil:
				d.buf = append(d.buf[:0], d.buf[n:]...)
				return msg, nil
			case errors.Is(err, ErrMessageIncomplete):
				if len(d.buf) > MaxMessageLength {
					d.buf = d.buf[:0]
					return Message{}, errors.Wrap(ErrMalformedMessage, "frame exceeds maximum length")
				}
			default:
				d.buf = d.buf[:0]
				return Message{}, err
			}
		}
		chunk := make([]byte, readChunkSize)
		n, err := d.r.Read(chunk)
		if n > 0 {
			d.buf = append(d.buf, chunk[:n]...)
			continue
		}
		if err != nil {
			return Message{}, err
		}
	}
}

// Writer encodes and writes frames to a byte stream.
type Writer struct {
	w io.Writer
}

// NewWriter creates a Writer writing to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// WriteMessage encodes msg and writes the whole frame.
func (w *Writer) WriteMessage(msg Message) error {
	buf, err := Encode(msg)
	if err != nil {
		return errors.Wrap(err, "encode message failed")
	}
	if _, err := w.w.Write(buf); err != nil {
		return errors.Wrap(err, "write message failed")
	}
	return nil
}
