package protocol

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Two framings are in use. The client link carries exactly one message per
// unidirectional stream: the body is the whole stream, read to EOF. The
// lobby ↔ game-server link prefixes each message with a u32 big-endian
// length.

// MaxFrameSize bounds a single length-prefixed message.
const MaxFrameSize = 16 << 20

// ReadRaw reads a whole-stream message body.
func ReadRaw(r io.Reader) ([]byte, error) {
	return io.ReadAll(r)
}

// WriteRaw writes a whole-stream message body and closes the stream, which
// signals EOF to the receiver.
func WriteRaw(w io.WriteCloser, data []byte) error {
	if _, err := w.Write(data); err != nil {
		w.Close()
		return err
	}
	return w.Close()
}

// ReadFramed reads one length-prefixed message.
func ReadFramed(r io.Reader) ([]byte, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(prefix[:])
	if n > MaxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", n)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// WriteFramed writes one length-prefixed message.
func WriteFramed(w io.Writer, data []byte) error {
	if len(data) > MaxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", len(data))
	}
	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(data)))
	if _, err := w.Write(prefix[:]); err != nil {
		return err
	}
	_, err := w.Write(data)
	return err
}
