// Package save implements the positional binary save stream. Every entity
// that persists live state writes its fields in a fixed order with a Writer
// and reads them back in the same order with a Reader. Values are big-endian.
//
// Both sides use a sticky error: after the first failure every further call
// is a no-op, and Err reports the failure once the record is finished.
package save

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/32bitkid/bitreader"
)

const (
	// Magic opens every session save.
	Magic = "QDSV"
	// Version is the format written by this build.
	Version = 107
	// MinVersion is the oldest format still readable.
	MinVersion = 100
	// VersionMinigameBlob adds the per-scene minigame data block.
	VersionMinigameBlob = 107

	maxBlob = 1 << 24
)

var (
	ErrBadMagic           = errors.New("save: bad magic")
	ErrUnsupportedVersion = errors.New("save: unsupported version")
	ErrCorrupt            = errors.New("save: corrupt stream")
)

// Writer encodes values onto an underlying stream.
type Writer struct {
	w       *bufio.Writer
	buf     [8]byte
	err     error
	Version int
}

// NewWriter returns a Writer producing the current Version.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: bufio.NewWriter(w), Version: Version}
}

func (w *Writer) write(p []byte) {
	if w.err != nil {
		return
	}
	_, w.err = w.w.Write(p)
}

// Header writes the magic and the format version.
func (w *Writer) Header() {
	w.write([]byte(Magic))
	w.Int(w.Version)
}

// Int writes a signed 32-bit value.
func (w *Writer) Int(v int) {
	binary.BigEndian.PutUint32(w.buf[:4], uint32(int32(v)))
	w.write(w.buf[:4])
}

// Bool writes a single byte, 0 or 1.
func (w *Writer) Bool(v bool) {
	w.buf[0] = 0
	if v {
		w.buf[0] = 1
	}
	w.write(w.buf[:1])
}

// Float writes an IEEE-754 double.
func (w *Writer) Float(v float64) {
	binary.BigEndian.PutUint64(w.buf[:8], math.Float64bits(v))
	w.write(w.buf[:8])
}

// String writes a length-prefixed string.
func (w *Writer) String(s string) {
	w.Int(len(s))
	w.write([]byte(s))
}

// Bytes writes a length-prefixed blob.
func (w *Writer) Bytes(b []byte) {
	w.Int(len(b))
	w.write(b)
}

// Flush pushes buffered output and returns the first error seen.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	return w.w.Flush()
}

// Err returns the first write error.
func (w *Writer) Err() error { return w.err }

// Reader decodes values written by a Writer.
type Reader struct {
	bits    bitreader.BitReader
	err     error
	Version int
}

// NewReader wraps r. Version defaults to the current format until Header
// reads the stored one.
func NewReader(r io.Reader) *Reader {
	return &Reader{bits: bitreader.NewReader(bufio.NewReader(r)), Version: Version}
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

// short records a failed read of the underlying stream.
func (r *Reader) short(err error) {
	r.fail(fmt.Errorf("%w: %v", ErrCorrupt, err))
}

// Header checks the magic and records the stored version.
func (r *Reader) Header() error {
	for i := 0; i < len(Magic); i++ {
		b, err := r.bits.Read8(8)
		if err != nil {
			r.short(err)
			return r.err
		}
		if b != Magic[i] {
			r.fail(ErrBadMagic)
			return r.err
		}
	}
	v := r.Int()
	if r.err != nil {
		return r.err
	}
	if v < MinVersion || v > Version {
		r.fail(fmt.Errorf("%w: %d", ErrUnsupportedVersion, v))
		return r.err
	}
	r.Version = v
	return nil
}

// Int reads a signed 32-bit value.
func (r *Reader) Int() int {
	if r.err != nil {
		return 0
	}
	v, err := r.bits.Read32(32)
	if err != nil {
		r.short(err)
		return 0
	}
	return int(int32(v))
}

// Bool reads a byte written by Writer.Bool.
func (r *Reader) Bool() bool {
	if r.err != nil {
		return false
	}
	b, err := r.bits.Read8(8)
	if err != nil {
		r.short(err)
		return false
	}
	if b > 1 {
		r.fail(fmt.Errorf("%w: bool byte %d", ErrCorrupt, b))
		return false
	}
	return b == 1
}

// Float reads an IEEE-754 double.
func (r *Reader) Float() float64 {
	if r.err != nil {
		return 0
	}
	hi, err := r.bits.Read32(32)
	if err != nil {
		r.short(err)
		return 0
	}
	lo, err := r.bits.Read32(32)
	if err != nil {
		r.short(err)
		return 0
	}
	return math.Float64frombits(uint64(hi)<<32 | uint64(lo))
}

// Bytes reads a length-prefixed blob.
func (r *Reader) Bytes() []byte {
	n := r.Int()
	if r.err != nil {
		return nil
	}
	if n < 0 || n > maxBlob {
		r.fail(fmt.Errorf("%w: blob length %d", ErrCorrupt, n))
		return nil
	}
	b := make([]byte, n)
	for i := range b {
		v, err := r.bits.Read8(8)
		if err != nil {
			r.short(err)
			return nil
		}
		b[i] = v
	}
	return b
}

// String reads a length-prefixed string.
func (r *Reader) String() string {
	return string(r.Bytes())
}

// Err returns the first read error. Stream failures match ErrCorrupt.
func (r *Reader) Err() error { return r.err }
