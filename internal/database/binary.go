package database

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

var le = binary.LittleEndian

// Header starts every binary stream.
type Header struct {
	Kind       Kind
	Version    uint32
	RecordSize uint32
	Regions    uint32
}

func newHeader(k Kind, regions int) Header {
	return Header{Kind: k, Version: formatVersion, RecordSize: uint32(RecordSize(k, regions)), Regions: uint32(regions)}
}

func (h Header) encode() []byte {
	b := make([]byte, headerSize)
	copy(b[0:4], magic[h.Kind][:])
	le.PutUint32(b[4:], h.Version)
	le.PutUint32(b[8:], h.RecordSize)
	le.PutUint32(b[12:], h.Regions)
	return b
}

func decodeHeader(b []byte) (Header, error) {
	var h Header
	switch {
	case string(b[0:4]) == string(magic[ExitStream][:]):
		h.Kind = ExitStream
	case string(b[0:4]) == string(magic[CollisionStream][:]):
		h.Kind = CollisionStream
	default:
		return h, fmt.Errorf("%w: bad magic %q", ErrCorrupt, b[0:4])
	}
	h.Version = le.Uint32(b[4:])
	h.RecordSize = le.Uint32(b[8:])
	h.Regions = le.Uint32(b[12:])
	if h.Version != formatVersion {
		return h, fmt.Errorf("%w: unsupported version %d", ErrCorrupt, h.Version)
	}
	if int(h.RecordSize) != RecordSize(h.Kind, int(h.Regions)) {
		return h, fmt.Errorf("%w: record size %d does not match %d regions", ErrCorrupt, h.RecordSize, h.Regions)
	}
	return h, nil
}

func putFloat(b []byte, v Real) { le.PutUint64(b, math.Float64bits(v)) }
func getFloat(b []byte) Real    { return math.Float64frombits(le.Uint64(b)) }

// AppendExit encodes e.
func AppendExit(b []byte, e *ExitRecord) []byte {
	var r [exitSize]byte
	le.PutUint64(r[0:], e.Index)
	le.PutUint32(r[8:], uint32(e.State))
	for i, v := range [8]Real{e.Pos.X, e.Pos.Y, e.Pos.Z, e.Dir.X, e.Dir.Y, e.Dir.Z, e.Weight, e.Time} {
		putFloat(r[16+8*i:], v)
	}
	return append(b, r[:]...)
}

func decodeExit(b []byte, e *ExitRecord) {
	e.Index = le.Uint64(b[0:])
	e.State = ExitState(le.Uint32(b[8:]))
	f := func(i int) Real { return getFloat(b[16+8*i:]) }
	e.Pos.X, e.Pos.Y, e.Pos.Z = f(0), f(1), f(2)
	e.Dir.X, e.Dir.Y, e.Dir.Z = f(3), f(4), f(5)
	e.Weight, e.Time = f(6), f(7)
}

// AppendCollision encodes c for a tissue of regions regions.
func AppendCollision(b []byte, c *CollisionRecord, regions int) []byte {
	n := collisionSize(regions)
	start := len(b)
	b = append(b, make([]byte, n)...)
	r := b[start:]
	le.PutUint64(r[0:], c.Index)
	for i := 0; i < regions; i++ {
		var l Real
		var k uint64
		if i < len(c.PathLength) {
			l = c.PathLength[i]
		}
		if i < len(c.Collisions) {
			k = c.Collisions[i]
		}
		putFloat(r[8+16*i:], l)
		le.PutUint64(r[16+16*i:], k)
	}
	return b
}

func decodeCollision(b []byte, c *CollisionRecord, regions int) {
	c.Index = le.Uint64(b[0:])
	c.PathLength = c.PathLength[:0]
	c.Collisions = c.Collisions[:0]
	for i := 0; i < regions; i++ {
		c.PathLength = append(c.PathLength, getFloat(b[8+16*i:]))
		c.Collisions = append(c.Collisions, le.Uint64(b[16+16*i:]))
	}
}

// Reader streams records from a binary database file. A trailing partial
// record (an interrupted write) is ignored.
type Reader struct {
	Header Header
	f      *os.File
	r      *bufio.Reader
	buf    []byte
	last   uint64
	n      int
}

// Open reads the header of the stream at path.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	r := bufio.NewReader(f)
	hb := make([]byte, headerSize)
	if _, err := io.ReadFull(r, hb); err != nil {
		f.Close()
		return nil, fmt.Errorf("%w: %s: short header: %v", ErrCorrupt, path, err)
	}
	h, err := decodeHeader(hb)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Reader{Header: h, f: f, r: r, buf: make([]byte, h.RecordSize)}, nil
}

func (r *Reader) Close() error { return r.f.Close() }

// next fills r.buf; ok is false at the end of the stream.
func (r *Reader) next() (bool, error) {
	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return false, nil
		}
		return false, err
	}
	idx := le.Uint64(r.buf[0:])
	if r.n > 0 && idx <= r.last {
		return false, fmt.Errorf("%w: photon index %d after %d", ErrCorrupt, idx, r.last)
	}
	r.last = idx
	r.n++
	return true, nil
}

// NextExit decodes the next exit record into e.
func (r *Reader) NextExit(e *ExitRecord) (bool, error) {
	if r.Header.Kind != ExitStream {
		return false, fmt.Errorf("%w: not an exit stream", ErrCorrupt)
	}
	ok, err := r.next()
	if ok {
		decodeExit(r.buf, e)
	}
	return ok, err
}

// NextCollision decodes the next collision record into c.
func (r *Reader) NextCollision(c *CollisionRecord) (bool, error) {
	if r.Header.Kind != CollisionStream {
		return false, fmt.Errorf("%w: not a collision stream", ErrCorrupt)
	}
	ok, err := r.next()
	if ok {
		decodeCollision(r.buf, c, int(r.Header.Regions))
	}
	return ok, err
}
