package database

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lukaszgryglicki/tissuemc/internal/logging"
)

// Writer persists both streams for a run split over contiguous photon index
// ranges, one per worker. Worker 0 appends straight to the final files;
// other workers spool to part files that Close appends in worker order, so
// the final streams are ordered by photon index.
type Writer struct {
	dir     string
	regions int
	text    bool
	segs    []*segment
}

type stream struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

func createStream(path string, header []byte) (*stream, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	s := &stream{path: path, f: f, w: bufio.NewWriterSize(f, 1<<16)}
	if header != nil {
		if _, err := s.w.Write(header); err != nil {
			f.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *stream) close() error {
	if s.f == nil {
		return nil
	}
	err := s.w.Flush()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	s.f = nil
	return err
}

type segment struct {
	exit, coll  *stream
	buf         []byte
	n           uint64
	first, last uint64
}

// NewWriter prepares a database in dir for a tissue with regions regions.
// With text set, Close also renders DiffuseReflectanceDatabase.txt and
// CollisionInfoDatabase.txt.
func NewWriter(dir string, regions int, text bool) *Writer {
	return &Writer{dir: dir, regions: regions, text: text}
}

// Dir is the directory holding the streams.
func (w *Writer) Dir() string { return w.dir }

// Begin creates one segment per worker.
func (w *Writer) Begin(workers int) error {
	if workers < 1 {
		workers = 1
	}
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseWrite, err)
	}
	w.segs = make([]*segment, workers)
	for i := range w.segs {
		s, err := w.newSegment(i)
		if err != nil {
			w.Abort()
			return fmt.Errorf("%w: %v", ErrDatabaseWrite, err)
		}
		w.segs[i] = s
	}
	logging.DebugLog("Database writer in %s: %d segments, %d regions", w.dir, workers, w.regions)
	return nil
}

func (w *Writer) newSegment(i int) (*segment, error) {
	exitPath := filepath.Join(w.dir, ExitFileName)
	collPath := filepath.Join(w.dir, CollisionFileName)
	var eh, ch []byte
	if i == 0 {
		eh = newHeader(ExitStream, w.regions).encode()
		ch = newHeader(CollisionStream, w.regions).encode()
	} else {
		exitPath = partPath(exitPath, i)
		collPath = partPath(collPath, i)
	}
	e, err := createStream(exitPath, eh)
	if err != nil {
		return nil, err
	}
	c, err := createStream(collPath, ch)
	if err != nil {
		e.close()
		return nil, err
	}
	return &segment{exit: e, coll: c}, nil
}

func partPath(path string, i int) string {
	return filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.part%03d", filepath.Base(path), i))
}

// Write appends one exiting history. Only worker w may write to segment w,
// with increasing photon indices.
func (w *Writer) Write(worker int, e *ExitRecord, c *CollisionRecord) error {
	s := w.segs[worker]
	if e.Index != c.Index {
		return fmt.Errorf("%w: exit record %d paired with collision record %d", ErrDatabaseWrite, e.Index, c.Index)
	}
	if s.n > 0 && e.Index <= s.last {
		return fmt.Errorf("%w: photon index %d after %d", ErrDatabaseWrite, e.Index, s.last)
	}
	s.buf = AppendExit(s.buf[:0], e)
	if _, err := s.exit.w.Write(s.buf); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseWrite, err)
	}
	s.buf = AppendCollision(s.buf[:0], c, w.regions)
	if _, err := s.coll.w.Write(s.buf); err != nil {
		return fmt.Errorf("%w: %v", ErrDatabaseWrite, err)
	}
	if s.n == 0 {
		s.first = e.Index
	}
	s.last = e.Index
	s.n++
	return nil
}

// Close flushes all segments, concatenates them and writes text renderings.
func (w *Writer) Close() error {
	if len(w.segs) == 0 {
		return nil
	}
	defer w.removeParts(len(w.segs))
	for _, s := range w.segs {
		if err := s.exit.close(); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseWrite, err)
		}
		if err := s.coll.close(); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseWrite, err)
		}
	}
	var last uint64
	var seen bool
	for i, s := range w.segs {
		if s.n == 0 {
			continue
		}
		if seen && s.first <= last {
			return fmt.Errorf("%w: segment %d starts at photon %d after %d", ErrDatabaseWrite, i, s.first, last)
		}
		seen, last = true, s.last
	}
	for _, k := range []Kind{ExitStream, CollisionStream} {
		if err := w.concat(k); err != nil {
			return fmt.Errorf("%w: %v", ErrDatabaseWrite, err)
		}
	}
	if w.text {
		for _, k := range []Kind{ExitStream, CollisionStream} {
			if err := w.renderText(k); err != nil {
				return fmt.Errorf("%w: %v", ErrDatabaseWrite, err)
			}
		}
	}
	total := uint64(0)
	for _, s := range w.segs {
		total += s.n
	}
	logging.DebugLog("Database %s: %d records", w.dir, total)
	w.segs = nil
	return nil
}

func (w *Writer) concat(k Kind) error {
	final := filepath.Join(w.dir, k.FileName())
	out, err := os.OpenFile(final, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer out.Close()
	for i := 1; i < len(w.segs); i++ {
		in, err := os.Open(partPath(final, i))
		if err != nil {
			return err
		}
		_, err = io.Copy(out, in)
		in.Close()
		if err != nil {
			return err
		}
	}
	return out.Sync()
}

func (w *Writer) renderText(k Kind) error {
	r, err := Open(filepath.Join(w.dir, k.FileName()))
	if err != nil {
		return err
	}
	defer r.Close()
	s, err := createStream(filepath.Join(w.dir, k.FileName()+TextSuffix), nil)
	if err != nil {
		return err
	}
	defer s.close()
	if _, err := fmt.Fprintln(s.w, textHeader(k, w.regions)); err != nil {
		return err
	}
	var e ExitRecord
	var c CollisionRecord
	for {
		var ok bool
		if k == ExitStream {
			ok, err = r.NextExit(&e)
		} else {
			ok, err = r.NextCollision(&c)
		}
		if err != nil {
			return err
		}
		if !ok {
			break
		}
		line := CollisionText(&c)
		if k == ExitStream {
			line = ExitText(&e)
		}
		if _, err := fmt.Fprintln(s.w, line); err != nil {
			return err
		}
	}
	return s.close()
}

// Abort closes everything and removes part files; the worker 0 streams are
// kept as a valid truncated database.
func (w *Writer) Abort() {
	for _, s := range w.segs {
		if s == nil {
			continue
		}
		s.exit.close()
		s.coll.close()
	}
	w.removeParts(len(w.segs))
	w.segs = nil
}

func (w *Writer) removeParts(n int) {
	for i := 1; i < n; i++ {
		for _, name := range []string{ExitFileName, CollisionFileName} {
			_ = os.Remove(partPath(filepath.Join(w.dir, name), i))
		}
	}
}
