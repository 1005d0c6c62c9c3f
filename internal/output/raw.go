// Package output writes detector results, images and the run manifest into
// a run's output folder.
package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/geom"
)

type Real = geom.Real

// ErrBadRaw is returned when a raw result file does not match its header.
var ErrBadRaw = errors.New("malformed raw result")

// SecondMomentSuffix names the file holding standard errors next to a mean.
const SecondMomentSuffix = "_2"

func product(dims []int) int64 {
	n := int64(1)
	for _, d := range dims {
		n *= int64(d)
	}
	return n
}

// SaveRaw writes values as little-endian float64 after an int32 header:
// the number of dimensions, then each dimension. A scalar has zero
// dimensions and one value.
func SaveRaw(path string, dims []int, values []Real) error {
	for i, d := range dims {
		if d < 0 {
			return fmt.Errorf("negative dimension %d: %d", i, d)
		}
	}
	// 64-bit multiply to avoid overflow
	if exp := product(dims); int64(len(values)) != exp {
		return fmt.Errorf("value count mismatch: got %d, expected %d (%v)", len(values), exp, dims)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	header := make([]int32, 0, len(dims)+1)
	header = append(header, int32(len(dims)))
	for _, d := range dims {
		header = append(header, int32(d))
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return err
	}
	if len(values) > 0 {
		if err := binary.Write(w, binary.LittleEndian, values); err != nil {
			return err
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}

// LoadRaw reads a file written by SaveRaw.
func LoadRaw(path string) (dims []int, values []Real, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var nd int32
	if err := binary.Read(r, binary.LittleEndian, &nd); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: header: %w", ErrBadRaw, path, err)
	}
	if nd < 0 || nd > 16 {
		return nil, nil, fmt.Errorf("%w: %s: %d dimensions", ErrBadRaw, path, nd)
	}
	hdr := make([]int32, nd)
	if err := binary.Read(r, binary.LittleEndian, hdr); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: header: %w", ErrBadRaw, path, err)
	}
	dims = make([]int, nd)
	for i, d := range hdr {
		if d < 0 {
			return nil, nil, fmt.Errorf("%w: %s: negative dimension %d", ErrBadRaw, path, d)
		}
		dims[i] = int(d)
	}
	values = make([]Real, product(dims))
	if err := binary.Read(r, binary.LittleEndian, values); err != nil {
		return nil, nil, fmt.Errorf("%w: %s: body: %w", ErrBadRaw, path, err)
	}
	if _, err := r.ReadByte(); !errors.Is(err, io.EOF) {
		return nil, nil, fmt.Errorf("%w: %s: trailing data", ErrBadRaw, path)
	}
	return dims, values, nil
}

// SaveResultRaw writes the mean as <dir>/<name> and, when present, the
// standard error as <dir>/<name>_2. It returns the written file names.
func SaveResultRaw(dir string, r *detector.Result) ([]string, error) {
	dims := r.Dims()
	names := []string{r.Name}
	if err := SaveRaw(filepath.Join(dir, r.Name), dims, r.Mean); err != nil {
		return nil, fmt.Errorf("writing %s: %w", r.Name, err)
	}
	if len(r.StdErr) > 0 {
		name := r.Name + SecondMomentSuffix
		if err := SaveRaw(filepath.Join(dir, name), dims, r.StdErr); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		names = append(names, name)
	}
	return names, nil
}
