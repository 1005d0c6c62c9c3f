package output

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/lukaszgryglicki/tissuemc/internal/detector"
)

// TextSuffix is appended to the raw file name for the text rendering.
const TextSuffix = ".txt"

func formatReal(v Real) string { return strconv.FormatFloat(v, 'g', -1, 64) }

// WriteText renders r as text: comment lines with the name, tally type and
// bin edges, then one line per bin holding the bin indices, the mean and,
// when tallied, the standard error.
func WriteText(path string, r *detector.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	fmt.Fprintf(w, "# name: %s\n", r.Name)
	fmt.Fprintf(w, "# tallyType: %s\n", r.TallyType)
	cols := make([]string, 0, len(r.Axes)+2)
	for _, a := range r.Axes {
		edges := make([]string, len(a.Edges))
		for i, e := range a.Edges {
			edges[i] = formatReal(e)
		}
		fmt.Fprintf(w, "# %s edges: %s\n", a.Name, strings.Join(edges, " "))
		cols = append(cols, a.Name)
	}
	cols = append(cols, "mean")
	if len(r.StdErr) > 0 {
		cols = append(cols, "stderr")
	}
	fmt.Fprintf(w, "# %s\n", strings.Join(cols, " "))

	dims := r.Dims()
	idx := make([]int, len(dims))
	line := make([]string, 0, len(cols))
	for flat := range r.Mean {
		line = line[:0]
		for _, i := range idx {
			line = append(line, strconv.Itoa(i))
		}
		line = append(line, formatReal(r.Mean[flat]))
		if len(r.StdErr) > 0 {
			line = append(line, formatReal(r.StdErr[flat]))
		}
		fmt.Fprintln(w, strings.Join(line, " "))
		// row-major: last index fastest
		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < dims[d] {
				break
			}
			idx[d] = 0
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Close()
}
