package output

import (
	"path/filepath"

	"github.com/lukaszgryglicki/tissuemc/internal/detector"
)

// GIFDelay is the frame delay of result animations, in 100ths of a second.
const GIFDelay = 20

// Options select the optional renderings of WriteResults.
type Options struct {
	Images bool
	Gamma  Real
}

// WriteResults writes every result, and the extra results it carries, as raw
// and text files into dir, plus heatmaps when asked. It returns the written
// file names relative to dir.
func WriteResults(dir string, results []*detector.Result, opts Options) ([]string, error) {
	var files []string
	var write func(r *detector.Result) error
	write = func(r *detector.Result) error {
		names, err := SaveResultRaw(dir, r)
		if err != nil {
			return err
		}
		files = append(files, names...)
		if err := WriteText(filepath.Join(dir, r.Name+TextSuffix), r); err != nil {
			return err
		}
		files = append(files, r.Name+TextSuffix)
		if opts.Images && Imageable(r) {
			pngs, err := SavePNG16(filepath.Join(dir, r.Name), r, opts.Gamma)
			files = append(files, pngs...)
			if err != nil {
				return err
			}
			if len(r.Axes) == 3 {
				if err := SaveGIF(filepath.Join(dir, r.Name+".gif"), r, GIFDelay, opts.Gamma); err != nil {
					return err
				}
				files = append(files, r.Name+".gif")
			}
		}
		for _, x := range r.Extra {
			if err := write(x); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range results {
		if err := write(r); err != nil {
			return files, err
		}
	}
	return files, nil
}
