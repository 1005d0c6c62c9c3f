package output

import (
	"fmt"
	"image"
	"image/color/palette"
	"image/draw"
	"image/gif"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/lukaszgryglicki/tissuemc/internal/detector"
	"github.com/lukaszgryglicki/tissuemc/internal/logging"
)

// toUnit maps v into [0,1] by scale with gamma.
func toUnit(v, scale, gamma Real) Real {
	if v <= 0 || math.IsNaN(v) {
		return 0
	}
	n := v * scale
	if n > 1 {
		n = 1
	}
	if gamma != 1 {
		n = math.Pow(n, 1.0/gamma)
	}
	return n
}

// plane is one 2-D slice: width along axis 0, height along axis 1.
type plane struct {
	w, h int
	at   func(i, j int) Real
}

// planes cuts a 2-D or 3-D result into slices along its last axis.
func planes(r *detector.Result) []plane {
	dims := r.Dims()
	switch len(dims) {
	case 2:
		return []plane{{w: dims[0], h: dims[1], at: func(i, j int) Real { return r.Mean[i*dims[1]+j] }}}
	case 3:
		out := make([]plane, dims[2])
		for k := range out {
			out[k] = plane{w: dims[0], h: dims[1], at: func(i, j int) Real { return r.Mean[(i*dims[1]+j)*dims[2]+k] }}
		}
		return out
	}
	return nil
}

func (p plane) scale() Real {
	peak := 0.0
	for i := 0; i < p.w; i++ {
		for j := 0; j < p.h; j++ {
			if v := p.at(i, j); v > peak {
				peak = v
			}
		}
	}
	if peak == 0 {
		return 1 // black slice
	}
	return 1 / peak
}

// Imageable reports whether SavePNG16 and SaveGIF can render r.
func Imageable(r *detector.Result) bool {
	d := len(r.Axes)
	return d == 2 || d == 3
}

// SavePNG16 writes 16-bit grayscale PNGs of a 2-D result, or one per slice
// along the last axis of a 3-D result (<prefix>_<k>.png). Each image is
// normalized to its own peak. Pixel (i, j) is bin i of axis 0 and bin j of
// axis 1, so depth grows downwards for (rho, z) results.
func SavePNG16(prefix string, r *detector.Result, gamma Real) ([]string, error) {
	ps := planes(r)
	if ps == nil {
		return nil, fmt.Errorf("%s: only 2-D and 3-D results can be rendered, got %d axes", r.Name, len(r.Axes))
	}
	if err := os.MkdirAll(filepath.Dir(prefix), 0o755); err != nil {
		return nil, err
	}
	width := 1
	if len(ps) > 1 {
		width = int(math.Log10(Real(len(ps)-1))) + 1
	}
	var files []string
	for k, p := range ps {
		scale := p.scale()
		img := image.NewGray16(image.Rect(0, 0, p.w, p.h))
		for j := 0; j < p.h; j++ {
			rowOff := j * img.Stride
			for i := 0; i < p.w; i++ {
				v := uint16(math.Round(toUnit(p.at(i, j), scale, gamma) * 65535))
				// Gray16 stores big-endian uint16
				img.Pix[rowOff+2*i] = uint8(v >> 8)
				img.Pix[rowOff+2*i+1] = uint8(v)
			}
		}
		full := prefix + ".png"
		if len(ps) > 1 {
			full = fmt.Sprintf("%s_%0*d.png", prefix, width, k)
		}
		f, err := os.Create(full)
		if err != nil {
			return files, err
		}
		enc := png.Encoder{CompressionLevel: png.BestCompression}
		if err := enc.Encode(f, img); err != nil {
			f.Close()
			return files, err
		}
		if err := f.Close(); err != nil {
			return files, err
		}
		files = append(files, filepath.Base(full))
	}
	logging.DebugLog("Saved %d PNG image(s) with prefix: %s", len(files), prefix)
	return files, nil
}

// SaveGIF writes an animated GIF with one frame per slice along the last
// axis of a 3-D result. delay is in 100ths of a second.
func SaveGIF(path string, r *detector.Result, delay int, gamma Real) error {
	if len(r.Axes) != 3 {
		return fmt.Errorf("%s: animation needs a 3-D result, got %d axes", r.Name, len(r.Axes))
	}
	ps := planes(r)
	out := &gif.GIF{
		Image: make([]*image.Paletted, 0, len(ps)),
		Delay: make([]int, 0, len(ps)),
	}
	for _, p := range ps {
		scale := p.scale()
		rgba := image.NewNRGBA(image.Rect(0, 0, p.w, p.h))
		for j := 0; j < p.h; j++ {
			rowOff := j * rgba.Stride
			for i := 0; i < p.w; i++ {
				b := uint8(math.Round(toUnit(p.at(i, j), scale, gamma) * 255))
				o := rowOff + i*4
				rgba.Pix[o+0] = b
				rgba.Pix[o+1] = b
				rgba.Pix[o+2] = b
				rgba.Pix[o+3] = 255
			}
		}
		pimg := image.NewPaletted(rgba.Bounds(), palette.Plan9)
		draw.FloydSteinberg.Draw(pimg, pimg.Bounds(), rgba, image.Point{})
		out.Image = append(out.Image, pimg)
		out.Delay = append(out.Delay, delay)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := gif.EncodeAll(f, out); err != nil {
		return err
	}
	return f.Close()
}
