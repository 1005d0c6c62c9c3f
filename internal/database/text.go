package database

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

func formatReal(v Real) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func textHeader(k Kind, regions int) string {
	if k == CollisionStream {
		return fmt.Sprintf("# %s v%d regions=%d: index then pathLength collisions per region", CollisionFileName, formatVersion, regions)
	}
	return fmt.Sprintf("# %s v%d regions=%d: index state x y z ux uy uz weight time", ExitFileName, formatVersion, regions)
}

// ExitText renders e as one text line without newline.
func ExitText(e *ExitRecord) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(e.Index, 10))
	sb.WriteByte(' ')
	sb.WriteString(strconv.FormatUint(uint64(e.State), 10))
	for _, v := range [8]Real{e.Pos.X, e.Pos.Y, e.Pos.Z, e.Dir.X, e.Dir.Y, e.Dir.Z, e.Weight, e.Time} {
		sb.WriteByte(' ')
		sb.WriteString(formatReal(v))
	}
	return sb.String()
}

// CollisionText renders c as one text line without newline.
func CollisionText(c *CollisionRecord) string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatUint(c.Index, 10))
	for i := range c.PathLength {
		sb.WriteByte(' ')
		sb.WriteString(formatReal(c.PathLength[i]))
		sb.WriteByte(' ')
		sb.WriteString(strconv.FormatUint(c.Collisions[i], 10))
	}
	return sb.String()
}

// ParseExitText is the inverse of ExitText.
func ParseExitText(line string) (ExitRecord, error) {
	var e ExitRecord
	f := strings.Fields(line)
	if len(f) != 10 {
		return e, fmt.Errorf("%w: exit line has %d fields, want 10", ErrCorrupt, len(f))
	}
	var err error
	if e.Index, err = strconv.ParseUint(f[0], 10, 64); err != nil {
		return e, fmt.Errorf("%w: index: %v", ErrCorrupt, err)
	}
	st, err := strconv.ParseUint(f[1], 10, 32)
	if err != nil {
		return e, fmt.Errorf("%w: state: %v", ErrCorrupt, err)
	}
	e.State = ExitState(st)
	var v [8]Real
	for i := range v {
		if v[i], err = strconv.ParseFloat(f[2+i], 64); err != nil {
			return e, fmt.Errorf("%w: field %d: %v", ErrCorrupt, 2+i, err)
		}
	}
	e.Pos.X, e.Pos.Y, e.Pos.Z = v[0], v[1], v[2]
	e.Dir.X, e.Dir.Y, e.Dir.Z = v[3], v[4], v[5]
	e.Weight, e.Time = v[6], v[7]
	return e, nil
}

// ParseCollisionText is the inverse of CollisionText.
func ParseCollisionText(line string) (CollisionRecord, error) {
	var c CollisionRecord
	f := strings.Fields(line)
	if len(f) < 1 || len(f)%2 != 1 {
		return c, fmt.Errorf("%w: collision line has %d fields", ErrCorrupt, len(f))
	}
	var err error
	if c.Index, err = strconv.ParseUint(f[0], 10, 64); err != nil {
		return c, fmt.Errorf("%w: index: %v", ErrCorrupt, err)
	}
	n := (len(f) - 1) / 2
	c.PathLength = make([]Real, n)
	c.Collisions = make([]uint64, n)
	for i := 0; i < n; i++ {
		if c.PathLength[i], err = strconv.ParseFloat(f[1+2*i], 64); err != nil {
			return c, fmt.Errorf("%w: path length %d: %v", ErrCorrupt, i, err)
		}
		if c.Collisions[i], err = strconv.ParseUint(f[2+2*i], 10, 64); err != nil {
			return c, fmt.Errorf("%w: collisions %d: %v", ErrCorrupt, i, err)
		}
	}
	return c, nil
}

// ParseText reads a text stream written by the Writer. Comment and blank
// lines are skipped.
func ParseText(r io.Reader, k Kind) ([]ExitRecord, []CollisionRecord, error) {
	var exits []ExitRecord
	var colls []CollisionRecord
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		s := strings.TrimSpace(sc.Text())
		if s == "" || strings.HasPrefix(s, "#") {
			continue
		}
		if k == CollisionStream {
			c, err := ParseCollisionText(s)
			if err != nil {
				return nil, nil, fmt.Errorf("line %d: %w", line, err)
			}
			colls = append(colls, c)
			continue
		}
		e, err := ParseExitText(s)
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line, err)
		}
		exits = append(exits, e)
	}
	return exits, colls, sc.Err()
}
