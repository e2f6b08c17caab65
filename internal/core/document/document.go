// Package document reads challan PDFs into the three views the extractors need:
// page text, positioned text fragments and a rendered raster image.
package document

import (
	"context"
	"image"
	"math"
	"sort"
	"strings"
)

// Fragment is a run of text with its bounding box in page units, origin top-left.
type Fragment struct {
	Text string
	X0   float64
	Y0   float64
	X1   float64
	Y1   float64
}

// Document is a readable single-document handle. Pages are numbered from 1.
type Document interface {
	Name() string
	PageCount() int
	Text(page int) (string, error)
	Fragments(page int) ([]Fragment, error)
	Render(ctx context.Context, page, dpi int) (image.Image, error)
}

// Lines groups fragments into visual lines: fragments are sorted by (Y0, X0) and a fragment
// joins the current line while its Y0 is within tolerance of the line's first fragment.
// Each line is sorted left to right. The input slice is not modified.
func Lines(fragments []Fragment, tolerance float64) [][]Fragment {
	if len(fragments) == 0 {
		return nil
	}
	sorted := make([]Fragment, len(fragments))
	copy(sorted, fragments)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y0 != sorted[j].Y0 {
			return sorted[i].Y0 < sorted[j].Y0
		}
		return sorted[i].X0 < sorted[j].X0
	})

	var lines [][]Fragment
	current := []Fragment{sorted[0]}
	currentY := sorted[0].Y0
	for _, f := range sorted[1:] {
		if math.Abs(f.Y0-currentY) <= tolerance {
			current = append(current, f)
			continue
		}
		lines = append(lines, sortByX(current))
		current = []Fragment{f}
		currentY = f.Y0
	}
	lines = append(lines, sortByX(current))
	return lines
}

func sortByX(line []Fragment) []Fragment {
	sort.SliceStable(line, func(i, j int) bool { return line[i].X0 < line[j].X0 })
	return line
}

// LineText joins a line's fragments with single spaces.
func LineText(line []Fragment) string {
	parts := make([]string, 0, len(line))
	for _, f := range line {
		parts = append(parts, f.Text)
	}
	return strings.Join(parts, " ")
}

// JoinLines renders grouped lines as newline separated text.
func JoinLines(lines [][]Fragment) string {
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(LineText(line))
	}
	return b.String()
}
