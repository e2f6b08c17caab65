package document

import (
	"context"
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLinesGroupsByVerticalTolerance(t *testing.T) {
	frags := []Fragment{
		{Text: "Deposit", X0: 120, Y0: 101},
		{Text: "TAN :", X0: 10, Y0: 50},
		{Text: "BLRS05586H", X0: 60, Y0: 53},
		{Text: "Date of", X0: 10, Y0: 100},
		{Text: "next", X0: 10, Y0: 120},
	}

	lines := Lines(frags, 5)
	require.Len(t, lines, 3)
	assert.Equal(t, "TAN : BLRS05586H", LineText(lines[0]))
	assert.Equal(t, "Date of Deposit", LineText(lines[1]))
	assert.Equal(t, "next", LineText(lines[2]))
	assert.Equal(t, "TAN : BLRS05586H\nDate of Deposit\nnext", JoinLines(lines))

	// input order untouched
	assert.Equal(t, "Deposit", frags[0].Text)
}

func TestLinesToleranceIsAnchoredToFirstFragment(t *testing.T) {
	// 0 -> 4 -> 8: 8 is more than 5 away from the line's first fragment.
	frags := []Fragment{{Text: "a", Y0: 0}, {Text: "b", X0: 1, Y0: 4}, {Text: "c", X0: 2, Y0: 8}}
	lines := Lines(frags, 5)
	require.Len(t, lines, 2)
	assert.Equal(t, "a b", LineText(lines[0]))
	assert.Equal(t, "c", LineText(lines[1]))
}

func TestLinesEmpty(t *testing.T) {
	assert.Nil(t, Lines(nil, 5))
}

func TestMergeGlyphs(t *testing.T) {
	row := []Fragment{
		{Text: "T", X0: 0, X1: 6, Y0: 0, Y1: 10},
		{Text: "A", X0: 6, X1: 12, Y0: 0, Y1: 10},
		{Text: "N", X0: 12, X1: 18, Y0: 0, Y1: 10},
		{Text: ":", X0: 20.5, X1: 22, Y0: 0, Y1: 10}, // small visible gap -> space
		{Text: "X", X0: 40, X1: 46, Y0: 0, Y1: 10},   // beyond word gap -> new fragment
	}
	out := mergeGlyphs(row, 3)
	require.Len(t, out, 2)
	assert.Equal(t, "TAN :", out[0].Text)
	assert.InDelta(t, 22, out[0].X1, 0.001)
	assert.Equal(t, "X", out[1].Text)
}

func TestBaselineRows(t *testing.T) {
	glyphs := []Fragment{
		{Text: "b", X0: 10, Y0: 88, Y1: 100},
		{Text: "a", X0: 0, Y0: 90, Y1: 100.4}, // same baseline, larger font
		{Text: "c", X0: 0, Y0: 110, Y1: 120},
	}
	rows := baselineRows(glyphs, 1.0)
	require.Len(t, rows, 2)
	assert.Equal(t, "a b", LineText(rows[0]))
	assert.Equal(t, "c", LineText(rows[1]))
}

func TestStaticDocument(t *testing.T) {
	img := image.NewGray(image.Rect(0, 0, 4, 4))
	doc := &Static{
		DocName: "x.pdf",
		Pages: []Page{{
			Fragments: []Fragment{{Text: "CIN :", X0: 0, Y0: 0}, {Text: "123", X0: 40, Y0: 1}},
			Image:     img,
		}},
	}

	assert.Equal(t, 1, doc.PageCount())
	text, err := doc.Text(1)
	require.NoError(t, err)
	assert.Equal(t, "CIN : 123", text)

	got, err := doc.Render(context.Background(), 1, 300)
	require.NoError(t, err)
	assert.Same(t, img, got)

	_, err = doc.Text(2)
	assert.Error(t, err)

	_, err = FromImage("scan.png", nil).Render(context.Background(), 1, 300)
	assert.Error(t, err)
}

func TestOpenPDFMissingFile(t *testing.T) {
	_, err := OpenPDF(filepath.Join(t.TempDir(), "missing.pdf"), PDFConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestOpenPDFGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf at all"), 0o644))

	_, err := OpenPDF(path, PDFConfig{}, zap.NewNop())
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...(truncated)", truncate("abcdef", 2))
}
