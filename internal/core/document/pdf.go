package document

import (
	"context"
	"fmt"
	"image"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/internal/common"
)

// PDFConfig controls how glyphs are assembled into fragments and how pages are rasterized.
type PDFConfig struct {
	Pdftoppm      string  // binary name or absolute path; if empty -> "pdftoppm"
	WordGap       float64 // max horizontal gap (points) between glyphs of one fragment, default 3
	LineTolerance float64 // vertical tolerance used when rebuilding page text, default 5
}

// PDF is a Document backed by github.com/ledongthuc/pdf for text and poppler for rendering.
type PDF struct {
	path   string
	file   *os.File
	reader *pdf.Reader
	cfg    PDFConfig
	runner Runner
	logger *zap.Logger
}

// OpenPDF opens path for reading. The caller must Close it.
func OpenPDF(path string, cfg PDFConfig, logger *zap.Logger) (doc *PDF, err error) {
	logger = common.LoggerOrDefault(logger)
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.WordGap <= 0 {
		cfg.WordGap = 3
	}
	if cfg.LineTolerance <= 0 {
		cfg.LineTolerance = 5
	}
	defer recoverMalformed(&err)

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, common.NewAppError("UNREADABLE_DOCUMENT", filepath.Base(path), eris.Wrap(err, "pdf: open"))
	}
	if r.NumPage() == 0 {
		_ = f.Close()
		return nil, common.NewAppError("UNREADABLE_DOCUMENT", "document has no pages", common.ErrUnreadableDocument)
	}
	return &PDF{path: path, file: f, reader: r, cfg: cfg, runner: ExecRunner{}, logger: logger}, nil
}

// WithRunner swaps the command runner used for rendering.
func (d *PDF) WithRunner(r Runner) *PDF {
	d.runner = r
	return d
}

func (d *PDF) Name() string { return filepath.Base(d.path) }

func (d *PDF) PageCount() int { return d.reader.NumPage() }

// Close releases the underlying file.
func (d *PDF) Close() error {
	return d.file.Close()
}

func (d *PDF) page(n int) (pdf.Page, error) {
	if n < 1 || n > d.reader.NumPage() {
		return pdf.Page{}, eris.Errorf("pdf: page %d out of range (1..%d)", n, d.reader.NumPage())
	}
	p := d.reader.Page(n)
	if p.V.IsNull() {
		return pdf.Page{}, eris.Errorf("pdf: page %d missing", n)
	}
	return p, nil
}

// Fragments returns word-level fragments of page n, glyphs merged when closer than WordGap.
func (d *PDF) Fragments(n int) (frags []Fragment, err error) {
	defer recoverMalformed(&err)

	p, err := d.page(n)
	if err != nil {
		return nil, err
	}
	texts := p.Content().Text
	height := pageHeight(p, texts)

	glyphs := make([]Fragment, 0, len(texts))
	for _, t := range texts {
		if t.S == "" || t.S == "\n" {
			continue
		}
		size := t.FontSize
		if size <= 0 {
			size = 10
		}
		glyphs = append(glyphs, Fragment{
			Text: t.S,
			X0:   t.X,
			X1:   t.X + t.W,
			Y0:   height - (t.Y + size),
			Y1:   height - t.Y,
		})
	}

	// baseline rows are tight; visual line grouping happens later with the configured tolerance
	for _, row := range baselineRows(glyphs, 1.0) {
		frags = append(frags, mergeGlyphs(row, d.cfg.WordGap)...)
	}
	d.logger.Debug("pdf fragments",
		zap.String("source_file", d.Name()),
		zap.Int("page", n),
		zap.Int("glyphs", len(glyphs)),
		zap.Int("fragments", len(frags)),
	)
	return frags, nil
}

// baselineRows groups glyphs sharing a baseline (Y1), each row sorted left to right.
func baselineRows(glyphs []Fragment, tolerance float64) [][]Fragment {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := make([]Fragment, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y1 != sorted[j].Y1 {
			return sorted[i].Y1 < sorted[j].Y1
		}
		return sorted[i].X0 < sorted[j].X0
	})
	var rows [][]Fragment
	start := 0
	for i := 1; i <= len(sorted); i++ {
		if i == len(sorted) || math.Abs(sorted[i].Y1-sorted[start].Y1) > tolerance {
			rows = append(rows, sortByX(sorted[start:i]))
			start = i
		}
	}
	return rows
}

// mergeGlyphs joins adjacent glyphs of one row into fragments. A visible gap inside a
// fragment becomes a single space.
func mergeGlyphs(row []Fragment, wordGap float64) []Fragment {
	var out []Fragment
	var cur *Fragment
	for _, g := range row {
		if cur == nil {
			c := g
			cur = &c
			continue
		}
		gap := g.X0 - cur.X1
		if gap > wordGap {
			out = append(out, trimFragment(*cur))
			c := g
			cur = &c
			continue
		}
		spaceGap := 0.2 * (cur.Y1 - cur.Y0)
		if gap > spaceGap && !strings.HasSuffix(cur.Text, " ") && !strings.HasPrefix(g.Text, " ") {
			cur.Text += " "
		}
		cur.Text += g.Text
		cur.X1 = math.Max(cur.X1, g.X1)
		cur.Y0 = math.Min(cur.Y0, g.Y0)
		cur.Y1 = math.Max(cur.Y1, g.Y1)
	}
	if cur != nil {
		out = append(out, trimFragment(*cur))
	}

	kept := out[:0]
	for _, f := range out {
		if f.Text != "" {
			kept = append(kept, f)
		}
	}
	return kept
}

func trimFragment(f Fragment) Fragment {
	f.Text = strings.TrimSpace(f.Text)
	return f
}

// Text rebuilds page n line by line from its fragments, falling back to the
// library's plain text when the page has no positioned text.
func (d *PDF) Text(n int) (text string, err error) {
	frags, err := d.Fragments(n)
	if err != nil {
		return "", err
	}
	if len(frags) > 0 {
		return JoinLines(Lines(frags, d.cfg.LineTolerance)), nil
	}

	defer recoverMalformed(&err)
	p, err := d.page(n)
	if err != nil {
		return "", err
	}
	plain, err := p.GetPlainText(nil)
	if err != nil {
		return "", eris.Wrapf(err, "pdf: plain text page %d", n)
	}
	return plain, nil
}

// Render rasterizes page n with pdftoppm at dpi and decodes the PNG.
func (d *PDF) Render(ctx context.Context, n, dpi int) (image.Image, error) {
	if n < 1 || n > d.PageCount() {
		return nil, eris.Errorf("pdf: page %d out of range (1..%d)", n, d.PageCount())
	}
	if dpi <= 0 {
		dpi = 300
	}
	tmpDir, err := os.MkdirTemp("", "challan-pp-*")
	if err != nil {
		return nil, eris.Wrap(err, "pdf: temp dir")
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			d.logger.Warn("failed to remove temp dir", zap.String("dir", tmpDir), zap.Error(err))
		}
	}()

	prefix := filepath.Join(tmpDir, "page")
	page := fmt.Sprintf("%d", n)
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <tmp/page>
	_, errb, err := d.runner.Run(ctx, d.cfg.Pdftoppm, d.logger,
		"-r", fmt.Sprintf("%d", dpi), "-png", "-f", page, "-l", page, "-singlefile", d.path, prefix)
	if err != nil {
		return nil, eris.Wrapf(err, "pdf: render page %d: %s", n, truncate(string(errb), 512))
	}

	img, err := imaging.Open(prefix + ".png")
	if err != nil {
		return nil, eris.Wrap(err, "pdf: decode rendered page")
	}
	return img, nil
}

// pageHeight reads the MediaBox (inherited from parents when absent) and falls back to
// the highest glyph on the page.
func pageHeight(p pdf.Page, texts []pdf.Text) float64 {
	for v := p.V; !v.IsNull(); v = v.Key("Parent") {
		box := v.Key("MediaBox")
		if box.Kind() == pdf.Array && box.Len() == 4 {
			if h := box.Index(3).Float64() - box.Index(1).Float64(); h > 0 {
				return h
			}
		}
	}
	var maxY float64
	for _, t := range texts {
		maxY = math.Max(maxY, t.Y+t.FontSize)
	}
	return maxY
}

func recoverMalformed(err *error) {
	if r := recover(); r != nil {
		*err = common.NewAppError("UNREADABLE_DOCUMENT", fmt.Sprintf("malformed pdf content: %v", r), common.ErrUnreadableDocument)
	}
}
