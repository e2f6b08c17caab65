package document

import (
	"context"
	"image"

	"github.com/rotisserie/eris"
)

// Page is the in-memory content of one page.
type Page struct {
	Text      string
	Fragments []Fragment
	Image     image.Image
}

// Static is an in-memory Document, used for raster inputs and in tests.
type Static struct {
	DocName string
	Pages   []Page
}

// FromImage wraps a single raster image as a one-page document with no embedded text.
func FromImage(name string, img image.Image) *Static {
	return &Static{DocName: name, Pages: []Page{{Image: img}}}
}

func (s *Static) Name() string { return s.DocName }

func (s *Static) PageCount() int { return len(s.Pages) }

func (s *Static) get(n int) (Page, error) {
	if n < 1 || n > len(s.Pages) {
		return Page{}, eris.Errorf("static: page %d out of range (1..%d)", n, len(s.Pages))
	}
	return s.Pages[n-1], nil
}

func (s *Static) Text(n int) (string, error) {
	p, err := s.get(n)
	if err != nil {
		return "", err
	}
	if p.Text == "" && len(p.Fragments) > 0 {
		return JoinLines(Lines(p.Fragments, 5)), nil
	}
	return p.Text, nil
}

func (s *Static) Fragments(n int) ([]Fragment, error) {
	p, err := s.get(n)
	if err != nil {
		return nil, err
	}
	return p.Fragments, nil
}

func (s *Static) Render(_ context.Context, n, _ int) (image.Image, error) {
	p, err := s.get(n)
	if err != nil {
		return nil, err
	}
	if p.Image == nil {
		return nil, eris.Errorf("static: page %d has no image", n)
	}
	return p.Image, nil
}
