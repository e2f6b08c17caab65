// Package tesseract implements ocr.Recognizer on top of the gosseract client.
package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"
	"github.com/rotisserie/eris"

	"github.com/joseph-ayodele/challan-processor/internal/core/ocr"
)

// Config selects language data and page segmentation.
type Config struct {
	Language       string // default "eng"
	PSM            int    // default 6, a single uniform block of text
	TessdataPrefix string // optional directory holding *.traineddata
}

// Recognizer runs one gosseract client per call.
type Recognizer struct {
	cfg           Config
	clientFactory func() *gosseract.Client
}

// New returns a tesseract-backed recognizer.
func New(cfg Config) *Recognizer {
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = int(gosseract.PSM_SINGLE_BLOCK)
	}
	return &Recognizer{cfg: cfg, clientFactory: gosseract.NewClient}
}

// Recognize encodes img as PNG and returns the recognized text with word boxes.
func (r *Recognizer) Recognize(ctx context.Context, img image.Image) (ocr.Recognition, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Recognition{}, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return ocr.Recognition{}, eris.Wrap(err, "tesseract: encode image")
	}

	c := r.clientFactory()
	defer c.Close()

	if r.cfg.TessdataPrefix != "" {
		if err := c.SetTessdataPrefix(r.cfg.TessdataPrefix); err != nil {
			return ocr.Recognition{}, eris.Wrap(err, "tesseract: set tessdata prefix")
		}
	}
	if err := c.SetLanguage(r.cfg.Language); err != nil {
		return ocr.Recognition{}, eris.Wrap(err, "tesseract: set language")
	}
	if err := c.SetPageSegMode(gosseract.PageSegMode(r.cfg.PSM)); err != nil {
		return ocr.Recognition{}, eris.Wrap(err, "tesseract: set page segmentation")
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return ocr.Recognition{}, eris.Wrap(err, "tesseract: set image")
	}

	text, err := c.Text()
	if err != nil {
		return ocr.Recognition{}, eris.Wrap(err, "tesseract: recognize text")
	}

	// word boxes are optional; text alone is still usable
	var words []ocr.Word
	if boxes, err := c.GetBoundingBoxes(gosseract.RIL_WORD); err == nil {
		words = make([]ocr.Word, 0, len(boxes))
		for _, b := range boxes {
			if strings.TrimSpace(b.Word) == "" {
				continue
			}
			words = append(words, ocr.Word{Text: b.Word, Bounds: b.Box, Confidence: b.Confidence / 100.0})
		}
	}
	return ocr.Recognition{Text: text, Words: words}, nil
}
