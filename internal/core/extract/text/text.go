// Package text extracts challan fields from page text with fixed label patterns.
package text

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/joseph-ayodele/challan-processor/constants"
	"github.com/joseph-ayodele/challan-processor/internal/common"
	"github.com/joseph-ayodele/challan-processor/internal/entity"
)

// Config holds the parsing parameters shared with the validator.
type Config struct {
	DateFormats  []string
	TANPattern   string
	CINMinLength int
}

// Extractor applies the label patterns to raw page text.
type Extractor struct {
	cfg    Config
	tanRe  *regexp.Regexp
	logger *zap.Logger
}

// NewExtractor compiles cfg; zero values fall back to the service defaults.
func NewExtractor(cfg Config, logger *zap.Logger) (*Extractor, error) {
	if len(cfg.DateFormats) == 0 {
		cfg.DateFormats = common.DefaultDateFormats
	}
	if cfg.TANPattern == "" {
		cfg.TANPattern = `^[A-Z]{4}[0-9]{5}[A-Z]$`
	}
	if cfg.CINMinLength <= 0 {
		cfg.CINMinLength = 15
	}
	tanRe, err := regexp.Compile(cfg.TANPattern)
	if err != nil {
		return nil, eris.Wrapf(err, "text: compile tan pattern %q", cfg.TANPattern)
	}
	return &Extractor{cfg: cfg, tanRe: tanRe, logger: common.LoggerOrDefault(logger)}, nil
}

// DateFormats returns the ordered date layouts this extractor parses with.
func (e *Extractor) DateFormats() []string { return e.cfg.DateFormats }

// Extract runs every field pattern over text. It never fails: fields that do not match are
// absent, and the six tax components are present whenever there is text to read. Blank text
// contributes nothing.
func (e *Extractor) Extract(text string) entity.FieldMap {
	fields := entity.FieldMap{}
	if strings.TrimSpace(text) == "" {
		e.logger.Debug("no text to extract")
		return fields
	}
	e.extractFields(text, fields)
	e.extractTaxBreakup(text, fields)
	return fields
}

func (e *Extractor) extractFields(text string, fields entity.FieldMap) {
	for _, p := range fieldPatterns {
		raw, ok := p.find(text)
		if !ok {
			e.logger.Debug("field not found", zap.String("field", p.name))
			continue
		}
		value := e.clean(p.name, raw)
		conf := e.confidence(p.name, value)
		fields[p.name] = entity.NewFieldValue(value, conf, constants.StrategyText, raw)
		e.logger.Debug("field extracted",
			zap.String("field", p.name),
			zap.Any("value", value),
			zap.Float64("confidence", conf),
		)
	}
}

func (e *Extractor) extractTaxBreakup(text string, fields entity.FieldMap) {
	for _, p := range taxPatterns {
		raw, ok := p.find(text)
		if !ok {
			// an absent row means "no charge"
			fields[p.name] = entity.NewFieldValue(0.0, 0.8, constants.StrategyDefault, "")
			continue
		}
		if amount, ok := ParseAmount(raw); ok {
			fields[p.name] = entity.NewFieldValue(amount, 0.95, constants.StrategyText, raw)
		} else {
			fields[p.name] = entity.NewFieldValue(nil, 0.5, constants.StrategyText, raw)
		}
	}
}

func (p fieldPattern) find(text string) (string, bool) {
	m := p.re.FindStringSubmatch(text)
	if m == nil {
		return "", false
	}
	raw := m[1]
	if p.stop != "" {
		if i := strings.Index(strings.ToLower(raw), strings.ToLower(p.stop)); i >= 0 {
			raw = raw[:i]
		}
	}
	return strings.TrimSpace(raw), true
}

var reNatureCode = regexp.MustCompile(`(\d{2,3}[A-Z]?)`)

// clean normalizes a raw capture; nil means the capture could not be used.
func (e *Extractor) clean(field, raw string) any {
	if raw == "" {
		return nil
	}
	switch field {
	case constants.FieldTotalAmount:
		if v, ok := ParseAmount(raw); ok {
			return v
		}
		return nil
	case constants.FieldDateOfDeposit, constants.FieldTenderDate:
		if t, ok := ParseDate(raw, e.cfg.DateFormats); ok {
			return t.Format(entity.DateLayout)
		}
		e.logger.Warn("could not parse date", zap.String("field", field), zap.String("raw", raw))
		return nil
	case constants.FieldTAN, constants.FieldCIN:
		return strings.ToUpper(raw)
	case constants.FieldNatureOfPayment:
		if m := reNatureCode.FindStringSubmatch(raw); m != nil {
			return m[1]
		}
		return raw
	case constants.FieldDeductorName, constants.FieldMajorHead, constants.FieldMinorHead:
		return strings.Join(strings.Fields(raw), " ")
	}
	return raw
}

func (e *Extractor) confidence(field string, value any) float64 {
	if value == nil {
		return 0.3
	}
	switch field {
	case constants.FieldTAN:
		if e.tanRe.MatchString(value.(string)) {
			return 0.98
		}
		return 0.6
	case constants.FieldCIN:
		if len(value.(string)) >= e.cfg.CINMinLength {
			return 0.95
		}
		return 0.7
	case constants.FieldTotalAmount:
		if v, ok := value.(float64); ok && v > 0 {
			return 0.95
		}
		return 0.6
	case constants.FieldDateOfDeposit, constants.FieldTenderDate:
		return 0.95
	}
	return 0.9
}

var (
	reAmountNoise  = regexp.MustCompile(`(?i)₹|rs\.?|inr|,|\s|/-$`)
	reAmountNumber = regexp.MustCompile(`^-?\d+(\.\d+)?$`)
)

// ParseAmount reads a currency amount such as "Rs. 19,395.00" or "₹ 22,500/-".
func ParseAmount(s string) (float64, bool) {
	cleaned := reAmountNoise.ReplaceAllString(strings.TrimSpace(s), "")
	cleaned = strings.TrimLeft(cleaned, ".")
	if !reAmountNumber.MatchString(cleaned) {
		return 0, false
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// ParseDate tries each layout in order and falls back to ISO form.
func ParseDate(s string, layouts []string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	if t, err := time.Parse(entity.DateLayout, s); err == nil {
		return t, true
	}
	return time.Time{}, false
}
