package common

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Extraction ExtractionConfig `yaml:"extraction" mapstructure:"extraction"`
	Validation ValidationConfig `yaml:"validation" mapstructure:"validation"`
	Pipeline   PipelineConfig   `yaml:"pipeline" mapstructure:"pipeline"`
	Store      StoreConfig      `yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `yaml:"server" mapstructure:"server"`
	Tools      ToolsConfig      `yaml:"tools" mapstructure:"tools"`
	Log        LogConfig        `yaml:"log" mapstructure:"log"`
}

// ExtractionConfig tunes the three extraction strategies and the scoring of their output.
type ExtractionConfig struct {
	MinFieldConfidence float64 `yaml:"min_field_confidence" mapstructure:"min_field_confidence"`
	MinRowConfidence   float64 `yaml:"min_row_confidence" mapstructure:"min_row_confidence"`

	Weights     map[string]float64 `yaml:"weights" mapstructure:"weights"`
	WeightOther float64            `yaml:"weight_other" mapstructure:"weight_other"`

	CompletenessThreshold float64 `yaml:"completeness_threshold" mapstructure:"completeness_threshold"`

	OCRDPI      int    `yaml:"ocr_dpi" mapstructure:"ocr_dpi"`
	OCRLanguage string `yaml:"ocr_language" mapstructure:"ocr_language"`
	OCRPSM      int    `yaml:"ocr_psm" mapstructure:"ocr_psm"`

	DenoiseStrength    int `yaml:"denoise_strength" mapstructure:"denoise_strength"`
	ThresholdBlockSize int `yaml:"threshold_block_size" mapstructure:"threshold_block_size"`
	ThresholdC         int `yaml:"threshold_c" mapstructure:"threshold_c"`

	LineTolerance          float64 `yaml:"line_tolerance" mapstructure:"line_tolerance"`
	WordGap                float64 `yaml:"word_gap" mapstructure:"word_gap"`
	LabelValueMaxDistanceX float64 `yaml:"label_value_max_distance_x" mapstructure:"label_value_max_distance_x"`
	LabelValueMaxDistanceY float64 `yaml:"label_value_max_distance_y" mapstructure:"label_value_max_distance_y"`
}

// ValidationConfig holds the business rule parameters.
type ValidationConfig struct {
	SumCheckTolerance float64  `yaml:"sum_check_tolerance" mapstructure:"sum_check_tolerance"`
	DateFormats       []string `yaml:"date_formats" mapstructure:"date_formats"`
	TANPattern        string   `yaml:"tan_pattern" mapstructure:"tan_pattern"`
	CINMinLength      int      `yaml:"cin_min_length" mapstructure:"cin_min_length"`
	OldDateDays       int      `yaml:"old_date_days" mapstructure:"old_date_days"`
}

// PipelineConfig configures batch and queue execution.
type PipelineConfig struct {
	ProcessTimeout time.Duration `yaml:"process_timeout" mapstructure:"process_timeout"`
	Workers        int           `yaml:"workers" mapstructure:"workers"`
	QueueSize      int           `yaml:"queue_size" mapstructure:"queue_size"`
}

// StoreConfig configures the sqlite record store.
type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver"`
	DSN    string `yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the inbox daemon.
type ServerConfig struct {
	GRPCAddr string        `yaml:"grpc_addr" mapstructure:"grpc_addr"`
	InboxDir string        `yaml:"inbox_dir" mapstructure:"inbox_dir"`
	Debounce time.Duration `yaml:"debounce" mapstructure:"debounce"`
}

// ToolsConfig points at external binaries and data.
type ToolsConfig struct {
	Pdftoppm    string `yaml:"pdftoppm" mapstructure:"pdftoppm"`
	TessdataDir string `yaml:"tessdata_dir" mapstructure:"tessdata_dir"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// DefaultDateFormats are tried in order when parsing challan dates.
var DefaultDateFormats = []string{
	"02-Jan-2006",
	"02/01/2006",
	"2006-01-02",
	"02-01-2006",
	"02 Jan 2006",
	"02 January 2006",
}

// DefaultWeights is the row-confidence weight table.
var DefaultWeights = map[string]float64{
	"tan":               3.0,
	"cin":               3.0,
	"total_amount":      3.0,
	"date_of_deposit":   2.0,
	"challan_no":        2.0,
	"deductor_name":     1.5,
	"nature_of_payment": 1.5,
	"bsr_code":          1.0,
}

// LoadConfig reads configuration from an optional config.yaml and CHALLAN_* environment variables.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	v.SetEnvPrefix("CHALLAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration with every default applied and nothing read from disk or env.
func DefaultConfig() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("extraction.min_field_confidence", 0.7)
	v.SetDefault("extraction.min_row_confidence", 0.85)
	v.SetDefault("extraction.weights", DefaultWeights)
	v.SetDefault("extraction.weight_other", 1.0)
	v.SetDefault("extraction.completeness_threshold", 0.7)
	v.SetDefault("extraction.ocr_dpi", 300)
	v.SetDefault("extraction.ocr_language", "eng")
	v.SetDefault("extraction.ocr_psm", 6)
	v.SetDefault("extraction.denoise_strength", 10)
	v.SetDefault("extraction.threshold_block_size", 11)
	v.SetDefault("extraction.threshold_c", 2)
	v.SetDefault("extraction.line_tolerance", 5.0)
	v.SetDefault("extraction.word_gap", 3.0)
	v.SetDefault("extraction.label_value_max_distance_x", 300.0)
	v.SetDefault("extraction.label_value_max_distance_y", 50.0)

	v.SetDefault("validation.sum_check_tolerance", 1.0)
	v.SetDefault("validation.date_formats", DefaultDateFormats)
	v.SetDefault("validation.tan_pattern", `^[A-Z]{4}[0-9]{5}[A-Z]$`)
	v.SetDefault("validation.cin_min_length", 15)
	v.SetDefault("validation.old_date_days", 3650)

	v.SetDefault("pipeline.process_timeout", 3*time.Minute)
	v.SetDefault("pipeline.workers", 4)
	v.SetDefault("pipeline.queue_size", 256)

	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.dsn", "challans.db")

	v.SetDefault("server.grpc_addr", ":8080")
	v.SetDefault("server.inbox_dir", "./inbox")
	v.SetDefault("server.debounce", 500*time.Millisecond)

	v.SetDefault("tools.pdftoppm", "pdftoppm")
	v.SetDefault("tools.tessdata_dir", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	v := NewValidator()
	v.Field("validation.tan_pattern", c.Validation.TANPattern, Required, Regexp)
	v.Field("validation.date_formats", c.Validation.DateFormats, NonEmptyList)
	v.Field("validation.sum_check_tolerance", c.Validation.SumCheckTolerance, NonNegative)
	v.Field("extraction.completeness_threshold", c.Extraction.CompletenessThreshold, Fraction)
	v.Field("extraction.ocr_dpi", float64(c.Extraction.OCRDPI), Positive)
	v.Field("extraction.threshold_block_size", c.Extraction.ThresholdBlockSize, OddAtLeastThree)
	v.Field("store.driver", c.Store.Driver, Required, OneOf("sqlite", "memory"))
	if v.HasErrors() {
		return NewAppError("CONFIG_ERROR", v.ErrorMessage(), ErrInvalidInput)
	}
	return nil
}
