package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "pagescribe/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// RenderConfig holds settings for the page-rendering stage.
type RenderConfig struct {
	// PopplerPath is the directory containing the pdftocairo binary.
	// Empty means look it up on PATH.
	PopplerPath string `json:"poppler_path,omitempty" yaml:"poppler_path,omitempty"`

	// DPI is the rasterization resolution (default 120).
	DPI int `json:"dpi" yaml:"dpi"`

	// ExtraArgs are additional arguments passed to pdftocairo
	// (default ["-antialias", "subpixel"]).
	ExtraArgs []string `json:"extra_args,omitempty" yaml:"extra_args,omitempty"`

	// Debug copies each rendered page PNG next to the input PDF as
	// page_N.png for later inspection.
	Debug bool `json:"debug" yaml:"debug"`
}

// Tier is one step in the model escalation order: a model identifier and
// the number of attempts it is granted before the pipeline escalates to
// the next tier.
type Tier struct {
	// Model is the model identifier sent to the transcription API
	// (e.g. "claude-sonnet-4-5-20250929").
	Model string `json:"model" yaml:"model"`

	// MaxAttempts is the attempt budget for this tier (default 3).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}

// ConvertConfig holds settings for the page conversion stage.
type ConvertConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// APIKey is the authentication key for the transcription API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// Tiers is the model escalation order. The first tier is attempted
	// up to its budget, then the next, until a page converts or every
	// tier is exhausted.
	Tiers []Tier `json:"tiers" yaml:"tiers"`

	// OutputDir is where converted Markdown files are written. Empty
	// means next to the source PDF.
	OutputDir string `json:"output_dir,omitempty" yaml:"output_dir,omitempty"`

	// Concurrency is the number of pages converted in parallel (default 4).
	Concurrency int `json:"concurrency" yaml:"concurrency"`

	// BackoffBase is the base duration for the rate-limit backoff wait
	// (default 2s). Doubles per consecutive rate-limited attempt.
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base"`

	// BackoffCap bounds the rate-limit backoff wait (default 30s).
	BackoffCap time.Duration `json:"backoff_cap" yaml:"backoff_cap"`
}

// NormalizeConfig holds settings for the post-processing stage.
type NormalizeConfig struct {
	// RelevelHeadings enables numeric-heading re-leveling: a heading's
	// hash count is recomputed from its dotted section number, and
	// hash-prefixed lines that are not numeric headings are demoted to
	// plain text. Suited to numbered technical manuals; off by default
	// because it flattens prose-style headings.
	RelevelHeadings bool `json:"relevel_headings" yaml:"relevel_headings"`
}

// ReportConfig holds settings for the run ledger and the report command.
type ReportConfig struct {
	// LogDir is the directory holding the run ledger database
	// (default ".pagescribe").
	LogDir string `json:"log_dir" yaml:"log_dir"`

	// MaxRuns is the default maximum number of runs listed (default 20).
	MaxRuns int `json:"max_runs" yaml:"max_runs"`
}

// PipelineConfig groups all stage configurations.
type PipelineConfig struct {
	Render    RenderConfig    `json:"render" yaml:"render"`
	Convert   ConvertConfig   `json:"convert" yaml:"convert"`
	Normalize NormalizeConfig `json:"normalize" yaml:"normalize"`
	Report    ReportConfig    `json:"report" yaml:"report"`
}

// Default tier models. Sonnet handles dense technical pages well; Haiku
// is the cheaper fallback once the primary budget is spent.
const (
	DefaultModel         = "claude-sonnet-4-5-20250929"
	DefaultFallbackModel = "claude-haiku-4-5-20251001"

	DefaultMaxAttempts = 3
	DefaultConcurrency = 4
	DefaultDPI         = 120
)

// DefaultTiers returns the standard two-tier escalation order.
func DefaultTiers() []Tier {
	return []Tier{
		{Model: DefaultModel, MaxAttempts: DefaultMaxAttempts},
		{Model: DefaultFallbackModel, MaxAttempts: DefaultMaxAttempts},
	}
}

// ValidModels lists the model identifiers accepted by the convert command.
// Keeping the list explicit catches typos before a run burns API budget on
// a misnamed model.
var ValidModels = []string{
	"claude-opus-4-1-20250805",
	"claude-sonnet-4-20250514",
	"claude-sonnet-4-5-20250929",
	"claude-haiku-4-5-20251001",
	"claude-3-7-sonnet-20250219",
	"claude-3-5-haiku-20241022",
}

// IsValidModel reports whether name appears in ValidModels.
func IsValidModel(name string) bool {
	for _, m := range ValidModels {
		if m == name {
			return true
		}
	}
	return false
}
