// Package config provides configuration loading, validation, and named
// profile resolution for the moral decision pipeline.
//
// Configuration file: YAML, path supplied by the caller (no fixed default
// location — unlike a long-running daemon this pipeline is most often
// embedded, so the loader never assumes /etc).
//
// Validation:
//   - All thresholds are enforced to lie in [0,1] where the domain calls
//     for a probability-like quantity.
//   - Invalid config on Load: caller gets a descriptive error and must not
//     proceed (spec.md §7: schema/invariant failures are the only fatal
//     class; an invalid config is treated the same way).
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

// Version, GitCommit, BuildTime can be set at build time via -ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

// Config is the root configuration structure for the moral decision
// pipeline. All fields have defaults; see Defaults() for values.
type Config struct {
	SchemaVersion string `yaml:"schema_version"`

	// Profile is the name of the resolved profile, recorded verbatim in
	// every emitted packet's config_profile field.
	Profile string `yaml:"profile"`

	// Constraint box (component D).
	JMin float64 `yaml:"j_min"`
	HMax float64 `yaml:"h_max"`
	CMin float64 `yaml:"c_min"`
	CMax float64 `yaml:"c_max"`

	// Fail-safe thresholds (component F).
	JCritical float64 `yaml:"j_critical"`
	HCritical float64 `yaml:"h_critical"`

	// Selector objective weights.
	Weights mdmtypes.Weights `yaml:"weights"`

	// Confidence & uncertainty (component G).
	BaseConfidence       float64 `yaml:"base_confidence"`
	MarginFactor         float64 `yaml:"margin_factor"`
	ConfidenceGradient   float64 `yaml:"confidence_gradient"`
	CUSWeightHI          float64 `yaml:"cus_weight_hi"`
	CUSWeightDENorm      float64 `yaml:"cus_weight_de_norm"`
	CUSWeightASComplement float64 `yaml:"cus_weight_as_complement"`
	ASSoftThreshold      float64 `yaml:"as_soft_threshold"`

	// Escalation thresholds (component I).
	ConfidenceLowEscalationLevel int     `yaml:"confidence_low_escalation_level"`
	ConfidenceEscalationForce    float64 `yaml:"confidence_escalation_force"`

	// Temporal drift (component H).
	CUSMeanThreshold   float64 `yaml:"cus_mean_threshold"`
	CUSMeanWindow      int     `yaml:"cus_mean_window"`
	DeltaCUSThreshold  float64 `yaml:"delta_cus_threshold"`
	DriftMinHistory    int     `yaml:"drift_min_history"`

	// Soft-clamp (component J).
	SoftClampAlpha float64 `yaml:"soft_clamp_alpha"`
	SoftClampBeta  float64 `yaml:"soft_clamp_beta"`
	SoftClampGamma float64 `yaml:"soft_clamp_gamma"`

	// SafeAction is substituted on fail-safe override and as the
	// no-valid-candidates fallback.
	SafeAction mdmtypes.Action `yaml:"safe_action"`

	// Action generation (component B).
	CoarseStep     float64 `yaml:"coarse_step"`
	RefineStep     float64 `yaml:"refine_step"`
	RefineTopN     int     `yaml:"refine_top_n"`

	// Budget configures the token bucket rate limiter.
	Budget BudgetConfig `yaml:"budget"`

	// Storage configures the BoltDB audit ledger mirror.
	Storage StorageConfig `yaml:"storage"`

	// Observability configures metrics and logging.
	Observability ObservabilityConfig `yaml:"observability"`

	// Review configures the human-review Unix socket.
	Review ReviewConfig `yaml:"review"`
}

// BudgetConfig holds token-bucket parameters (spec.md §6).
type BudgetConfig struct {
	Rate      float64 `yaml:"rate"`
	Capacity  int     `yaml:"capacity"`
	StartFull bool    `yaml:"start_full"`
}

// StorageConfig holds BoltDB audit ledger parameters.
type StorageConfig struct {
	DBPath        string `yaml:"db_path"`
	RetentionDays int    `yaml:"retention_days"`
}

// ObservabilityConfig holds metrics and logging parameters.
type ObservabilityConfig struct {
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
}

// ReviewConfig holds the human-review Unix socket parameters.
type ReviewConfig struct {
	SocketPath string `yaml:"socket_path"`
	Enabled    bool   `yaml:"enabled"`
}

// Defaults returns a Config populated with the reference pipeline's default
// values (the "base" profile).
func Defaults() Config {
	return Config{
		SchemaVersion: "2.0",
		Profile:       "base",

		JMin: 0.65,
		HMax: 0.65,
		CMin: 0.30,
		CMax: 1.00,

		JCritical: 0.30,
		HCritical: 0.60,

		Weights: mdmtypes.DefaultWeights(),

		BaseConfidence:        0.5,
		MarginFactor:          0.5,
		ConfidenceGradient:    2.0,
		CUSWeightHI:           0.34,
		CUSWeightDENorm:       0.33,
		CUSWeightASComplement: 0.33,
		ASSoftThreshold:       0.05,

		ConfidenceLowEscalationLevel: 2,
		ConfidenceEscalationForce:    0.35,

		CUSMeanThreshold:  0.80,
		CUSMeanWindow:     10,
		DeltaCUSThreshold: 0.25,
		DriftMinHistory:   5,

		SoftClampAlpha: 0.5,
		SoftClampBeta:  0.3,
		SoftClampGamma: 0.2,

		SafeAction: mdmtypes.Action{0.0, 0.5, 0.0, 1.0},

		CoarseStep: 0.25,
		RefineStep: 0.25,
		RefineTopN: 5,

		Budget: BudgetConfig{Rate: 1.0, Capacity: 100, StartFull: false},

		Storage: StorageConfig{DBPath: "./mdm.db", RetentionDays: 30},

		Observability: ObservabilityConfig{
			MetricsAddr: "127.0.0.1:9091",
			LogLevel:    "info",
			LogFormat:   "json",
		},

		Review: ReviewConfig{
			SocketPath: "/run/mdmengine/review.sock",
			Enabled:    true,
		},
	}
}

// Load reads and validates a config file from the given path, merged over
// the named profile's defaults (profile resolution happens before YAML
// overlay, so a config file may itself still override profile fields).
func Load(path string, profile string) (*Config, error) {
	cfg, err := Profile(profile)
	if err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse %q: %w", path, err)
		}
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("config.Load: validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate checks all config fields for correctness, accumulating every
// violation found rather than failing on the first.
func Validate(cfg *Config) error {
	var errs []string

	check01 := func(name string, v float64) {
		if v < 0.0 || v > 1.0 {
			errs = append(errs, fmt.Sprintf("%s must be in [0.0, 1.0], got %f", name, v))
		}
	}

	check01("j_min", cfg.JMin)
	check01("h_max", cfg.HMax)
	check01("c_min", cfg.CMin)
	check01("c_max", cfg.CMax)
	check01("j_critical", cfg.JCritical)
	check01("h_critical", cfg.HCritical)
	check01("as_soft_threshold", cfg.ASSoftThreshold)
	check01("cus_mean_threshold", cfg.CUSMeanThreshold)
	check01("soft_clamp_alpha", cfg.SoftClampAlpha)
	check01("soft_clamp_beta", cfg.SoftClampBeta)
	check01("soft_clamp_gamma", cfg.SoftClampGamma)

	if cfg.CMin > cfg.CMax {
		errs = append(errs, fmt.Sprintf("c_min (%f) must be <= c_max (%f)", cfg.CMin, cfg.CMax))
	}
	if cfg.CUSMeanWindow < 1 {
		errs = append(errs, fmt.Sprintf("cus_mean_window must be >= 1, got %d", cfg.CUSMeanWindow))
	}
	if cfg.DriftMinHistory < 1 {
		errs = append(errs, fmt.Sprintf("drift_min_history must be >= 1, got %d", cfg.DriftMinHistory))
	}
	if cfg.CoarseStep <= 0 || cfg.CoarseStep > 1 {
		errs = append(errs, fmt.Sprintf("coarse_step must be in (0.0, 1.0], got %f", cfg.CoarseStep))
	}
	if cfg.RefineTopN < 1 {
		errs = append(errs, fmt.Sprintf("refine_top_n must be >= 1, got %d", cfg.RefineTopN))
	}
	if cfg.Budget.Capacity < 1 {
		errs = append(errs, fmt.Sprintf("budget.capacity must be >= 1, got %d", cfg.Budget.Capacity))
	}
	if cfg.Budget.Rate <= 0 {
		errs = append(errs, fmt.Sprintf("budget.rate must be > 0, got %f", cfg.Budget.Rate))
	}
	for _, v := range cfg.SafeAction {
		if v < 0.0 || v > 1.0 {
			errs = append(errs, fmt.Sprintf("safe_action components must be in [0.0, 1.0], got %f", v))
			break
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation errors:\n  - %s", joinStrings(errs, "\n  - "))
	}
	return nil
}

func joinStrings(ss []string, sep string) string {
	if len(ss) == 0 {
		return ""
	}
	result := ss[0]
	for _, s := range ss[1:] {
		result += sep + s
	}
	return result
}
