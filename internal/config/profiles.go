package config

import "fmt"

// profileOverrides maps a profile name to a function that mutates a
// Defaults()-initialised Config in place. Mirrors the override-dict-over-
// base-config pattern of a calibrated named profile: start from the base
// defaults and adjust only the fields the profile cares about, leaving
// everything else at its reference value.
var profileOverrides = map[string]func(*Config){
	"base": func(cfg *Config) {},

	// lenient_review loosens the fail-safe and constraint box the way a
	// calibrated deployment profile would once a reference domain's score
	// distribution is understood: the default H_CRITICAL/J_MIN pair makes
	// every borderline decision fail-safe in a domain whose typical J sits
	// just under 0.65, so this profile raises H_CRITICAL and lowers J_MIN
	// to let L0/L1 actually occur, and disables the AS-norm soft trigger
	// which otherwise fires on every near-tie between the best and second
	// candidate in a densely-scored action grid.
	"lenient_review": func(cfg *Config) {
		cfg.Profile = "lenient_review"
		cfg.ASSoftThreshold = 0.0
		cfg.ConfidenceLowEscalationLevel = 1
		cfg.CUSMeanThreshold = 0.90
		cfg.HCritical = 0.95
		cfg.JMin = 0.55
		cfg.HMax = 0.55
	},
}

// Profile resolves a named profile into a Config. Unknown names are an
// error — profile selection happens at the boundary and must not silently
// fall back, since the resolved name is recorded in every emitted packet.
func Profile(name string) (Config, error) {
	if name == "" {
		name = "base"
	}
	apply, ok := profileOverrides[name]
	if !ok {
		return Config{}, fmt.Errorf("unknown config profile %q", name)
	}
	cfg := Defaults()
	apply(&cfg)
	return cfg, nil
}

// ProfileNames lists the known profile names, sorted for stable CLI help
// output.
func ProfileNames() []string {
	return []string{"base", "lenient_review"}
}
