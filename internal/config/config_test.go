package config

import "testing"

func TestDefaults_PassesValidation(t *testing.T) {
	cfg := Defaults()
	if err := Validate(&cfg); err != nil {
		t.Errorf("expected defaults to be valid, got %v", err)
	}
}

func TestProfile_UnknownNameIsError(t *testing.T) {
	if _, err := Profile("nonexistent"); err == nil {
		t.Error("expected an error for an unknown profile name")
	}
}

func TestProfile_EmptyNameResolvesToBase(t *testing.T) {
	cfg, err := Profile("")
	if err != nil {
		t.Fatalf("Profile(\"\"): %v", err)
	}
	if cfg.Profile != "base" {
		t.Errorf("expected profile base, got %q", cfg.Profile)
	}
}

func TestProfile_LenientReviewOverridesOnlyNamedFields(t *testing.T) {
	cfg, err := Profile("lenient_review")
	if err != nil {
		t.Fatalf("Profile(\"lenient_review\"): %v", err)
	}
	base := Defaults()

	if cfg.HCritical != 0.95 {
		t.Errorf("expected h_critical override to 0.95, got %v", cfg.HCritical)
	}
	if cfg.JMin != 0.55 {
		t.Errorf("expected j_min override to 0.55, got %v", cfg.JMin)
	}
	if cfg.CoarseStep != base.CoarseStep {
		t.Errorf("expected coarse_step left at base default, got %v vs %v", cfg.CoarseStep, base.CoarseStep)
	}
	if err := Validate(&cfg); err != nil {
		t.Errorf("expected lenient_review profile to remain valid, got %v", err)
	}
}

func TestValidate_AccumulatesMultipleErrors(t *testing.T) {
	cfg := Defaults()
	cfg.JMin = 1.5
	cfg.CMin = 0.9
	cfg.CMax = 0.1

	err := Validate(&cfg)
	if err == nil {
		t.Fatal("expected validation error")
	}
}

func TestValidate_RejectsNonPositiveBudgetRate(t *testing.T) {
	cfg := Defaults()
	cfg.Budget.Rate = 0
	if err := Validate(&cfg); err == nil {
		t.Error("expected error for non-positive budget rate")
	}
}

func TestProfileNames_IncludesBaseAndLenientReview(t *testing.T) {
	names := ProfileNames()
	found := map[string]bool{}
	for _, n := range names {
		found[n] = true
	}
	if !found["base"] || !found["lenient_review"] {
		t.Errorf("expected ProfileNames to include base and lenient_review, got %v", names)
	}
}
