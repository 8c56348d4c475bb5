package state

import (
	"math"
	"testing"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
)

func fullEvent() mdmtypes.Event {
	return mdmtypes.Event{
		"compassion":     0.5,
		"context":        0.5,
		"empathy":        0.5,
		"harm_sens":      0.5,
		"justice":        0.5,
		"physical":       0.5,
		"responsibility": 0.5,
		"risk":           0.5,
		"social":         0.5,
	}
}

func TestEncode_FullEventHasInputQualityOne(t *testing.T) {
	enc := Encode(fullEvent())
	if enc.InputQuality != 1.0 {
		t.Errorf("expected InputQuality 1.0, got %v", enc.InputQuality)
	}
	for i, missing := range enc.MissingMask {
		if missing {
			t.Errorf("expected no missing fields, index %d marked missing", i)
		}
	}
}

func TestEncode_MissingFieldsTrackedAndDefaultZero(t *testing.T) {
	ev := fullEvent()
	delete(ev, "risk")
	enc := Encode(ev)

	riskIdx := -1
	for i, k := range mdmtypes.StateKeys {
		if k == "risk" {
			riskIdx = i
		}
	}
	if riskIdx < 0 {
		t.Fatal("risk not found in StateKeys")
	}
	if !enc.MissingMask[riskIdx] {
		t.Error("expected risk marked missing")
	}
	if enc.Vector[riskIdx] != 0.0 {
		t.Errorf("expected missing field to default to 0.0, got %v", enc.Vector[riskIdx])
	}

	want := 8.0 / 9.0
	if math.Abs(enc.InputQuality-want) > 1e-9 {
		t.Errorf("expected InputQuality %v, got %v", want, enc.InputQuality)
	}
}

func TestEncode_ValuesClampedToUnitInterval(t *testing.T) {
	ev := fullEvent()
	ev["justice"] = 1.5
	ev["risk"] = -0.5
	enc := Encode(ev)

	for i, k := range mdmtypes.StateKeys {
		if k == "justice" && enc.Vector[i] != 1.0 {
			t.Errorf("expected justice clamped to 1.0, got %v", enc.Vector[i])
		}
		if k == "risk" && enc.Vector[i] != 0.0 {
			t.Errorf("expected risk clamped to 0.0, got %v", enc.Vector[i])
		}
	}
}

func TestEncode_EvidenceConsistencyPerfectAgreement(t *testing.T) {
	ev := mdmtypes.Event{
		"risk": 0.5, "harm_sens": 0.5,
		"justice": 0.5, "responsibility": 0.5,
		"compassion": 0.5, "empathy": 0.5,
	}
	enc := Encode(ev)
	if math.Abs(enc.EvidenceConsistency-1.0) > 1e-9 {
		t.Errorf("expected EvidenceConsistency 1.0 for perfectly agreeing pairs, got %v", enc.EvidenceConsistency)
	}
}

func TestEncode_EvidenceConsistencySkipsIncompletePairs(t *testing.T) {
	ev := mdmtypes.Event{"risk": 0.9, "harm_sens": 0.1}
	enc := Encode(ev)
	want := (1.0 - 0.8) / 3.0
	if math.Abs(enc.EvidenceConsistency-want) > 1e-9 {
		t.Errorf("expected EvidenceConsistency %v, got %v", want, enc.EvidenceConsistency)
	}
}

func TestMissingFields_ListsAbsentKeys(t *testing.T) {
	ev := fullEvent()
	delete(ev, "risk")
	enc := Encode(ev)
	fields := MissingFields(enc)

	if len(fields) != 1 {
		t.Fatalf("expected 1 entry, got %d (%v)", len(fields), fields)
	}
	if fields[0] != "risk" {
		t.Errorf("expected MissingFields to list the missing key risk, got %q", fields[0])
	}
}
