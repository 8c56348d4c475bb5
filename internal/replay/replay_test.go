package replay

import (
	"testing"

	"github.com/aegiskernel/mdm/internal/config"
	"github.com/aegiskernel/mdm/internal/mdmtypes"
	"github.com/aegiskernel/mdm/internal/packet"
	"github.com/aegiskernel/mdm/internal/pipeline"
)

func testPipeline() *pipeline.Pipeline {
	cfg := config.Defaults()
	return pipeline.New(&cfg, nil, nil)
}

func sampleEvent() mdmtypes.Event {
	return mdmtypes.Event{
		"compassion":     0.7,
		"context":        0.6,
		"empathy":        0.7,
		"harm_sens":      0.2,
		"justice":        0.8,
		"physical":       0.3,
		"responsibility": 0.8,
		"risk":           0.2,
		"social":         0.6,
	}
}

func buildPacket(t *testing.T, pl *pipeline.Pipeline, ev mdmtypes.Event) packet.Packet {
	t.Helper()
	out, err := pl.Decide(ev, &mdmtypes.Context{})
	if err != nil {
		t.Fatalf("Decide: %v", err)
	}
	return packet.Build(out, "base", packet.Envelope{
		RunID: "run-test", Source: "test", EntityID: "entity-test",
		External: map[string]any{}, Input: ev, Review: map[string]any{},
	})
}

func TestExtractRawState_ReturnsRecordedEvent(t *testing.T) {
	pl := testPipeline()
	ev := sampleEvent()
	p := buildPacket(t, pl, ev)

	got, err := ExtractRawState(p.Trace)
	if err != nil {
		t.Fatalf("ExtractRawState: %v", err)
	}
	for k, v := range ev {
		if got[k] != v {
			t.Errorf("field %q: expected %v, got %v", k, v, got[k])
		}
	}
}

func TestExtractRawState_DecodesJSONRoundTrippedStep(t *testing.T) {
	pl := testPipeline()
	ev := sampleEvent()
	p := buildPacket(t, pl, ev)

	jsonLike := mdmtypes.Trace{Steps: make([]mdmtypes.TraceStep, len(p.Trace.Steps))}
	copy(jsonLike.Steps, p.Trace.Steps)
	for i, step := range jsonLike.Steps {
		if step.Step != 0 || step.EventType != "raw_state" {
			continue
		}
		asAny := map[string]any{}
		for k, v := range ev {
			asAny[k] = v
		}
		jsonLike.Steps[i] = mdmtypes.TraceStep{
			Step: step.Step, EventType: step.EventType,
			Data: map[string]any{"event": asAny},
		}
	}

	got, err := ExtractRawState(jsonLike)
	if err != nil {
		t.Fatalf("ExtractRawState: %v", err)
	}
	for k, v := range ev {
		if got[k] != v {
			t.Errorf("field %q: expected %v, got %v", k, v, got[k])
		}
	}
}

func TestExtractRawState_MissingStepReturnsError(t *testing.T) {
	empty := mdmtypes.Trace{Steps: nil}
	if _, err := ExtractRawState(empty); err == nil {
		t.Error("expected error when trace carries no raw_state step")
	}
}

func TestExtractRawState_NonNumericFieldReturnsError(t *testing.T) {
	tr := mdmtypes.Trace{Steps: []mdmtypes.TraceStep{
		{Step: 0, EventType: "raw_state", Data: map[string]any{
			"event": map[string]any{"risk": "not-a-number"},
		}},
	}}
	if _, err := ExtractRawState(tr); err == nil {
		t.Error("expected error on non-numeric raw_state field")
	}
}

func TestReplay_IdenticalEventMatchesAtEveryFidelity(t *testing.T) {
	pl := testPipeline()
	original := buildPacket(t, pl, sampleEvent())

	for _, mode := range []Mode{ModeAction, ModeHash, ModeEthics} {
		result, err := Replay(pl, original, mode)
		if err != nil {
			t.Fatalf("Replay mode %v: %v", mode, err)
		}
		if !result.Matched {
			t.Errorf("mode %v: expected match replaying the same trace, got %q", mode, result.Detail)
		}
	}
}

func TestRunSensitivityCheck_CountsBothDirectionsPerKey(t *testing.T) {
	pl := testPipeline()
	ev := sampleEvent()

	result, err := RunSensitivityCheck(pl, ev, 0.001)
	if err != nil {
		t.Fatalf("RunSensitivityCheck: %v", err)
	}
	if result.Perturbations != 18 {
		t.Errorf("expected 18 perturbations (9 keys x 2 directions), got %d", result.Perturbations)
	}
}

func TestRunSensitivityCheck_PerturbationsAreBounded(t *testing.T) {
	pl := testPipeline()
	ev := sampleEvent()

	result, err := RunSensitivityCheck(pl, ev, 0.5)
	if err != nil {
		t.Fatalf("RunSensitivityCheck: %v", err)
	}
	if result.FlipCount > result.Perturbations || result.LevelFlipCount > result.Perturbations {
		t.Error("expected flip counts to never exceed the number of perturbations")
	}
}
