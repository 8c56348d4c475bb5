// Package packet assembles the schema-v2 decision packet from a
// pipeline.Output, provides the fixed escalation-level metadata and
// human-readable explanations, a CSV column superset exporter, and the
// schema/invariant validators that gate emission.
package packet

import (
	"fmt"
	"sort"
	"strings"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
	"github.com/aegiskernel/mdm/internal/pipeline"
)

// legacyTopLevelKey is the forbidden top-level key from the packet's
// predecessor format. It is built from rune codes rather than written as
// a literal so the string never appears verbatim in source.
func legacyTopLevelKey() string {
	return string(rune(97)) + string(rune(109)) + string(rune(105))
}

// LevelInfo is the fixed metadata for one escalation level.
type LevelInfo struct {
	Name       string
	ActionCode string
}

// LevelSpec is the fixed level -> metadata table (spec.md §4.I/L).
var LevelSpec = map[int]LevelInfo{
	0: {Name: "autonomous", ActionCode: "PROCEED"},
	1: {Name: "review", ActionCode: "SOFT_CLAMP_APPLIED"},
	2: {Name: "critical", ActionCode: "HOLD_REVIEW"},
}

// ExplainForLevel renders the fixed human-readable explanation for a
// level/escalation-driver pair, used for the packet's mdm.explain field.
func ExplainForLevel(level int, escalationDriver string) string {
	info, ok := LevelSpec[level]
	if !ok {
		return fmt.Sprintf("unknown escalation level %d", level)
	}
	switch level {
	case 0:
		return "decision proceeds autonomously; no escalation driver active"
	case 1:
		return fmt.Sprintf("decision soft-clamped toward the safe action; escalation driver: %s", escalationDriver)
	case 2:
		return fmt.Sprintf("decision held for human review (%s); escalation driver: %s", info.ActionCode, escalationDriver)
	default:
		return info.Name
	}
}

// UncertaintyView is the mdm.uncertainty bundle: the full confidence
// component breakdown for the finally selected action.
type UncertaintyView struct {
	HI              float64  `json:"hi"`
	DE              float64  `json:"de"`
	DENorm          float64  `json:"de_norm"`
	AS              *float64 `json:"as,omitempty"`
	ASNorm          *float64 `json:"as_norm,omitempty"`
	ASNormMissing   bool     `json:"as_norm_missing"`
	CUS             float64  `json:"cus"`
	Divergence      float64  `json:"divergence"`
	NCandidates     int      `json:"n_candidates"`
	ScoreBest       float64  `json:"score_best"`
	ScoreSecond     *float64 `json:"score_second,omitempty"`
	ActionSpreadRaw *float64 `json:"action_spread_raw,omitempty"`
}

// TemporalDriftView is the mdm.temporal_drift bundle.
type TemporalDriftView struct {
	DeltaCUS           *float64 `json:"delta_cus,omitempty"`
	CUSMean            float64  `json:"cus_mean"`
	Driver             string   `json:"driver"`
	Applied            bool     `json:"applied"`
	HistoryLen         int      `json:"history_len"`
	DriverHistoryAlarm bool     `json:"driver_history_alarm"`
}

// MDM is the nested decision record the schema-v2 envelope carries under
// the "mdm" key (spec.md §3). Its presence, not the legacy flat layout, is
// what ValidateSchema enforces.
type MDM struct {
	Level           int                `json:"level"`
	Reason          string             `json:"reason"`
	SoftClamp       bool               `json:"soft_clamp"`
	Signals         map[string]float64 `json:"signals"`
	Explain         string             `json:"explain"`
	HumanEscalation bool               `json:"human_escalation"`

	Action    mdmtypes.Action `json:"action"`
	RawAction mdmtypes.Action `json:"raw_action"`

	Confidence         float64  `json:"confidence"`
	ConfidenceInternal float64  `json:"confidence_internal"`
	ConfidenceExternal *float64 `json:"confidence_external,omitempty"`
	ConfidenceUsed     float64  `json:"confidence_used"`
	ConfidenceSource   string   `json:"confidence_source"`

	ConstraintMargin float64 `json:"constraint_margin"`

	Uncertainty   UncertaintyView   `json:"uncertainty"`
	TemporalDrift TemporalDriftView `json:"temporal_drift"`

	EscalationDriver  string   `json:"escalation_driver"`
	EscalationDrivers []string `json:"escalation_drivers"`
	SelectionReason   string   `json:"selection_reason"`

	Scores mdmtypes.MoralScores `json:"scores"`
	J      float64              `json:"J"`
	H      float64              `json:"H"`
	WorstJ float64              `json:"worst_J"`
	WorstH float64              `json:"worst_H"`

	StateHash  string `json:"state_hash"`
	ConfigHash string `json:"config_hash"`

	ValidCandidateCount int            `json:"valid_candidate_count"`
	InvalidReasonCounts map[string]int `json:"invalid_reason_counts"`
	MissingFields       []string       `json:"missing_fields"`

	InputQuality        float64 `json:"input_quality"`
	EvidenceConsistency float64 `json:"evidence_consistency"`

	FrontierSize int      `json:"frontier_size"`
	ParetoGap    *float64 `json:"pareto_gap,omitempty"`

	EscalationAction string `json:"escalation_action"`
	FailSafeOverride bool   `json:"fail_safe_override"`
	FailSafeTrigger  string `json:"fail_safe_trigger,omitempty"`
}

// Packet is the schema-v2 decision record: the envelope spec.md §3
// requires (schema_version, run_id, ts, source, entity_id, external,
// input, mdm, review) plus the config profile and full trace needed for
// replay and CSV export.
type Packet struct {
	SchemaVersion string         `json:"schema_version"`
	RunID         string         `json:"run_id"`
	Ts            float64        `json:"ts"`
	Source        string         `json:"source"`
	EntityID      string         `json:"entity_id"`
	External      map[string]any `json:"external"`
	Input         mdmtypes.Event `json:"input"`
	MDM           MDM            `json:"mdm"`
	Review        map[string]any `json:"review"`

	ConfigProfile string         `json:"config_profile"`
	Trace         mdmtypes.Trace `json:"trace"`
}

// Envelope carries the caller-supplied audit context Build threads into
// the packet's outer envelope: the fields the pipeline itself has no way
// to know (who is asking, what entity this decision concerns, what the
// external classifier said).
type Envelope struct {
	RunID    string
	Ts       float64
	Source   string
	EntityID string
	External map[string]any
	Input    mdmtypes.Event
	Review   map[string]any
}

// Build assembles a Packet from a completed pipeline.Output. profile is
// the resolved config profile name, recorded verbatim.
func Build(out *pipeline.Output, profile string, env Envelope) Packet {
	info := LevelSpec[out.Level]

	escalationDriver := "none"
	if len(out.Drivers) > 0 {
		escalationDriver = strings.Join(out.Drivers, "|")
	}

	signals := map[string]float64{
		"cus":               out.Confidence.CUS,
		"cus_mean":          out.Drift.CUSMean,
		"divergence":        out.Confidence.Divergence,
		"constraint_margin": out.Confidence.ConstraintMargin,
		"confidence":        out.EffectiveConfidence,
	}

	mdm := MDM{
		Level:           out.Level,
		Reason:          out.Selection.Reason,
		SoftClamp:       out.Clamp != nil,
		Signals:         signals,
		Explain:         ExplainForLevel(out.Level, escalationDriver),
		HumanEscalation: out.FailSafe.HumanEscalation || out.Confidence.ForceEscalation,

		Action:    out.FinalAction,
		RawAction: out.RawAction,

		Confidence:         out.EffectiveConfidence,
		ConfidenceInternal: out.Confidence.Confidence,
		ConfidenceExternal: out.ExternalConfidence,
		ConfidenceUsed:     out.EffectiveConfidence,
		ConfidenceSource:   out.ConfidenceSource,

		ConstraintMargin: out.Confidence.ConstraintMargin,

		Uncertainty: UncertaintyView{
			HI: out.Confidence.HI, DE: out.Confidence.DE, DENorm: out.Confidence.DENorm,
			AS: out.Confidence.AS, ASNorm: out.Confidence.ASNorm, ASNormMissing: out.Confidence.ASNormMissing,
			CUS: out.Confidence.CUS, Divergence: out.Confidence.Divergence,
			NCandidates: out.Confidence.NCandidates, ScoreBest: out.Confidence.ScoreBest,
			ScoreSecond: out.Confidence.ScoreSecond, ActionSpreadRaw: out.Confidence.ActionSpreadRaw,
		},
		TemporalDrift: TemporalDriftView{
			DeltaCUS: out.Drift.DeltaCUS, CUSMean: out.Drift.CUSMean, Driver: out.Drift.Driver,
			Applied: out.Drift.Applied, HistoryLen: out.Drift.HistoryLen, DriverHistoryAlarm: out.DriverHistoryAlarm,
		},

		EscalationDriver:  escalationDriver,
		EscalationDrivers: append([]string(nil), out.Drivers...),
		SelectionReason:   out.Selection.Reason,

		Scores: out.FinalScores,
		J:      out.FinalScores.J,
		H:      out.FinalScores.H,
		WorstJ: out.WorstJ,
		WorstH: out.WorstH,

		StateHash:  out.StateHash,
		ConfigHash: out.ConfigHash,

		ValidCandidateCount: out.ValidCount,
		InvalidReasonCounts: out.InvalidCount,
		MissingFields:       append([]string(nil), missingFieldsOf(out)...),

		InputQuality:        out.Encoded.InputQuality,
		EvidenceConsistency: out.Encoded.EvidenceConsistency,

		FrontierSize: out.Selection.FrontierSize,
		ParetoGap:    out.Selection.ParetoGap,

		EscalationAction: info.ActionCode,
		FailSafeOverride: out.FailSafe.Override,
		FailSafeTrigger:  out.FailSafe.Trigger,
	}

	return Packet{
		SchemaVersion: "2.0",
		RunID:         env.RunID,
		Ts:            env.Ts,
		Source:        env.Source,
		EntityID:      env.EntityID,
		External:      env.External,
		Input:         env.Input,
		MDM:           mdm,
		Review:        env.Review,

		ConfigProfile: profile,
		Trace:         out.Trace,
	}
}

func missingFieldsOf(out *pipeline.Output) []string {
	var fields []string
	for i, key := range mdmtypes.StateKeys {
		if out.Encoded.MissingMask[i] {
			fields = append(fields, key)
		}
	}
	return fields
}

// CSVColumns is the fixed superset of CSV columns the packet exporter
// emits, a union of every field that has appeared in any schema-v2
// packet so far (spec.md §4.L: exports never drop a column across
// config profiles, only leave it empty).
var CSVColumns = []string{
	"schema_version", "run_id", "ts", "source", "entity_id", "config_profile",
	"mdm_level", "mdm_reason", "mdm_soft_clamp", "mdm_explain", "mdm_human_escalation",
	"state_hash", "config_hash",
	"input_quality", "evidence_consistency", "missing_fields",
	"action_severity", "action_compassion", "action_intervention", "action_delay",
	"score_w", "score_j", "score_h", "score_c", "worst_j", "worst_h",
	"selection_reason", "frontier_size", "pareto_gap",
	"valid_candidate_count", "invalid_reason_counts",
	"fail_safe_override", "fail_safe_trigger",
	"confidence", "confidence_internal", "confidence_used", "confidence_source",
	"cus", "divergence", "hesitation_index", "decision_entropy_norm", "action_spread_norm", "constraint_margin",
	"delta_cus", "cus_mean", "drift_driver", "drift_applied", "driver_history_alarm",
	"escalation_driver", "escalation_drivers",
}

// CSVRow renders p as a row matching CSVColumns, in order. Missing
// optional values render as empty strings rather than "nil" or "<nil>".
func CSVRow(p Packet) []string {
	opt := func(v *float64) string {
		if v == nil {
			return ""
		}
		return fmt.Sprintf("%g", *v)
	}
	reasons := make([]string, 0, len(p.MDM.InvalidReasonCounts))
	for k, v := range p.MDM.InvalidReasonCounts {
		reasons = append(reasons, fmt.Sprintf("%s=%d", k, v))
	}
	sort.Strings(reasons)

	return []string{
		p.SchemaVersion, p.RunID, fmt.Sprintf("%g", p.Ts), p.Source, p.EntityID, p.ConfigProfile,
		fmt.Sprintf("%d", p.MDM.Level), p.MDM.Reason, fmt.Sprintf("%v", p.MDM.SoftClamp), p.MDM.Explain, fmt.Sprintf("%v", p.MDM.HumanEscalation),
		p.MDM.StateHash, p.MDM.ConfigHash,
		fmt.Sprintf("%g", p.MDM.InputQuality), fmt.Sprintf("%g", p.MDM.EvidenceConsistency), joinStrs(p.MDM.MissingFields),
		fmt.Sprintf("%g", p.MDM.Action[mdmtypes.ActSeverity]), fmt.Sprintf("%g", p.MDM.Action[mdmtypes.ActCompassion]),
		fmt.Sprintf("%g", p.MDM.Action[mdmtypes.ActIntervention]), fmt.Sprintf("%g", p.MDM.Action[mdmtypes.ActDelay]),
		fmt.Sprintf("%g", p.MDM.Scores.W), fmt.Sprintf("%g", p.MDM.Scores.J), fmt.Sprintf("%g", p.MDM.Scores.H), fmt.Sprintf("%g", p.MDM.Scores.C),
		fmt.Sprintf("%g", p.MDM.WorstJ), fmt.Sprintf("%g", p.MDM.WorstH),
		p.MDM.SelectionReason, fmt.Sprintf("%d", p.MDM.FrontierSize), opt(p.MDM.ParetoGap),
		fmt.Sprintf("%d", p.MDM.ValidCandidateCount), joinStrs(reasons),
		fmt.Sprintf("%v", p.MDM.FailSafeOverride), p.MDM.FailSafeTrigger,
		fmt.Sprintf("%g", p.MDM.Confidence), fmt.Sprintf("%g", p.MDM.ConfidenceInternal), fmt.Sprintf("%g", p.MDM.ConfidenceUsed), p.MDM.ConfidenceSource,
		fmt.Sprintf("%g", p.MDM.Uncertainty.CUS), fmt.Sprintf("%g", p.MDM.Uncertainty.Divergence),
		fmt.Sprintf("%g", p.MDM.Uncertainty.HI), fmt.Sprintf("%g", p.MDM.Uncertainty.DENorm), opt(p.MDM.Uncertainty.ASNorm), fmt.Sprintf("%g", p.MDM.ConstraintMargin),
		opt(p.MDM.TemporalDrift.DeltaCUS), fmt.Sprintf("%g", p.MDM.TemporalDrift.CUSMean), p.MDM.TemporalDrift.Driver,
		fmt.Sprintf("%v", p.MDM.TemporalDrift.Applied), fmt.Sprintf("%v", p.MDM.TemporalDrift.DriverHistoryAlarm),
		p.MDM.EscalationDriver, joinStrs(p.MDM.EscalationDrivers),
	}
}

func joinStrs(ss []string) string {
	out := ""
	for i, s := range ss {
		if i > 0 {
			out += ";"
		}
		out += s
	}
	return out
}
