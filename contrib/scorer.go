// Package contrib hosts pluggable moral-scorer implementations that can
// replace the reference evaluator at runtime without the core importing
// any specific domain adapter. Mirrors the reference engine's private
// model hook (import-if-present, fall back silently, fail-closed on
// error) as a registry of named, swappable strategies.
package contrib

import (
	"fmt"
	"sync"

	"github.com/aegiskernel/mdm/internal/mdmtypes"
	"github.com/aegiskernel/mdm/internal/scoring"
)

// MoralScorer is the pluggable strategy interface. Implementations must be
// deterministic and side-effect-free, matching the reference evaluator's
// contract (spec.md §4.C).
type MoralScorer interface {
	Name() string
	Score(x scoring.StateVector, a mdmtypes.Action) (mdmtypes.MoralScores, error)
}

var (
	registryMu sync.RWMutex
	registry   = map[string]MoralScorer{}
)

// RegisterScorer adds a named scorer to the registry. Panics on a
// duplicate name — a programming error caught at init time, not a runtime
// condition.
func RegisterScorer(s MoralScorer) {
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[s.Name()]; exists {
		panic(fmt.Sprintf("contrib: duplicate scorer registration %q", s.Name()))
	}
	registry[s.Name()] = s
}

// GetScorer returns the named scorer, or an error if it is not registered.
func GetScorer(name string) (MoralScorer, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	s, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("contrib: no scorer registered for %q", name)
	}
	return s, nil
}

// ListScorers returns the names of all registered scorers.
func ListScorers() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	return names
}

// Hook adapts a named registered scorer into a scoring.Hook, returning nil
// (no hook) if name is empty or unregistered — absence is not an error at
// this layer, matching the reference engine's ImportError-returns-None
// behaviour.
func Hook(name string) scoring.Hook {
	if name == "" {
		return nil
	}
	s, err := GetScorer(name)
	if err != nil {
		return nil
	}
	return func(x scoring.StateVector, a mdmtypes.Action) (mdmtypes.MoralScores, error) {
		return s.Score(x, a)
	}
}

// GenericReferenceScorer is the domain-free reference implementation
// (spec.md §9 Open Question, resolved in SPEC_FULL.md §8): a simple
// weighted-signal scorer re-expressed over this domain's state/action
// vocabulary rather than trading-feature vocabulary, registered under the
// name "generic_reference".
type GenericReferenceScorer struct{}

func (GenericReferenceScorer) Name() string { return "generic_reference" }

func (GenericReferenceScorer) Score(x scoring.StateVector, a mdmtypes.Action) (mdmtypes.MoralScores, error) {
	return scoring.Evaluate(x, a), nil
}

func init() {
	RegisterScorer(GenericReferenceScorer{})
}
