package domain

import "fmt"

// Event types the extraction prompt allows. The model answers UNDEFINED when a
// sentence contains no geopolitical event.
const (
	EventTypeAttack           = "ATTACK"
	EventTypeThreat           = "THREAT"
	EventTypeCoerciveAction   = "COERCIVE_ACTION"
	EventTypeDiplomaticAction = "DIPLOMATIC_ACTION"
	EventTypeProtest          = "PROTEST"
	EventTypeCyberOperation   = "CYBER_OPERATION"
	EventTypeTerrorism        = "TERRORISM"
	EventTypeUndefined        = "UNDEFINED"
)

// EventTypes lists the closed classification vocabulary, UNDEFINED excluded.
var EventTypes = []string{
	EventTypeAttack,
	EventTypeThreat,
	EventTypeCoerciveAction,
	EventTypeDiplomaticAction,
	EventTypeProtest,
	EventTypeCyberOperation,
	EventTypeTerrorism,
}

// ActorTargetRow is the unit of work: one sentence of one event.
// (EventID, SentenceIndex) is unique; the sentence text never changes after
// materialization. Extraction fills actor/target/event type, grounding fills
// the state columns and flips StatesResolved.
type ActorTargetRow struct {
	ID              int64
	EventID         string
	SentenceIndex   int
	SentenceText    string
	Actor           *string
	Target          *string
	EventType       *string
	ActorState      *string
	TargetState     *string
	ActorStateISO3  *string
	TargetStateISO3 *string
	StatesResolved  bool
}

// ExtractionComplete reports whether all three extraction fields are present.
func (r ActorTargetRow) ExtractionComplete() bool {
	return r.Actor != nil && r.Target != nil && r.EventType != nil
}

// ProcessingMode selects which rows a pipeline run re-attempts.
type ProcessingMode string

const (
	ModeAll               ProcessingMode = "all"
	ModeLastN             ProcessingMode = "last_n"
	ModeMissingExtraction ProcessingMode = "missing_extraction"
	ModeMissingStates     ProcessingMode = "missing_states"
)

// ParseProcessingMode validates a mode string coming from an external caller.
func ParseProcessingMode(s string) (ProcessingMode, error) {
	switch m := ProcessingMode(s); m {
	case ModeAll, ModeLastN, ModeMissingExtraction, ModeMissingStates:
		return m, nil
	default:
		return "", fmt.Errorf("unknown processing mode %q", s)
	}
}

// State is one entry of the sovereign-state whitelist, read-only reference data.
type State struct {
	Name string
	ISO3 string
	Lat  *float64
	Lon  *float64
}

// GlobeRelation is an aggregated state-to-state edge for the globe view.
type GlobeRelation struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	EventType string `json:"type"`
	Weight    int64  `json:"weight"`
}

// Relation is the ISO3-keyed variant with coordinates for map rendering.
type Relation struct {
	Source    string  `json:"source"`
	Target    string  `json:"target"`
	EventType string  `json:"event_type"`
	Weight    int64   `json:"weight"`
	SourceLat float64 `json:"source_lat"`
	SourceLon float64 `json:"source_lon"`
	TargetLat float64 `json:"target_lat"`
	TargetLon float64 `json:"target_lon"`
}
