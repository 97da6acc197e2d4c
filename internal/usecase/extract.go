package usecase

import (
	"context"

	"GeoGlobe/internal/domain"
	"GeoGlobe/internal/llmjson"
	"GeoGlobe/internal/metrics"
	"GeoGlobe/internal/ports"
	"GeoGlobe/internal/prompt"
)

// Extraction is the actor/target/event triple produced for one sentence.
type Extraction struct {
	Actor     *string
	Target    *string
	EventType *string
}

// ExtractRelation runs the extraction stage for a single sentence: prompt,
// one backend call, parse; on malformed output exactly one repair call.
// A nil result with nil error means the sentence contains no event (the
// model answered UNDEFINED or stayed unparseable after repair), which is a
// legitimate terminal outcome. Backend failures propagate to the caller.
func ExtractRelation(ctx context.Context, client ports.ModelClient, sentence string) (*Extraction, error) {
	out, err := client.Run(ctx, prompt.Extraction(sentence))
	metrics.BackendCalls.WithLabelValues("extract", outcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	obj := llmjson.ExtractObject(out)
	if obj == nil {
		metrics.RepairAttempts.Inc()
		out, err = client.Run(ctx, prompt.Repair(out))
		metrics.BackendCalls.WithLabelValues("extract_repair", outcome(err)).Inc()
		if err != nil {
			return nil, err
		}
		obj = llmjson.ExtractObject(out)
		if obj == nil {
			return nil, nil
		}
	}

	eventType := llmjson.NormalizeField(obj["event"])
	if eventType == nil || *eventType == domain.EventTypeUndefined {
		return nil, nil
	}

	return &Extraction{
		Actor:     llmjson.NormalizeField(obj["actor"]),
		Target:    llmjson.NormalizeField(obj["target"]),
		EventType: eventType,
	}, nil
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
