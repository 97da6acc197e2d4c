// Package prompt renders the fixed instructions sent to the model backend.
package prompt

import (
	"fmt"
	"strings"

	"GeoGlobe/internal/domain"
)

const extractionTemplate = `Extract geopolitical actor-target relations from this sentence.

Rules:
- Identify the ACTOR (who is acting)
- Identify the TARGET (who/what is being acted upon)
- Classify the EVENT_TYPE from: %s
- If no clear event, return "UNDEFINED" for event_type
- Output VALID JSON ONLY with keys: actor, target, event

Sentence: %s

Return JSON:
{
  "actor": "...",
  "target": "...",
  "event": "..."
}`

const groundingTemplate = `You resolve actors and targets to sovereign states.

Rules:
- Return the sovereign state name in English.
- If the actor or target is a person, infer the state if unambiguous.
- If no clear sovereign state applies, return null.
- Output VALID JSON ONLY.
- No explanations.

Actor: %s
Target: %s
Event type: %s
Sentence: %s

Return JSON with keys:
actor_state
target_state`

// Extraction builds the actor/target/event-type prompt for one sentence.
func Extraction(sentence string) string {
	return fmt.Sprintf(extractionTemplate, strings.Join(domain.EventTypes, ", "), sentence)
}

// Repair asks the model to fix its own malformed JSON without changing values.
func Repair(rawOutput string) string {
	return "Fix the JSON below. Do NOT change any values. Return ONLY valid JSON.\n\n" + rawOutput
}

// Grounding builds the state-resolution prompt for an extracted tuple.
func Grounding(actor, target, eventType, sentence string) string {
	return fmt.Sprintf(groundingTemplate, actor, target, eventType, sentence)
}
