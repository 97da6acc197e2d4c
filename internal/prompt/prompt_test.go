package prompt

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"GeoGlobe/internal/domain"
)

func TestExtractionEmbedsSentenceAndVocabulary(t *testing.T) {
	t.Parallel()

	p := Extraction("Country A shelled Country B.")
	assert.Contains(t, p, "Sentence: Country A shelled Country B.")
	for _, et := range domain.EventTypes {
		assert.Contains(t, p, et)
	}
	assert.Contains(t, p, `"UNDEFINED"`)
}

func TestRepairEmbedsRawOutput(t *testing.T) {
	t.Parallel()

	p := Repair(`{"actor": broken`)
	assert.Contains(t, p, `{"actor": broken`)
	assert.Contains(t, p, "Do NOT change any values")
}

func TestGroundingEmbedsTuple(t *testing.T) {
	t.Parallel()

	p := Grounding("rebels", "the capital", "ATTACK", "Rebels stormed the capital.")
	assert.Contains(t, p, "Actor: rebels")
	assert.Contains(t, p, "Target: the capital")
	assert.Contains(t, p, "Event type: ATTACK")
	assert.Contains(t, p, "Sentence: Rebels stormed the capital.")
}
