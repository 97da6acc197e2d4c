package usecase

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"GeoGlobe/internal/llmjson"
	"GeoGlobe/internal/metrics"
	"GeoGlobe/internal/ports"
	"GeoGlobe/internal/prompt"
)

const (
	groundingCacheSize  = 4096
	groundingRetryDelay = 200 * time.Millisecond
)

// StatePair is the grounding result for one extracted tuple. A nil field
// means no whitelisted sovereign state could be resolved.
type StatePair struct {
	ActorState  *string
	TargetState *string
}

// Grounder resolves extracted actor/target strings to whitelisted sovereign
// states. It lives for one pipeline run: the memoization cache starts empty
// and is dropped with the run, so repeated identical tuples cost one backend
// call per run at most.
type Grounder struct {
	client     ports.ModelClient
	states     map[string]struct{}
	maxRetries int
	retryDelay time.Duration
	cache      *lru.Cache[string, StatePair]
	logger     *slog.Logger
}

// NewGrounder builds a run-scoped grounder over the given whitelist.
func NewGrounder(client ports.ModelClient, states map[string]struct{}, maxRetries int, logger *slog.Logger) *Grounder {
	cache, _ := lru.New[string, StatePair](groundingCacheSize)
	return &Grounder{
		client:     client,
		states:     states,
		maxRetries: maxRetries,
		retryDelay: groundingRetryDelay,
		cache:      cache,
		logger:     logger,
	}
}

// Resolve grounds one tuple. The backend is called up to maxRetries+1 times,
// stopping at the first parseable JSON object; exhausted retries degrade to
// absent fields, never an error. The only error returned is a cancelled
// context.
func (g *Grounder) Resolve(ctx context.Context, actor, target, eventType, sentence string) (StatePair, error) {
	key := cacheKey(actor, target, eventType, sentence)
	if pair, ok := g.cache.Get(key); ok {
		metrics.CacheRequests.WithLabelValues("hit").Inc()
		return pair, nil
	}
	metrics.CacheRequests.WithLabelValues("miss").Inc()

	p := prompt.Grounding(actor, target, eventType, sentence)

	var obj map[string]any
	for attempt := 0; attempt <= g.maxRetries; attempt++ {
		out, err := g.client.Run(ctx, p)
		metrics.BackendCalls.WithLabelValues("ground", outcome(err)).Inc()
		if err == nil {
			if obj = llmjson.ExtractObject(out); obj != nil {
				break
			}
			g.debug("grounding output not parseable", "attempt", attempt)
		} else {
			g.debug("grounding backend call failed", "attempt", attempt, "error", err)
		}

		if attempt < g.maxRetries {
			select {
			case <-time.After(g.retryDelay):
			case <-ctx.Done():
				return StatePair{}, ctx.Err()
			}
		}
	}

	var actorState, targetState *string
	if obj != nil {
		actorState = normalizeStateName(llmjson.NormalizeField(obj["actor_state"]))
		targetState = normalizeStateName(llmjson.NormalizeField(obj["target_state"]))
	}

	// Whitelist enforcement: anything outside the reference set is a
	// hallucination and must not reach storage.
	if actorState != nil {
		if _, ok := g.states[*actorState]; !ok {
			metrics.WhitelistRejections.WithLabelValues("actor_state").Inc()
			actorState = nil
		}
	}
	if targetState != nil {
		if _, ok := g.states[*targetState]; !ok {
			metrics.WhitelistRejections.WithLabelValues("target_state").Inc()
			targetState = nil
		}
	}

	pair := StatePair{ActorState: actorState, TargetState: targetState}
	g.cache.Add(key, pair)
	return pair, nil
}

func (g *Grounder) debug(msg string, args ...any) {
	if g.logger != nil {
		g.logger.Debug(msg, args...)
	}
}

// normalizeStateName maps the literal strings "null"/"none" to absent.
func normalizeStateName(s *string) *string {
	if s == nil {
		return nil
	}
	switch strings.ToLower(*s) {
	case "null", "none", "":
		return nil
	}
	return s
}

func cacheKey(actor, target, eventType, sentence string) string {
	sum := sha256.Sum256([]byte(actor + "||" + target + "||" + eventType + "||" + sentence))
	return hex.EncodeToString(sum[:])
}
