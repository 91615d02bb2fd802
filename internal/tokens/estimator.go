// Package tokens estimates prompt token counts with tiktoken so phase
// dispatches can log how much context they are sending upstream.
package tokens

import (
	"fmt"
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Estimator approximates token counts for a prompt string. Grok models
// are not in tiktoken's registry, so counts are an estimate from the
// nearest BPE encoding, not an exact figure.
type Estimator struct {
	mu    sync.RWMutex
	cache map[tokenizer.Encoding]tokenizer.Codec
}

// NewEstimator creates an Estimator with an empty codec cache.
func NewEstimator() *Estimator {
	return &Estimator{cache: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

// Count returns the estimated token count of text for the given model.
func (e *Estimator) Count(model, text string) (int, error) {
	codec, err := e.codec(encodingFor(model))
	if err != nil {
		return 0, err
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return 0, fmt.Errorf("failed to encode text: %w", err)
	}
	return len(ids), nil
}

func (e *Estimator) codec(enc tokenizer.Encoding) (tokenizer.Codec, error) {
	e.mu.RLock()
	if codec, ok := e.cache[enc]; ok {
		e.mu.RUnlock()
		return codec, nil
	}
	e.mu.RUnlock()

	codec, err := tokenizer.Get(enc)
	if err != nil {
		return nil, fmt.Errorf("failed to get tokenizer encoding: %w", err)
	}

	e.mu.Lock()
	e.cache[enc] = codec
	e.mu.Unlock()
	return codec, nil
}

// encodingFor picks the closest encoding for a model. Current grok
// generations tokenize closest to o200k_base; anything older falls back
// to cl100k_base.
func encodingFor(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "grok-4"), strings.HasPrefix(model, "grok-3"):
		return tokenizer.O200kBase
	case strings.HasPrefix(model, "grok"):
		return tokenizer.Cl100kBase
	default:
		return tokenizer.O200kBase
	}
}
