package tokens

import (
	"strings"
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

// Counter counts tokens with tiktoken encodings, caching codecs by encoding.
// Non-OpenAI models (Kimi, local runtimes) are counted with cl100k_base,
// which is close enough for usage estimates.
type Counter struct {
	mu         sync.RWMutex
	codecCache map[tokenizer.Encoding]tokenizer.Codec
}

// NewCounter creates an empty Counter.
func NewCounter() *Counter {
	return &Counter{codecCache: make(map[tokenizer.Encoding]tokenizer.Codec)}
}

var defaultCounter = NewCounter()

// Count estimates the number of tokens text occupies for model using the
// shared default Counter.
func Count(model, text string) int {
	return defaultCounter.Count(model, text)
}

// Count estimates the number of tokens text occupies for model. If no codec
// can be loaded it falls back to one token per four bytes.
func (c *Counter) Count(model, text string) int {
	if text == "" {
		return 0
	}
	codec, err := c.codec(model)
	if err != nil {
		return approximate(text)
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return approximate(text)
	}
	return len(ids)
}

func (c *Counter) codec(model string) (tokenizer.Codec, error) {
	encoding := encodingFor(model)

	c.mu.RLock()
	if cached, ok := c.codecCache[encoding]; ok {
		c.mu.RUnlock()
		return cached, nil
	}
	c.mu.RUnlock()

	codec, err := tokenizer.Get(encoding)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.codecCache[encoding] = codec
	c.mu.Unlock()
	return codec, nil
}

func encodingFor(model string) tokenizer.Encoding {
	model = strings.ToLower(model)
	switch {
	case strings.HasPrefix(model, "gpt-4o"),
		strings.HasPrefix(model, "gpt-4.1"),
		strings.HasPrefix(model, "gpt-5"),
		strings.HasPrefix(model, "o1"),
		strings.HasPrefix(model, "o3"),
		strings.HasPrefix(model, "o4"):
		return tokenizer.O200kBase
	default:
		return tokenizer.Cl100kBase
	}
}

func approximate(text string) int {
	n := len(text) / 4
	if n == 0 {
		return 1
	}
	return n
}
