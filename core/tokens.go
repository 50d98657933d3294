package core

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

// TokenCounter counts tokens for conversation-buffer trimming and for
// reporting script-output size in kernel diagnostics.
type TokenCounter interface {
	Count(text string) int
	CountTurns(turns []Turn) int
}

// tiktokenCounter wraps a cached cl100k_base BPE encoder. The encoding is
// loaded once and reused; tiktoken-go's encoder is safe for concurrent use.
type tiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

var (
	defaultCounter     TokenCounter
	defaultCounterOnce sync.Once
	defaultCounterErr  error
)

// DefaultTokenCounter returns a process-wide cl100k_base token counter,
// falling back to a conservative character-based estimate if the encoding
// tables fail to load (e.g. no network access to fetch the BPE ranks on
// first use in an offline environment).
func DefaultTokenCounter() TokenCounter {
	defaultCounterOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			defaultCounterErr = err
			defaultCounter = estimateCounter{}
			return
		}
		defaultCounter = &tiktokenCounter{enc: enc}
	})
	return defaultCounter
}

func (c *tiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

func (c *tiktokenCounter) CountTurns(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += 4 + c.Count(t.Content)
	}
	return total
}

// estimateCounter is the offline fallback: ~4 chars/token for latin text,
// ~1.5 chars/token for CJK, matching the rough ratios tiktoken itself
// produces for those scripts.
type estimateCounter struct{}

func (estimateCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	var cjk, other int
	for _, r := range text {
		if r >= 0x4E00 && r <= 0x9FA5 {
			cjk++
		} else {
			other++
		}
	}
	n := int(float64(cjk)/1.5 + float64(other)/4.0)
	if n < 1 {
		return 1
	}
	return n
}

func (c estimateCounter) CountTurns(turns []Turn) int {
	total := 0
	for _, t := range turns {
		total += 4 + c.Count(t.Content)
	}
	return total
}
