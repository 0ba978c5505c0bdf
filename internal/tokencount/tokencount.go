// Package tokencount estimates prompt token counts for logging, the same
// cl100k_base tiktoken encoding internal/handlers/proxy.go's
// countInputTokens used to report input-token counts in its proxy logs.
// No provider call depends on the estimate; it is advisory, surfaced at
// Debug level so a caller can see roughly what a request will cost before
// the response comes back with the provider's own authoritative Usage.
package tokencount

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	once sync.Once
	enc  *tiktoken.Tiktoken
	encErr error
)

func encoding() (*tiktoken.Tiktoken, error) {
	once.Do(func() {
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})
	return enc, encErr
}

// Estimate returns the cl100k_base token count of text, or 0 if the
// encoding failed to load (never fatal to the caller; it's a log hint).
func Estimate(text string) int {
	tke, err := encoding()
	if err != nil {
		return 0
	}
	return len(tke.Encode(text, nil, nil))
}
