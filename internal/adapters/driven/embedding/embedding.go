// Package embedding holds helpers shared by the embedding adapters.
package embedding

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

// maxErrorBody is the number of response bytes quoted in errors.
const maxErrorBody = 512

// CheckInput rejects text that cannot be embedded.
func CheckInput(text string) error {
	if strings.TrimSpace(text) == "" {
		return domain.NewEmbeddingError(text, fmt.Errorf("%w: empty text", domain.ErrInvalidInput))
	}
	return nil
}

// StatusError converts a failed HTTP response into an error.
// 429 responses wrap domain.ErrRateLimited.
func StatusError(provider string, status int, body []byte) error {
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	if status == http.StatusTooManyRequests {
		return fmt.Errorf("%s: %w (status %d): %s", provider, domain.ErrRateLimited, status, msg)
	}
	return fmt.Errorf("%s error (status %d): %s", provider, status, msg)
}

// Float32s converts a JSON-decoded vector to float32.
func Float32s(values []float64) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
