package gemini

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "API key is required")
}

func TestNewEmbeddingService_Defaults(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "test-key"})
	require.NoError(t, err)
	defer svc.Close()

	assert.Equal(t, DefaultModel, svc.ModelName())
	assert.Equal(t, DefaultDimensions, svc.Dimensions())
}

func TestNewEmbeddingService_Dimensions(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		want    int
		wantErr bool
	}{
		{name: "matches model", cfg: Config{APIKey: "test-key", Dimensions: 768}, want: 768},
		{name: "mismatch for default model", cfg: Config{APIKey: "test-key", Dimensions: 512}, wantErr: true},
		{name: "mismatch for embedding-001", cfg: Config{APIKey: "test-key", Model: "embedding-001", Dimensions: 1536}, wantErr: true},
		{name: "unknown model keeps configured size", cfg: Config{APIKey: "test-key", Model: "gemini-embedding-exp", Dimensions: 3072}, want: 3072},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := NewEmbeddingService(context.Background(), tt.cfg)
			if tt.wantErr {
				require.ErrorIs(t, err, domain.ErrInvalidConfig)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			defer svc.Close()
			assert.Equal(t, tt.want, svc.Dimensions())
		})
	}
}

func TestEmbed_EmptyText(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "test-key"})
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Embed(context.Background(), "")
	var embedErr *domain.EmbeddingError
	require.ErrorAs(t, err, &embedErr)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestEmbedBatch_Empty(t *testing.T) {
	svc, err := NewEmbeddingService(context.Background(), Config{APIKey: "test-key"})
	require.NoError(t, err)
	defer svc.Close()

	out, err := svc.EmbedBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}

func TestClassify(t *testing.T) {
	quota := fmt.Errorf("wrapped: %w", &googleapi.Error{Code: 429, Message: "Resource has been exhausted"})
	assert.ErrorIs(t, classify(quota), domain.ErrRateLimited)

	other := &googleapi.Error{Code: 400, Message: "bad request"}
	assert.NotErrorIs(t, classify(other), domain.ErrRateLimited)

	plain := errors.New("dial tcp: timeout")
	assert.ErrorIs(t, classify(plain), plain)
}
