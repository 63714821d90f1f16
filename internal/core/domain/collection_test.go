package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetric_IsValid(t *testing.T) {
	tests := []struct {
		metric   Metric
		expected bool
	}{
		{MetricDotProduct, true},
		{MetricCosine, true},
		{MetricEuclidean, true},
		{Metric(""), false},
		{Metric("manhattan"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.metric), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.metric.IsValid())
		})
	}
}

func TestMetric_Description(t *testing.T) {
	for _, m := range AllMetrics() {
		assert.NotEqual(t, unknownDescription, m.Description())
	}
	assert.Equal(t, unknownDescription, Metric("bogus").Description())
}

func TestParseMetric(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Metric
		wantErr bool
	}{
		{name: "empty defaults to dot product", input: "", want: MetricDotProduct},
		{name: "cosine", input: "cosine", want: MetricCosine},
		{name: "case and space insensitive", input: " Euclidean ", want: MetricEuclidean},
		{name: "unknown", input: "hamming", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMetric(tt.input)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCollectionSchema_Validate(t *testing.T) {
	tests := []struct {
		name    string
		schema  CollectionSchema
		wantErr bool
	}{
		{name: "valid", schema: CollectionSchema{Name: "f1gpt", Dimension: 768, Metric: MetricDotProduct}},
		{name: "missing name", schema: CollectionSchema{Dimension: 768, Metric: MetricCosine}, wantErr: true},
		{name: "zero dimension", schema: CollectionSchema{Name: "c", Metric: MetricCosine}, wantErr: true},
		{name: "bad metric", schema: CollectionSchema{Name: "c", Dimension: 3, Metric: "x"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.schema.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestCollectionSchema_Matches(t *testing.T) {
	a := CollectionSchema{Name: "a", Dimension: 768, Metric: MetricDotProduct}

	assert.True(t, a.Matches(CollectionSchema{Name: "b", Dimension: 768, Metric: MetricDotProduct}))
	assert.False(t, a.Matches(CollectionSchema{Name: "a", Dimension: 1536, Metric: MetricDotProduct}))
	assert.False(t, a.Matches(CollectionSchema{Name: "a", Dimension: 768, Metric: MetricCosine}))
}
