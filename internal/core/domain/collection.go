package domain

import (
	"fmt"
	"strings"
)

// Metric is the similarity function a collection uses to compare vectors.
type Metric string

// Available similarity metrics.
const (
	// MetricDotProduct compares vectors by their inner product.
	MetricDotProduct Metric = "dot_product"

	// MetricCosine compares vectors by the angle between them.
	MetricCosine Metric = "cosine"

	// MetricEuclidean compares vectors by straight-line distance.
	MetricEuclidean Metric = "euclidean"
)

// DefaultMetric is used when no metric is configured.
const DefaultMetric = MetricDotProduct

// DefaultDimension is the output size of the default embedding model.
const DefaultDimension = 768

// IsValid returns true if the metric is recognised.
func (m Metric) IsValid() bool {
	switch m {
	case MetricDotProduct, MetricCosine, MetricEuclidean:
		return true
	default:
		return false
	}
}

// String returns the string representation.
func (m Metric) String() string {
	return string(m)
}

// Description returns a human-readable description of the metric.
func (m Metric) Description() string {
	switch m {
	case MetricDotProduct:
		return "Dot product"
	case MetricCosine:
		return "Cosine similarity"
	case MetricEuclidean:
		return "Euclidean distance"
	default:
		return unknownDescription
	}
}

// ParseMetric converts a configured value into a Metric.
// An empty value yields DefaultMetric.
func ParseMetric(s string) (Metric, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultMetric, nil
	}
	m := Metric(s)
	if !m.IsValid() {
		return "", fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, s)
	}
	return m, nil
}

// AllMetrics returns all supported metrics.
func AllMetrics() []Metric {
	return []Metric{MetricDotProduct, MetricCosine, MetricEuclidean}
}

// CollectionSchema is the vector configuration declared on a store collection.
type CollectionSchema struct {
	// Name is the collection name.
	Name string

	// Dimension is the length every stored vector must have.
	Dimension int

	// Metric is the similarity function.
	Metric Metric
}

// Validate checks that the schema can be used to create a collection.
func (s CollectionSchema) Validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: collection name is required", ErrInvalidInput)
	}
	if s.Dimension <= 0 {
		return fmt.Errorf("%w: collection dimension must be positive, got %d", ErrInvalidInput, s.Dimension)
	}
	if !s.Metric.IsValid() {
		return fmt.Errorf("%w: unknown metric %q", ErrInvalidInput, s.Metric)
	}
	return nil
}

// Matches returns true if both schemas declare the same vector configuration.
// Names are not compared.
func (s CollectionSchema) Matches(other CollectionSchema) bool {
	return s.Dimension == other.Dimension && s.Metric == other.Metric
}

// String returns a compact description such as "768/dot_product".
func (s CollectionSchema) String() string {
	return fmt.Sprintf("%d/%s", s.Dimension, s.Metric)
}
