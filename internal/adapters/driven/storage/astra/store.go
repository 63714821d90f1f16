// Package astra stores records in a DataStax Astra DB collection through
// the JSON Data API.
package astra

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
	"github.com/custodia-labs/sercha-loader/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultTimeout = 30 * time.Second
	apiPath        = "/api/json/v1"
	maxErrorBody   = 512
)

// Data API error codes with a domain meaning.
const (
	codeCollectionNotExist     = "COLLECTION_NOT_EXIST"
	codeCollectionExistsDiffer = "EXISTING_COLLECTION_DIFFERENT_SETTINGS"
)

// Config holds connection settings for the Data API.
type Config struct {
	// Endpoint is the database API endpoint, e.g. https://<id>-<region>.apps.astra.datastax.com.
	Endpoint string

	// Token is the application token sent in the Token header.
	Token string

	// Namespace is the keyspace holding the collection.
	Namespace string

	// Timeout is the per-request timeout (default: 30s).
	Timeout time.Duration
}

// Store talks to the Astra Data API over HTTP.
type Store struct {
	client  *http.Client
	baseURL string
	token   string

	mu      sync.RWMutex
	schemas map[string]domain.CollectionSchema
}

// vectorOptions is the vector section of a collection definition.
type vectorOptions struct {
	Dimension int    `json:"dimension"`
	Metric    string `json:"metric"`
}

// collectionDesc is one entry of a findCollections response.
type collectionDesc struct {
	Name    string `json:"name"`
	Options struct {
		Vector *vectorOptions `json:"vector,omitempty"`
	} `json:"options"`
}

// apiError is one entry of the errors array.
type apiError struct {
	Message   string `json:"message"`
	ErrorCode string `json:"errorCode"`
}

// apiResponse is the envelope every command returns.
type apiResponse struct {
	Status struct {
		Collections []collectionDesc  `json:"collections"`
		InsertedIDs []json.RawMessage `json:"insertedIds"`
		OK          int               `json:"ok"`
	} `json:"status"`
	Errors []apiError `json:"errors"`
}

// New creates a Data API client. No request is made until the first call.
func New(cfg Config) (*Store, error) {
	var missing []string
	if cfg.Endpoint == "" {
		missing = append(missing, "ASTRA_DB_API_ENDPOINT")
	}
	if cfg.Token == "" {
		missing = append(missing, "ASTRA_DB_APPLICATION_TOKEN")
	}
	if cfg.Namespace == "" {
		missing = append(missing, "ASTRA_DB_NAMESPACE")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: astra requires %s", domain.ErrInvalidConfig, strings.Join(missing, ", "))
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	return &Store{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimSuffix(cfg.Endpoint, "/") + apiPath + "/" + cfg.Namespace,
		token:   cfg.Token,
		schemas: make(map[string]domain.CollectionSchema),
	}, nil
}

// EnsureCollection creates the collection unless it already exists with the
// same vector options.
func (s *Store) EnsureCollection(ctx context.Context, schema domain.CollectionSchema) error {
	if err := schema.Validate(); err != nil {
		return err
	}

	existing, found, err := s.findCollection(ctx, schema.Name)
	if err != nil {
		return err
	}
	if found {
		if !existing.Matches(schema) {
			return &domain.CollectionConfigError{Name: schema.Name, Existing: existing, Requested: schema}
		}
		s.remember(existing)
		return nil
	}

	cmd := map[string]any{
		"createCollection": map[string]any{
			"name": schema.Name,
			"options": map[string]any{
				"vector": vectorOptions{Dimension: schema.Dimension, Metric: string(schema.Metric)},
			},
		},
	}
	if _, err := s.command(ctx, "create collection", s.baseURL, cmd); err != nil {
		// Another writer may have created it between find and create.
		if errors.Is(err, errDifferentSettings) {
			if existing, found, ferr := s.findCollection(ctx, schema.Name); ferr == nil && found {
				return &domain.CollectionConfigError{Name: schema.Name, Existing: existing, Requested: schema}
			}
		}
		return err
	}

	s.remember(schema)
	return nil
}

// Insert writes one document with its vector and provenance.
func (s *Store) Insert(ctx context.Context, collection string, rec domain.Record) (string, error) {
	schema, err := s.schema(ctx, collection)
	if err != nil {
		return "", err
	}
	if err := domain.CheckDimension(collection, schema.Dimension, rec.Vector); err != nil {
		return "", err
	}

	cmd := map[string]any{
		"insertOne": map[string]any{
			"document": map[string]any{
				"text":        rec.Text,
				"source":      rec.SourceURL,
				"chunk_index": rec.ChunkIndex,
				"$vector":     rec.Vector,
			},
		},
	}
	resp, err := s.command(ctx, "insert", s.baseURL+"/"+collection, cmd)
	if err != nil {
		return "", err
	}
	if len(resp.Status.InsertedIDs) == 0 {
		return "", fmt.Errorf("insert: astra returned no inserted id")
	}
	return decodeID(resp.Status.InsertedIDs[0]), nil
}

// Close releases idle connections.
func (s *Store) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// findCollection returns the schema of the named collection if it exists.
func (s *Store) findCollection(ctx context.Context, name string) (domain.CollectionSchema, bool, error) {
	cmd := map[string]any{
		"findCollections": map[string]any{
			"options": map[string]any{"explain": true},
		},
	}
	resp, err := s.command(ctx, "find collections", s.baseURL, cmd)
	if err != nil {
		return domain.CollectionSchema{}, false, err
	}

	for _, c := range resp.Status.Collections {
		if c.Name != name {
			continue
		}
		schema := domain.CollectionSchema{Name: c.Name}
		if v := c.Options.Vector; v != nil {
			schema.Dimension = v.Dimension
			schema.Metric = domain.Metric(v.Metric)
			// Astra omits the metric when it is the server default.
			if schema.Metric == "" {
				schema.Metric = domain.MetricCosine
			}
		}
		return schema, true, nil
	}
	return domain.CollectionSchema{}, false, nil
}

// schema returns the cached schema of a collection, asking the API on first use.
func (s *Store) schema(ctx context.Context, name string) (domain.CollectionSchema, error) {
	s.mu.RLock()
	schema, ok := s.schemas[name]
	s.mu.RUnlock()
	if ok {
		return schema, nil
	}

	schema, found, err := s.findCollection(ctx, name)
	if err != nil {
		return domain.CollectionSchema{}, err
	}
	if !found {
		return domain.CollectionSchema{}, fmt.Errorf("collection %s: %w", name, domain.ErrCollectionNotFound)
	}
	s.remember(schema)
	return schema, nil
}

func (s *Store) remember(schema domain.CollectionSchema) {
	s.mu.Lock()
	s.schemas[schema.Name] = schema
	s.mu.Unlock()
}

// errDifferentSettings marks a createCollection rejected because the
// collection exists with other options.
var errDifferentSettings = errors.New("collection exists with different settings")

// command posts one Data API command and decodes the envelope.
func (s *Store) command(ctx context.Context, op, url string, cmd any) (*apiResponse, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("%s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Token", s.token)

	resp, err := s.client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("%s: %w", op, ctxErr)
		}
		return nil, domain.NewStoreUnavailableError(op, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewStoreUnavailableError(op, fmt.Errorf("read response: %w", err))
	}

	if err := statusError(op, resp.StatusCode, raw); err != nil {
		return nil, err
	}

	var decoded apiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", op, err)
	}
	if len(decoded.Errors) > 0 {
		return nil, commandError(op, decoded.Errors[0])
	}
	return &decoded, nil
}

// statusError maps a non-2xx response to an error.
// Authorisation failures and server errors mean the store is unavailable.
func statusError(op string, status int, body []byte) error {
	if status >= 200 && status < 300 {
		return nil
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody]
	}
	err := fmt.Errorf("astra status %d: %s", status, msg)
	if status == http.StatusUnauthorized || status == http.StatusForbidden || status >= 500 {
		return domain.NewStoreUnavailableError(op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// commandError maps a Data API error entry to an error.
func commandError(op string, e apiError) error {
	err := fmt.Errorf("astra %s: %s", e.ErrorCode, e.Message)
	switch e.ErrorCode {
	case codeCollectionNotExist:
		return fmt.Errorf("%s: %w: %w", op, domain.ErrCollectionNotFound, err)
	case codeCollectionExistsDiffer:
		return fmt.Errorf("%s: %w: %w", op, errDifferentSettings, err)
	case "UNAUTHENTICATED_REQUEST":
		return domain.NewStoreUnavailableError(op, err)
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

// decodeID returns a document ID as text. Astra returns strings by default
// but may return typed IDs such as {"$uuid": "..."}.
func decodeID(raw json.RawMessage) string {
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return id
	}
	var typed map[string]string
	if err := json.Unmarshal(raw, &typed); err == nil {
		for _, v := range typed {
			return v
		}
	}
	return string(raw)
}
