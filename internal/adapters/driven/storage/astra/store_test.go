package astra

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-loader/internal/core/domain"
)

const (
	testToken     = "AstraCS:test"
	testNamespace = "default_keyspace"
)

// fakeAstra emulates the Data API commands used by the store.
type fakeAstra struct {
	t *testing.T

	mu          sync.Mutex
	collections map[string]vectorOptions
	documents   map[string][]map[string]any
	creates     int
	finds       int
	status      int // forced HTTP status when non-zero
}

func newFakeAstra(t *testing.T) (*fakeAstra, *httptest.Server) {
	t.Helper()
	f := &fakeAstra{
		t:           t,
		collections: make(map[string]vectorOptions),
		documents:   make(map[string][]map[string]any),
	}
	server := httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(server.Close)
	return f, server
}

func (f *fakeAstra) handle(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_, _ = w.Write([]byte(`{"errors":[{"message":"forced"}]}`))
		return
	}
	if r.Header.Get("Token") != testToken {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	prefix := apiPath + "/" + testNamespace
	if !strings.HasPrefix(r.URL.Path, prefix) {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	collection := strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, prefix), "/")

	var cmd map[string]json.RawMessage
	if !assert.NoError(f.t, json.NewDecoder(r.Body).Decode(&cmd)) {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	switch {
	case cmd["findCollections"] != nil:
		f.finds++
		var list []map[string]any
		for name, opts := range f.collections {
			list = append(list, map[string]any{
				"name":    name,
				"options": map[string]any{"vector": opts},
			})
		}
		writeJSON(w, map[string]any{"status": map[string]any{"collections": list}})

	case cmd["createCollection"] != nil:
		f.creates++
		var body struct {
			Name    string `json:"name"`
			Options struct {
				Vector vectorOptions `json:"vector"`
			} `json:"options"`
		}
		assert.NoError(f.t, json.Unmarshal(cmd["createCollection"], &body))
		if existing, ok := f.collections[body.Name]; ok && existing != body.Options.Vector {
			writeJSON(w, map[string]any{"errors": []map[string]any{{
				"errorCode": codeCollectionExistsDiffer,
				"message":   "Collection already exists",
			}}})
			return
		}
		f.collections[body.Name] = body.Options.Vector
		writeJSON(w, map[string]any{"status": map[string]any{"ok": 1}})

	case cmd["insertOne"] != nil:
		if _, ok := f.collections[collection]; !ok {
			writeJSON(w, map[string]any{"errors": []map[string]any{{
				"errorCode": codeCollectionNotExist,
				"message":   "Collection does not exist",
			}}})
			return
		}
		var body struct {
			Document map[string]any `json:"document"`
		}
		assert.NoError(f.t, json.Unmarshal(cmd["insertOne"], &body))
		f.documents[collection] = append(f.documents[collection], body.Document)
		id := fmt.Sprintf("doc-%d", len(f.documents[collection]))
		writeJSON(w, map[string]any{"status": map[string]any{"insertedIds": []string{id}}})

	default:
		w.WriteHeader(http.StatusBadRequest)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newTestStore(t *testing.T, server *httptest.Server) *Store {
	t.Helper()
	store, err := New(Config{Endpoint: server.URL + "/", Token: testToken, Namespace: testNamespace})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSchema() domain.CollectionSchema {
	return domain.CollectionSchema{Name: "f1gpt", Dimension: 3, Metric: domain.MetricDotProduct}
}

func TestNew_RequiresConfig(t *testing.T) {
	_, err := New(Config{Endpoint: "https://db.example.com"})
	require.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "ASTRA_DB_APPLICATION_TOKEN")
	assert.Contains(t, err.Error(), "ASTRA_DB_NAMESPACE")
	assert.NotContains(t, err.Error(), "ASTRA_DB_API_ENDPOINT")
}

func TestEnsureCollection_CreatesOnce(t *testing.T) {
	fake, server := newFakeAstra(t)
	store := newTestStore(t, server)
	ctx := context.Background()

	require.NoError(t, store.EnsureCollection(ctx, testSchema()))
	require.NoError(t, store.EnsureCollection(ctx, testSchema()))

	assert.Equal(t, 1, fake.creates)
	assert.Equal(t, vectorOptions{Dimension: 3, Metric: "dot_product"}, fake.collections["f1gpt"])
}

func TestEnsureCollection_Conflict(t *testing.T) {
	fake, server := newFakeAstra(t)
	fake.collections["f1gpt"] = vectorOptions{Dimension: 768, Metric: "cosine"}
	store := newTestStore(t, server)

	err := store.EnsureCollection(context.Background(), testSchema())
	var cfgErr *domain.CollectionConfigError
	require.ErrorAs(t, err, &cfgErr)
	assert.Equal(t, 768, cfgErr.Existing.Dimension)
	assert.Equal(t, domain.MetricCosine, cfgErr.Existing.Metric)
	assert.Equal(t, testSchema(), cfgErr.Requested)
	assert.Equal(t, 0, fake.creates)
	assert.Equal(t, vectorOptions{Dimension: 768, Metric: "cosine"}, fake.collections["f1gpt"])
}

func TestEnsureCollection_Unauthorised(t *testing.T) {
	_, server := newFakeAstra(t)
	store, err := New(Config{Endpoint: server.URL, Token: "wrong", Namespace: testNamespace})
	require.NoError(t, err)

	err = store.EnsureCollection(context.Background(), testSchema())
	var unavailable *domain.StoreUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, "find collections", unavailable.Op)
}

func TestInsert_WritesProvenance(t *testing.T) {
	fake, server := newFakeAstra(t)
	store := newTestStore(t, server)
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, testSchema()))

	id, err := store.Insert(ctx, "f1gpt", domain.Record{
		Text:       "Oscar Piastri won in Bahrain",
		Vector:     []float32{0.5, 0.25, -1},
		SourceURL:  "https://en.wikipedia.org/wiki/2025_Formula_One_World_Championship",
		ChunkIndex: 4,
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", id)

	docs := fake.documents["f1gpt"]
	require.Len(t, docs, 1)
	assert.Equal(t, "Oscar Piastri won in Bahrain", docs[0]["text"])
	assert.Equal(t, "https://en.wikipedia.org/wiki/2025_Formula_One_World_Championship", docs[0]["source"])
	assert.Equal(t, float64(4), docs[0]["chunk_index"])
	assert.Equal(t, []any{0.5, 0.25, -1.0}, docs[0]["$vector"])
}

func TestInsert_DimensionMismatch(t *testing.T) {
	fake, server := newFakeAstra(t)
	store := newTestStore(t, server)
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, testSchema()))

	_, err := store.Insert(ctx, "f1gpt", domain.Record{Text: "x", Vector: make([]float32, 768)})
	var dimErr *domain.DimensionMismatchError
	require.ErrorAs(t, err, &dimErr)
	assert.Equal(t, 3, dimErr.Want)
	assert.Equal(t, 768, dimErr.Got)
	assert.Empty(t, fake.documents["f1gpt"])
}

func TestInsert_LooksUpSchemaWhenNotEnsured(t *testing.T) {
	fake, server := newFakeAstra(t)
	fake.collections["f1gpt"] = vectorOptions{Dimension: 3, Metric: "dot_product"}
	store := newTestStore(t, server)

	_, err := store.Insert(context.Background(), "f1gpt", domain.Record{Text: "x", Vector: []float32{1, 2, 3}})
	require.NoError(t, err)
	_, err = store.Insert(context.Background(), "f1gpt", domain.Record{Text: "y", Vector: []float32{1, 2, 3}})
	require.NoError(t, err)

	assert.Equal(t, 1, fake.finds)
	assert.Len(t, fake.documents["f1gpt"], 2)
}

func TestInsert_UnknownCollection(t *testing.T) {
	_, server := newFakeAstra(t)
	store := newTestStore(t, server)

	_, err := store.Insert(context.Background(), "missing", domain.Record{Vector: []float32{1, 2, 3}})
	assert.ErrorIs(t, err, domain.ErrCollectionNotFound)
}

func TestInsert_ServerUnavailable(t *testing.T) {
	tests := []struct {
		name            string
		status          int
		wantUnavailable bool
	}{
		{name: "unauthorised", status: http.StatusUnauthorized, wantUnavailable: true},
		{name: "forbidden", status: http.StatusForbidden, wantUnavailable: true},
		{name: "bad gateway", status: http.StatusBadGateway, wantUnavailable: true},
		{name: "bad request", status: http.StatusBadRequest, wantUnavailable: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake, server := newFakeAstra(t)
			store := newTestStore(t, server)
			ctx := context.Background()
			require.NoError(t, store.EnsureCollection(ctx, testSchema()))

			fake.mu.Lock()
			fake.status = tt.status
			fake.mu.Unlock()

			_, err := store.Insert(ctx, "f1gpt", domain.Record{Text: "x", Vector: []float32{1, 2, 3}})
			require.Error(t, err)
			assert.Equal(t, tt.wantUnavailable, errors.Is(err, domain.ErrStoreUnavailable))
		})
	}
}

func TestInsert_TransportFailure(t *testing.T) {
	_, server := newFakeAstra(t)
	store := newTestStore(t, server)
	ctx := context.Background()
	require.NoError(t, store.EnsureCollection(ctx, testSchema()))

	server.Close()

	_, err := store.Insert(ctx, "f1gpt", domain.Record{Text: "x", Vector: []float32{1, 2, 3}})
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestDecodeID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{raw: `"abc"`, want: "abc"},
		{raw: `{"$uuid":"0191-aa"}`, want: "0191-aa"},
		{raw: `42`, want: "42"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, decodeID(json.RawMessage(tt.raw)))
		})
	}
}
