package vectorstore

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQdrantConfigValidate(t *testing.T) {
	assert.ErrorIs(t, QdrantConfig{}.Validate(), ErrInvalidConfig)
	assert.NoError(t, QdrantConfig{URL: "http://localhost:6333"}.Validate())
}

func TestQdrantOpenValidation(t *testing.T) {
	provider, err := NewQdrantProvider(QdrantConfig{URL: "http://localhost:6333"}, nil)
	require.NoError(t, err)

	_, err = provider.Open(context.Background(), "", stubEmbedder{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = provider.Open(context.Background(), "docs_main", nil)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestQdrantCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/collections/docs_main", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{"points_count": 42},
		})
	}))
	t.Cleanup(server.Close)

	provider, err := NewQdrantProvider(QdrantConfig{URL: server.URL}, nil)
	require.NoError(t, err)

	accessor, err := provider.Open(context.Background(), "docs_main", stubEmbedder{})
	require.NoError(t, err)

	count, err := accessor.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 42, count)
}

func TestQdrantCountMissingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	t.Cleanup(server.Close)

	provider, err := NewQdrantProvider(QdrantConfig{URL: server.URL}, nil)
	require.NoError(t, err)

	accessor, err := provider.Open(context.Background(), "missing_main", stubEmbedder{})
	require.NoError(t, err)

	_, err = accessor.Count(context.Background())
	assert.ErrorIs(t, err, ErrCollectionNotFound)
}

func TestQdrantCountSendsAPIKey(t *testing.T) {
	var gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("api-key")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"result": map[string]interface{}{"points_count": 1},
		})
	}))
	t.Cleanup(server.Close)

	provider, err := NewQdrantProvider(QdrantConfig{URL: server.URL, APIKey: "secret"}, nil)
	require.NoError(t, err)

	accessor, err := provider.Open(context.Background(), "docs_main", stubEmbedder{})
	require.NoError(t, err)

	_, err = accessor.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "secret", gotKey)
}
