package customsearch

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestSearch_ReturnsLinks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/customsearch/v1", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "Joe's Pizza Atlanta, GA official website", q.Get("q"))
		assert.Equal(t, "engine", q.Get("cx"))
		assert.Equal(t, "5", q.Get("num"))
		assert.Equal(t, "secret", q.Get("key"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"link":"https://www.joespizza.com/"},{"link":""},{"link":"https://www.yelp.com/biz/joes-pizza"}]}`))
	}))
	defer srv.Close()

	s, err := New(Config{APIKey: "secret", EngineID: "engine", Endpoint: srv.URL + "/"}, srv.Client(), zaptest.NewLogger(t))
	require.NoError(t, err)

	links, err := s.Search(t.Context(), "Joe's Pizza Atlanta, GA official website", 5)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://www.joespizza.com/", "https://www.yelp.com/biz/joes-pizza"}, links)
}

func TestSearch_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"quota"}}`))
	}))
	defer srv.Close()

	s, err := New(Config{APIKey: "secret", EngineID: "engine", Endpoint: srv.URL + "/"}, srv.Client(), nil)
	require.NoError(t, err)
	_, err = s.Search(t.Context(), "q", 3)
	assert.Error(t, err)
}

func TestSearch_Unconfigured(t *testing.T) {
	s, err := New(Config{APIKey: "only-key"}, nil, nil)
	require.NoError(t, err)
	assert.False(t, s.Configured())
	links, err := s.Search(t.Context(), "q", 3)
	assert.NoError(t, err)
	assert.Nil(t, links)
}
