package yelp

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"leadscout/internal/adapters/apiclient"
	"leadscout/internal/domain"
)

func bizJSON(i int) string {
	return fmt.Sprintf(`{"name":"Biz %d","phone":"+14045550%03d","location":{"address1":"%d Main St","city":"Atlanta"},"categories":[{"title":"Pizza"}],"url":"https://www.yelp.com/biz/%d"}`, i, i, i, i)
}

func TestSearch_PaginatesWithinWindow(t *testing.T) {
	var offsets []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v3/businesses/search", r.URL.Path)
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		q := r.URL.Query()
		assert.Equal(t, "40000", q.Get("radius"))
		assert.Equal(t, "pizza", q.Get("term"))
		offsets = append(offsets, q.Get("offset"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		limit, _ := strconv.Atoi(q.Get("limit"))
		items := make([]string, 0, limit)
		for i := offset; i < offset+limit && i < 75; i++ {
			items = append(items, bizJSON(i))
		}
		fmt.Fprintf(w, `{"total":75,"businesses":[%s]}`, strings.Join(items, ","))
	}))
	defer srv.Close()

	d := New(Config{APIKey: "key", BaseURL: srv.URL}, srv.Client(), zaptest.NewLogger(t))
	got, err := d.Search(t.Context(), domain.SearchQuery{Location: "Atlanta, GA", BusinessType: "pizza", RadiusKm: 80})
	require.NoError(t, err)
	assert.Len(t, got, 75)
	assert.Equal(t, []string{"0", "50"}, offsets)

	assert.Equal(t, "Biz 0", got[0].Name)
	assert.Equal(t, "0 Main St, Atlanta", got[0].Address)
	assert.Equal(t, "(404) 555-0000", got[0].Phone)
	assert.Equal(t, "Pizza", got[0].BusinessType)
	assert.Empty(t, got[0].KnownWebsite)
	assert.Equal(t, domain.Sources{domain.SourceYelp}, got[0].Sources)
}

func TestSearch_CapsAtMaxResults(t *testing.T) {
	var limits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		limits = append(limits, r.URL.Query().Get("limit"))
		items := make([]string, 0, limit)
		for i := 0; i < limit; i++ {
			items = append(items, bizJSON(i))
		}
		fmt.Fprintf(w, `{"total":5000,"businesses":[%s]}`, strings.Join(items, ","))
	}))
	defer srv.Close()

	d := New(Config{APIKey: "key", BaseURL: srv.URL, MaxResults: 120}, srv.Client(), nil)
	got, err := d.Search(t.Context(), domain.SearchQuery{Location: "x", BusinessType: "y"})
	require.NoError(t, err)
	assert.Len(t, got, 120)
	assert.Equal(t, []string{"50", "50", "20"}, limits)
}

func TestSearch_SkipsMalformedItems(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"total":4,"businesses":[%s,{"name":42},{"name":"","location":{"address1":"1 St"}},{"name":"Only Display","location":{"display_address":["9 Oak Ave","Decatur, GA 30030"]}}]}`, bizJSON(1))
	}))
	defer srv.Close()

	d := New(Config{APIKey: "key", BaseURL: srv.URL}, srv.Client(), nil)
	got, err := d.Search(t.Context(), domain.SearchQuery{Location: "x", BusinessType: "y"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Biz 1", got[0].Name)
	assert.Equal(t, "9 Oak Ave, Decatur, GA 30030", got[1].Address)
	assert.Equal(t, "y", got[1].BusinessType)
}

func TestSearch_AuthFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	d := New(Config{APIKey: "bad", BaseURL: srv.URL}, srv.Client(), nil)
	got, err := d.Search(t.Context(), domain.SearchQuery{Location: "x", BusinessType: "y"})
	assert.Empty(t, got)
	assert.True(t, apiclient.HasCode(err, apiclient.ErrCodeAuthFailed))
}

func TestSearch_Unconfigured(t *testing.T) {
	d := New(Config{}, nil, nil)
	got, err := d.Search(t.Context(), domain.SearchQuery{Location: "x", BusinessType: "y"})
	assert.NoError(t, err)
	assert.Nil(t, got)
}
