package openlibrary

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_SearchBooks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search.json", r.URL.Path)
		assert.Equal(t, "subject:science fiction", r.URL.Query().Get("q"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Equal(t, "libraryapi-test", r.Header.Get("User-Agent"))
		w.Write([]byte(`{"numFound":1,"docs":[{"title":"Dune","author_name":["Frank Herbert"],"isbn":["9780441013593"],"first_publish_year":1965,"language":["eng"]}]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "libraryapi-test", 100, 0)
	res, err := c.SearchBooks(context.Background(), "science fiction", 5)

	require.NoError(t, err)
	require.Len(t, res.Docs, 1)
	assert.Equal(t, "Dune", res.Docs[0].Title)
	assert.Equal(t, []string{"Frank Herbert"}, res.Docs[0].AuthorNames)
	assert.Equal(t, 1965, res.Docs[0].FirstPublishYear)
}

func TestClient_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"numFound":0,"docs":[]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test", 100, 3)
	c.backoff = time.Millisecond

	res, err := c.SearchBooks(context.Background(), "poetry", 1)

	require.NoError(t, err)
	assert.Empty(t, res.Docs)
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test", 100, 3)
	c.backoff = time.Millisecond

	_, err := c.SearchBooks(context.Background(), "poetry", 1)

	assert.EqualError(t, err, "unexpected status code: 404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_GivesUpAfterRetries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test", 100, 1)
	c.backoff = time.Millisecond

	_, err := c.SearchBooks(context.Background(), "poetry", 1)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 1 retries")
}
