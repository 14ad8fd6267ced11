package geoip

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestHTTPResolverSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/json/8.8.8.8", r.URL.Path)
		w.Write([]byte(`{"status":"success","country":"United States"}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL + "/json/%s")
	country, err := r.Resolve(context.Background(), "8.8.8.8")
	require.NoError(t, err)
	require.Equal(t, "United States", country)
}

func TestHTTPResolverFailStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"fail","message":"reserved range"}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL + "/json/%s")
	_, err := r.Resolve(context.Background(), "127.0.0.1")
	require.ErrorIs(t, err, ErrNoCountry)
}

func TestHTTPResolverMissingCountry(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL + "/json/%s")
	_, err := r.Resolve(context.Background(), "8.8.8.8")
	require.ErrorIs(t, err, ErrNoCountry)
}

func TestHTTPResolverBadStatusCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL + "/json/%s")
	_, err := r.Resolve(context.Background(), "8.8.8.8")
	require.ErrorIs(t, err, ErrLookup)
}

func TestHTTPResolverMalformedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`not json`))
	}))
	defer srv.Close()

	r := NewHTTPResolver(srv.URL + "/json/%s")
	_, err := r.Resolve(context.Background(), "8.8.8.8")
	require.Error(t, err)
}

func TestHTTPResolverHonorsContextTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	r := NewHTTPResolver(srv.URL + "/json/%s")
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := r.Resolve(ctx, "8.8.8.8")
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
}

func TestResolverFunc(t *testing.T) {
	f := ResolverFunc(func(ctx context.Context, addr string) (string, error) {
		return "Norway", nil
	})
	country, err := f.Resolve(context.Background(), "1.2.3.4")
	require.NoError(t, err)
	require.Equal(t, "Norway", country)
}
