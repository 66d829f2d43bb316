package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "lakecat/pkg/errors"
)

func newTestFinder(handler http.HandlerFunc) (*Finder, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return &Finder{BaseURL: srv.URL, Client: srv.Client()}, srv
}

func TestFindDumpDateWalksBackwards(t *testing.T) {
	var probed []string
	f, srv := newTestFinder(func(w http.ResponseWriter, r *http.Request) {
		probed = append(probed, r.URL.Path)
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/data/2025/discogs_20250715_artists.xml.gz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	ymd, err := f.FindDumpDate(context.Background(), "2025-07", "artists")
	require.NoError(t, err)
	assert.Equal(t, "20250715", ymd)

	// July has 31 days; the walk starts at the end and stops on the hit
	require.Len(t, probed, 17)
	assert.Equal(t, "/data/2025/discogs_20250731_artists.xml.gz", probed[0])
	assert.Equal(t, "/data/2025/discogs_20250715_artists.xml.gz", probed[16])
}

func TestFindDumpDateLeapFebruary(t *testing.T) {
	f, srv := newTestFinder(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/data/2024/discogs_20240229_labels.xml.gz" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	ymd, err := f.FindDumpDate(context.Background(), "2024-02", "labels")
	require.NoError(t, err)
	assert.Equal(t, "20240229", ymd)
}

func TestFindDumpDateNoneFound(t *testing.T) {
	f, srv := newTestFinder(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	defer srv.Close()

	_, err := f.FindDumpDate(context.Background(), "2025-01", "releases")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoDumpFound)
}

func TestFindDumpDateBadInputs(t *testing.T) {
	f := NewFinder()

	_, err := f.FindDumpDate(context.Background(), "2025-07", "podcasts")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetErrorCode(err))

	_, err = f.FindDumpDate(context.Background(), "July 2025", "artists")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidFormat, apperrors.GetErrorCode(err))
}
