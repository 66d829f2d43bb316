// Package probe locates the newest Discogs dump of a month by walking the
// public dump bucket backwards from the last day and HEAD-probing each
// candidate object.
package probe

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"lakecat/pkg/errors"
)

// DefaultBaseURL is the public Discogs dump bucket.
const DefaultBaseURL = "https://discogs-data-dumps.s3.us-west-2.amazonaws.com"

// DumpTypes are the object kinds a month publishes; any of them works as a
// probe target since they land together.
var DumpTypes = []string{"artists", "labels", "masters", "releases"}

// ErrNoDumpFound marks a month with no published dump. Callers map it to
// their own not-found handling.
var ErrNoDumpFound = errors.New(errors.ErrCodeDumpNotFound, "no dump found for month")

// Finder probes the dump bucket.
type Finder struct {
	BaseURL string
	Client  *http.Client
}

// NewFinder returns a finder against the public bucket with a per-request
// timeout matching the bucket's typical latency.
func NewFinder() *Finder {
	return &Finder{
		BaseURL: DefaultBaseURL,
		Client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// ValidDumpType reports whether t is a known dump type.
func ValidDumpType(t string) bool {
	for _, d := range DumpTypes {
		if d == t {
			return true
		}
	}
	return false
}

// FindDumpDate returns the YYYYMMDD of the newest dump in the given month,
// probing from the last day backwards. month is YYYY-MM. A month with no
// dump returns ErrNoDumpFound.
func (f *Finder) FindDumpDate(ctx context.Context, month, probeType string) (string, error) {
	if !ValidDumpType(probeType) {
		return "", errors.New(errors.ErrCodeInvalidInput,
			fmt.Sprintf("unknown probe type: %s", probeType))
	}

	start, err := time.Parse("2006-01", month)
	if err != nil {
		return "", errors.New(errors.ErrCodeInvalidFormat,
			fmt.Sprintf("month must be YYYY-MM, got %q", month))
	}

	lastDay := start.AddDate(0, 1, -1).Day()
	for day := lastDay; day >= 1; day-- {
		ymd := fmt.Sprintf("%04d%02d%02d", start.Year(), int(start.Month()), day)
		url := fmt.Sprintf("%s/data/%04d/discogs_%s_%s.xml.gz",
			f.BaseURL, start.Year(), ymd, probeType)
		if f.urlExists(ctx, url) {
			return ymd, nil
		}
	}

	return "", ErrNoDumpFound
}

// urlExists HEAD-probes one object; any transport failure counts as absent.
func (f *Finder) urlExists(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
