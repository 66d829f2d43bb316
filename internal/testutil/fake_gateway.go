package testutil

import (
	"context"
	"fmt"
	"strings"
	"sync"
)

// QueryResponse scripts the fake gateway's answer for queries matching a
// substring.
type QueryResponse struct {
	Match string
	Rows  [][]string
	Err   error
}

// FakeGateway is an in-memory gateway.Gateway used by component tests. It
// records every DDL block and answers queries from a scripted list, first
// match wins.
type FakeGateway struct {
	mu sync.Mutex

	ProbeErr error
	DDL      []string
	DDLErrOn string // substring; matching DDL blocks fail
	Queries  []string
	Script   []QueryResponse
	Visible  map[string]bool
	Dirs     []string
	DirErr   error
}

// NewFakeGateway creates an empty fake with no visible paths.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{Visible: make(map[string]bool)}
}

// Respond appends a scripted query response.
func (f *FakeGateway) Respond(match string, rows [][]string) *FakeGateway {
	f.Script = append(f.Script, QueryResponse{Match: match, Rows: rows})
	return f
}

// RespondErr appends a scripted query failure.
func (f *FakeGateway) RespondErr(match string, err error) *FakeGateway {
	f.Script = append(f.Script, QueryResponse{Match: match, Err: err})
	return f
}

// SetVisible marks a path as existing from the engine's vantage point.
func (f *FakeGateway) SetVisible(paths ...string) *FakeGateway {
	for _, p := range paths {
		f.Visible[p] = true
	}
	return f
}

func (f *FakeGateway) Probe(ctx context.Context) error {
	return f.ProbeErr
}

func (f *FakeGateway) ExecuteDDL(ctx context.Context, sql string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DDLErrOn != "" && strings.Contains(sql, f.DDLErrOn) {
		return fmt.Errorf("scripted DDL failure on %q", f.DDLErrOn)
	}
	f.DDL = append(f.DDL, sql)
	return nil
}

func (f *FakeGateway) ExecuteQuery(ctx context.Context, sql string) ([][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Queries = append(f.Queries, sql)
	for _, r := range f.Script {
		if strings.Contains(sql, r.Match) {
			return r.Rows, r.Err
		}
	}
	return nil, nil
}

func (f *FakeGateway) PathVisible(ctx context.Context, path string) (bool, error) {
	return f.Visible[path], nil
}

func (f *FakeGateway) EnsureDir(ctx context.Context, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.DirErr != nil {
		return f.DirErr
	}
	f.Dirs = append(f.Dirs, path)
	f.Visible[path] = true
	return nil
}

// AllDDL joins every recorded DDL block, handy for substring assertions.
func (f *FakeGateway) AllDDL() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return strings.Join(f.DDL, "\n")
}
