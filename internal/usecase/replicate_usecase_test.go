package usecase_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/geo"
	"github.com/emi420/underpass-go/internal/replication"
	"github.com/emi420/underpass-go/internal/usecase"
)

type fakeReplicateStore struct {
	mu    sync.Mutex
	execs []string
}

func (s *fakeReplicateStore) Exec(ctx context.Context, sqlText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.execs = append(s.execs, sqlText)
	return nil
}

func (s *fakeReplicateStore) Query(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error) {
	return nil, nil
}

func (s *fakeReplicateStore) execCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.execs)
}

func gzipString(s string) []byte {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, _ = gw.Write([]byte(s))
	_ = gw.Close()
	return buf.Bytes()
}

// dirIndexHTML renders a minimal Apache-style directory listing with a
// single digit-prefixed anchor, matching what replication.ParseDirIndex
// scans for.
func dirIndexHTML(href string) string {
	return fmt.Sprintf(`<html><body><a href="%s">%s</a> 01-Jan-2024 00:00</body></html>`, href, href)
}

const emptyOsmChange = `<?xml version="1.0"?><osmChange version="0.6"></osmChange>`

const oneChangeset = `<?xml version="1.0"?><osm>
  <changeset id="42" created_at="2024-01-01T00:00:00Z" closed_at="2024-01-01T00:05:00Z"
             open="false" user="tester" uid="1" min_lat="0" min_lon="0" max_lat="0.01" max_lon="0.01"
             num_changes="5">
    <tag k="comment" v="test edits"/>
  </changeset>
</osm>`

// newReplicationTestServer serves the three-level directory index plus a
// single data file for both a "minute" osmChange stream and a "changesets"
// stream, exactly one sequence (000/000/000) deep for each.
func newReplicationTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()

	serveDir := func(prefix string) {
		mux.HandleFunc(prefix+"/", func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Path {
			case prefix + "/":
				fmt.Fprint(w, dirIndexHTML("000/"))
			case prefix + "/000/":
				fmt.Fprint(w, dirIndexHTML("000/"))
			case prefix + "/000/000/":
				fmt.Fprint(w, dirIndexHTML("000.state.txt"))
			case prefix + "/000/000/000.osc.gz":
				w.Write(gzipString(emptyOsmChange))
			case prefix + "/000/000/000.osm.gz":
				w.Write(gzipString(oneChangeset))
			default:
				http.NotFound(w, r)
			}
		})
	}

	serveDir("/minute")
	serveDir("/changesets")

	return httptest.NewServer(mux)
}

func TestReplicateUseCaseRunsBothStreamsOneCycle(t *testing.T) {
	srv := newReplicationTestServer(t)
	defer srv.Close()

	logger := zap.NewNop()
	client := replication.NewClient(5*time.Second, nil, logger)
	store := &fakeReplicateStore{}
	filter := geo.NewAreaFilter(nil)

	uc := usecase.NewReplicateUseCase(
		client, store, filter,
		srv.URL+"/minute", srv.URL+"/changesets",
		5*time.Second, // poll interval long enough that the test's ctx deadline wins the race
		logger,
	)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	err := uc.Run(ctx, replication.Minutely, time.Now())
	assert.NoError(t, err)

	assert.Equal(t, 1, store.execCount(), "expected exactly one Exec call from the changeset stream's single valid changeset")
	if store.execCount() == 1 {
		assert.True(t, strings.Contains(store.execs[0], "INSERT INTO changesets"))
	}
}
