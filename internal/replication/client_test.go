package replication

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
	"go.uber.org/zap"
)

func TestClientDownloadAppendsNewlineForPlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("sequenceNumber=123"))
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, nil, zap.NewNop())
	body, err := c.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) == 0 || body[len(body)-1] != '\n' {
		t.Fatalf("expected trailing newline appended, got %q", body)
	}
}

func TestClientDownloadLeavesGzipBodyUntouched(t *testing.T) {
	var buf bytes.Buffer
	gw := gzip.NewWriter(&buf)
	_, _ = gw.Write([]byte("<osmChange/>"))
	_ = gw.Close()
	payload := buf.Bytes()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write(payload)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, nil, zap.NewNop())
	body, err := c.Download(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(body) != len(payload) {
		t.Fatalf("expected gzip body left unchanged, got different length %d vs %d", len(body), len(payload))
	}

	out, err := MaybeGunzip(body)
	if err != nil {
		t.Fatalf("unexpected gunzip error: %v", err)
	}
	if string(out) != "<osmChange/>" {
		t.Fatalf("unexpected decoded payload: %q", out)
	}
}

func TestClientDownloadNotFoundYieldsRemoteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, nil, zap.NewNop())
	_, err := c.Download(context.Background(), srv.URL)
	if !pkgerrors.Is(err, pkgerrors.RemoteNotFound) {
		t.Fatalf("expected RemoteNotFound, got %v", err)
	}
}

func TestClientDownloadGatewayTimeoutYieldsRemoteNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, nil, zap.NewNop())
	_, err := c.Download(context.Background(), srv.URL)
	if !pkgerrors.Is(err, pkgerrors.RemoteNotFound) {
		t.Fatalf("expected RemoteNotFound, got %v", err)
	}
}

func TestClientDownloadServerErrorYieldsSystemError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(5*time.Second, nil, zap.NewNop())
	_, err := c.Download(context.Background(), srv.URL)
	if !pkgerrors.Is(err, pkgerrors.SystemError) {
		t.Fatalf("expected SystemError, got %v", err)
	}
}

func TestMaybeGunzipPassthroughForPlainPayload(t *testing.T) {
	out, err := MaybeGunzip([]byte("plain text\n"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out) != "plain text\n" {
		t.Fatalf("unexpected passthrough result: %q", out)
	}
}
