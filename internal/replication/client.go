package replication

import (
	"bytes"
	"compress/gzip"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"time"

	"go.uber.org/zap"

	"github.com/emi420/underpass-go/internal/cache"
	pkgerrors "github.com/emi420/underpass-go/internal/pkg/errors"
)

// gzipMagic is the first byte of a gzip stream (spec §4.5).
const gzipMagic = 0x1f

// Client downloads replication artefacts over HTTPS, with an optional
// download cache keyed on the URL path (spec §4.5).
type Client struct {
	http   *http.Client
	cache  *cache.Cache
	logger *zap.Logger
}

// NewClient builds a Client that follows neither redirects nor cache
// headers, per spec §4.5.
func NewClient(timeout time.Duration, dlCache *cache.Cache, logger *zap.Logger) *Client {
	return &Client{
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				TLSClientConfig: &tls.Config{MinVersion: tls.VersionTLS12},
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		cache:  dlCache,
		logger: logger,
	}
}

// Download fetches url, consulting and populating the download cache. A
// cached payload that fails the gzip sanity check is treated as corrupt
// and evicted before falling through to a live fetch.
func (c *Client) Download(ctx context.Context, url string) ([]byte, error) {
	cacheKey := url
	if u, err := neturl.Parse(url); err == nil {
		cacheKey = u.Path
	}

	if c.cache != nil {
		if body, ok, err := c.cache.Get(ctx, cacheKey); err == nil && ok {
			if _, gzErr := MaybeGunzip(body); gzErr == nil {
				return body, nil
			}
			c.logger.Warn("cached replication artefact is corrupt, evicting", zap.String("url", url))
			_ = c.cache.Evict(ctx, cacheKey)
		}
	}

	body, err := c.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, cacheKey, body); err != nil {
			c.logger.Warn("failed to populate download cache", zap.String("url", url), zap.Error(err))
		}
	}
	return body, nil
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.SystemError, "failed to build replication request", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.SystemError, "replication download failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGatewayTimeout {
		return nil, pkgerrors.New(pkgerrors.RemoteNotFound, fmt.Sprintf("replication resource not found: %s", url))
	}
	if resp.StatusCode != http.StatusOK {
		return nil, pkgerrors.New(pkgerrors.SystemError, fmt.Sprintf("unexpected status %d fetching %s", resp.StatusCode, url))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.SystemError, "failed to read replication response", err)
	}

	if len(body) > 0 && body[0] != gzipMagic {
		body = append(body, '\n')
	}
	return body, nil
}

// MaybeGunzip decodes body if it is gzip-compressed (detected by its magic
// byte), otherwise returns it unchanged.
func MaybeGunzip(body []byte) ([]byte, error) {
	if len(body) == 0 || body[0] != gzipMagic {
		return body, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ParseError, "corrupt gzip payload", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.ParseError, "corrupt gzip payload", err)
	}
	return out, nil
}
