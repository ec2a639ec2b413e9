package playerbase

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
)

type ErrHTTPStatus struct {
	URL        string
	StatusCode int
}

func (e ErrHTTPStatus) Error() string {
	return fmt.Sprintf("unexpected status of '%s': %d %s", e.URL, e.StatusCode, http.StatusText(e.StatusCode))
}

// SetTLSConfig sets the TLS configuration HTTPS players pass to the
// HTTP transport.
func (c *Common) SetTLSConfig(cfg *tls.Config) {
	c.tls = cfg
}

// HTTPClient returns a client which dials through the player's dialer.
func (s *Session) HTTPClient() *http.Client {
	s.httpClientOnce.Do(func() {
		t := &http.Transport{
			DialContext:           s.dialer.DialContext,
			ResponseHeaderTimeout: s.connectTimeout,
			MaxIdleConnsPerHost:   2,
		}
		if s.tlsConfig != nil {
			t.TLSClientConfig = s.tlsConfig.Clone()
		}
		s.httpClient = &http.Client{Transport: t}
	})
	return s.httpClient
}

// HTTPGet requests the URL and returns the response body, accounting
// the bytes read from it. A non-2xx status is an error.
func (s *Session) HTTPGet(
	ctx context.Context,
	url string,
) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("unable to build a request to '%s': %w", url, err)
	}
	resp, err := s.HTTPClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("unable to GET '%s': %w", url, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_ = resp.Body.Close()
		return nil, ErrHTTPStatus{URL: url, StatusCode: resp.StatusCode}
	}
	return struct {
		io.Reader
		io.Closer
	}{
		Reader: s.Reader(resp.Body),
		Closer: resp.Body,
	}, nil
}
