package web

import (
	"bufio"
	"bytes"
	"crypto/sha1"
	"fmt"
	"net/http"
	"net/http/httputil"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
)

// DiskCache is an http.RoundTripper caching successful GET responses on disk.
// Keys include the current day, so entries expire daily.
type DiskCache struct {
	Dir  string
	Base http.RoundTripper
	Now  func() time.Time
}

func (c *DiskCache) key(req *http.Request) string {
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	key := fmt.Sprintf("%s %s %s", now().Format(time.DateOnly), req.Method, req.URL.String())
	return fmt.Sprintf("%x", sha1.Sum([]byte(key)))
}

func (c *DiskCache) RoundTrip(req *http.Request) (*http.Response, error) {
	if req.Method != http.MethodGet {
		return c.Base.RoundTrip(req)
	}
	key := c.key(req)
	if resp, err := c.get(key, req); err == nil {
		return resp, nil
	}

	resp, err := c.Base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{"host": req.URL.Host, "path": req.URL.Path, "status": resp.StatusCode}).Debug("http fetch")
	if resp.StatusCode >= 300 {
		return resp, nil
	}
	if err := c.put(key, resp); err != nil {
		logrus.WithError(err).Warn("cache write error (ignored)")
	}
	return resp, nil
}

func (c *DiskCache) get(key string, req *http.Request) (*http.Response, error) {
	content, err := os.ReadFile(filepath.Join(c.Dir, key))
	if err != nil {
		return nil, err
	}
	return http.ReadResponse(bufio.NewReader(bytes.NewReader(content)), req)
}

// put stores resp on disk. DumpResponse restores resp.Body after reading it.
func (c *DiskCache) put(key string, resp *http.Response) error {
	content, err := httputil.DumpResponse(resp, true)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Dir, 0755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(c.Dir, key), content, 0644)
}
