package registry

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"readsb-core/internal/debug"
)

// pollInterval is how often the registry file is re-checked for a
// modification-time change.
const pollInterval = 30 * time.Second

// Source owns the registry's external file: an optional remote
// mirror URL checked and mirrored down locally, plus the local-file
// mtime watch itself. The check-before-fetch and atomic
// download-then-install shape is the same one a local data cache would
// use; here the destination is a single local registry file rather
// than an extracted archive.
type Source struct {
	db         *Database
	remoteURL  string
	localPath  string
	httpClient *http.Client
}

// NewSource creates a Source that watches localPath and, if remoteURL
// is non-empty, refreshes localPath from it whenever a background
// RefreshRemote call observes a change (readsb mirrors a tar1090-db
// style aircraft database from a release URL in the same way).
func NewSource(localPath, remoteURL string) *Source {
	return &Source{
		db:         NewDatabase(localPath),
		remoteURL:  remoteURL,
		localPath:  localPath,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Database returns the underlying two-generation registry.
func (s *Source) Database() *Database {
	return s.db
}

// RefreshRemote downloads the configured remote mirror into localPath
// if it is reachable and newer than what's on disk. Failure here is
// never fatal; the next local mtime poll simply finds nothing new.
func (s *Source) RefreshRemote() error {
	if s.remoteURL == "" {
		return nil
	}

	req, err := http.NewRequest(http.MethodGet, s.remoteURL, nil)
	if err != nil {
		return fmt.Errorf("registry source: build request: %w", err)
	}
	if info, statErr := os.Stat(s.localPath); statErr == nil {
		req.Header.Set("If-Modified-Since", info.ModTime().UTC().Format(http.TimeFormat))
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("registry source: fetch %s: %w", s.remoteURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified {
		return nil
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("registry source: fetch %s: status %s", s.remoteURL, resp.Status)
	}

	// Temp file lives next to the destination so the final rename is
	// atomic on the same filesystem.
	tmp, err := os.CreateTemp(filepath.Dir(s.localPath), "registry-*.tmp")
	if err != nil {
		return fmt.Errorf("registry source: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("registry source: save download: %w", err)
	}
	tmp.Close()

	if err := os.Rename(tmpPath, s.localPath); err != nil {
		return fmt.Errorf("registry source: install download: %w", err)
	}
	debug.Log("registry: refreshed %s from %s", s.localPath, s.remoteURL)
	return nil
}

// PollInterval exposes the mtime-poll cadence to the priority
// coordinator, which schedules CheckAndParse/FinishSwap around it.
func PollInterval() time.Duration {
	return pollInterval
}
