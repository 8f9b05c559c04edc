package index

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vk/buildall/internal/ctxlog"
)

// DefaultBaseURL is where bare channel names are resolved.
const DefaultBaseURL = "https://conda.anaconda.org"

// repodata is the subset of a channel's repodata.json that is read.
type repodata struct {
	Packages      map[string]repodataRecord `json:"packages"`
	CondaPackages map[string]repodataRecord `json:"packages.conda"`
}

type repodataRecord struct {
	MD5 string `json:"md5"`
}

// HTTPFetcher reads repodata.json for the platform subdir and noarch of each
// channel.
type HTTPFetcher struct {
	client  *http.Client
	baseURL string
	subdirs []string
}

// NewHTTPFetcher creates a fetcher. A nil client gets DefaultClient(); an
// empty baseURL means DefaultBaseURL.
func NewHTTPFetcher(client *http.Client, baseURL, subdir string) *HTTPFetcher {
	if client == nil {
		client = DefaultClient()
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	subdirs := []string{subdir}
	if subdir != "noarch" {
		subdirs = append(subdirs, "noarch")
	}
	return &HTTPFetcher{client: client, baseURL: strings.TrimRight(baseURL, "/"), subdirs: subdirs}
}

// DefaultClient is used for index queries when no client is given. Large
// channels serve repodata.json files of tens of megabytes.
func DefaultClient() *http.Client {
	return &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 2,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// ChannelURL resolves a channel name or URL to its base URL.
func (f *HTTPFetcher) ChannelURL(channel string) string {
	if strings.Contains(channel, "://") {
		return strings.TrimRight(channel, "/")
	}
	return f.baseURL + "/" + strings.Trim(channel, "/")
}

// Fetch implements Fetcher. A subdir the channel does not carry (HTTP 404)
// contributes nothing; any other failure aborts the fetch.
func (f *HTTPFetcher) Fetch(ctx context.Context, channels []string) (*Snapshot, error) {
	logger := ctxlog.FromContext(ctx)
	snap := NewSnapshot()

	for _, channel := range channels {
		for _, subdir := range f.subdirs {
			url := f.ChannelURL(channel) + "/" + subdir + "/repodata.json"
			data, found, err := f.get(ctx, url)
			if err != nil {
				return nil, fmt.Errorf("failed to query channel %s: %w", channel, err)
			}
			if !found {
				logger.Debug("Channel subdir not found.", "channel", channel, "subdir", subdir)
				continue
			}
			for fn, rec := range data.Packages {
				snap.Add(fn, Entry{Channel: channel, MD5: rec.MD5})
			}
			for fn, rec := range data.CondaPackages {
				snap.Add(fn, Entry{Channel: channel, MD5: rec.MD5})
			}
			logger.Debug("Channel index fetched.", "channel", channel, "subdir", subdir, "packages", len(data.Packages)+len(data.CondaPackages))
		}
	}
	return snap, nil
}

func (f *HTTPFetcher) get(ctx context.Context, url string) (*repodata, bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request for %s: %w", url, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, false, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, false, nil
	case resp.StatusCode != http.StatusOK:
		return nil, false, fmt.Errorf("GET %s: unexpected status %s", url, resp.Status)
	}

	var data repodata
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, false, fmt.Errorf("failed to decode %s: %w", url, err)
	}
	return &data, true, nil
}
