package steam

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"moddb-curator/config"
)

const (
	DefaultAPIURL  = "https://api.steampowered.com/ISteamRemoteStorage/GetPublishedFileDetails/v1/"
	defaultTimeout = 45 * time.Second

	// resultFound is the per-item status code for an existing, visible item.
	resultFound = 1
)

// Client looks up published workshop items.
type Client struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

// NewClient creates a client using the provided configuration.
func NewClient(cfg config.Config) (*Client, error) {
	if cfg.UserAgent == "" {
		return nil, fmt.Errorf("USERAGENT is not configured")
	}
	baseURL := cfg.SteamAPIURL
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		BaseURL:   baseURL,
		UserAgent: cfg.UserAgent,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

func (c *Client) makeRequest(ctx context.Context, form url.Values, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("api request failed: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		return fmt.Errorf("failed to decode json response: %w", err)
	}
	return nil
}

// Lookup fetches the details of one published item. It returns nil details
// and a nil error when the service answers but does not know the item or
// reports a failed query; an error means the request itself failed.
func (c *Client) Lookup(ctx context.Context, remoteID string) (*Details, error) {
	form := url.Values{}
	form.Set("itemcount", "1")
	form.Set("publishedfileids[0]", remoteID)

	var envelope detailsResponse
	if err := c.makeRequest(ctx, form, &envelope); err != nil {
		return nil, fmt.Errorf("failed to get details for '%s': %w", remoteID, err)
	}

	if envelope.Response.Result != resultFound {
		return nil, nil
	}
	items := envelope.Response.PublishedFileDetails
	if len(items) == 0 || items[0].Result != resultFound {
		return nil, nil
	}
	item := items[0]

	details := &Details{
		RemoteID: remoteID,
		Title:    item.Title,
		Tags:     make([]string, 0, len(item.Tags)),
	}
	for _, t := range item.Tags {
		if t.Tag != "" {
			details.Tags = append(details.Tags, t.Tag)
		}
	}
	return details, nil
}

// Details is the part of a found item the curator uses.
type Details struct {
	RemoteID string
	Title    string
	Tags     []string
}

type detailsResponse struct {
	Response struct {
		Result               int             `json:"result"`
		ResultCount          int             `json:"resultcount"`
		PublishedFileDetails []publishedFile `json:"publishedfiledetails"`
	} `json:"response"`
}

type publishedFile struct {
	PublishedFileID string `json:"publishedfileid"`
	Result          int    `json:"result"`
	Title           string `json:"title"`
	Tags            []struct {
		Tag string `json:"tag"`
	} `json:"tags"`
}
