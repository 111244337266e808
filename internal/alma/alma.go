// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package alma reads physical items from the Alma bibs API. Items are the
// source side of a barcode run: each carries a barcode and a box description.
package alma

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pdiddy/barcode-sync/internal/httputil"
	"github.com/pdiddy/barcode-sync/pkg/types"
)

var (
	// ErrUnauthorized reports a rejected or missing API key.
	ErrUnauthorized = errors.New("alma: unauthorized")

	// ErrNoAPIKey reports that no key was configured for the environment.
	ErrNoAPIKey = errors.New("alma: no API key configured")
)

const maxPageSize = 100

// Client fetches item lists for one holdings record at a time.
type Client struct {
	http     *httputil.Client
	baseURL  string
	apiKey   string
	pageSize int
	log      *zerolog.Logger
}

// New returns a Client for cfg. The API key must already be resolved.
func New(cfg types.AlmaConfig, logger *zerolog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w for %s", ErrNoAPIKey, cfg.Environment)
	}
	size := cfg.PageSize
	if size <= 0 || size > maxPageSize {
		size = maxPageSize
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		http:     httputil.NewClient(cfg.HTTPConfig),
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		pageSize: size,
		log:      logger,
	}, nil
}

type itemsPage struct {
	Items      []types.Record `json:"item"`
	TotalCount int            `json:"total_record_count"`
}

// Items returns every item of holdings record holdingsID under bibliographic
// record bibID, in the order Alma lists them. Each record is the full item
// envelope, with bib_data, holding_data and item_data keys.
func (c *Client) Items(ctx context.Context, bibID, holdingsID string) ([]types.Record, error) {
	var items []types.Record
	total := -1

	for offset := 0; total < 0 || offset < total; offset += c.pageSize {
		page, err := c.itemsPage(ctx, bibID, holdingsID, offset)
		if err != nil {
			return nil, err
		}
		total = page.TotalCount
		items = append(items, page.Items...)
		c.log.Debug().Int("offset", offset).Int("count", len(page.Items)).Int("total", total).
			Msg("Fetched Alma item page")
		if len(page.Items) == 0 {
			break
		}
	}

	c.log.Info().Str("bib_id", bibID).Str("holdings_id", holdingsID).Int("items", len(items)).
		Msg("Fetched Alma items")
	return items, nil
}

func (c *Client) itemsPage(ctx context.Context, bibID, holdingsID string, offset int) (*itemsPage, error) {
	q := url.Values{}
	q.Set("limit", strconv.Itoa(c.pageSize))
	q.Set("offset", strconv.Itoa(offset))
	q.Set("format", "json")
	u := fmt.Sprintf("%s/almaws/v1/bibs/%s/holdings/%s/items?%s",
		c.baseURL, url.PathEscape(bibID), url.PathEscape(holdingsID), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating Alma request: %w", err)
	}
	req.Header.Set("Authorization", "apikey "+c.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Alma items request: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, fmt.Errorf("%w: HTTP %d", ErrUnauthorized, resp.StatusCode)
	}

	var page itemsPage
	if err := httputil.DecodeJSON(resp, &page); err != nil {
		return nil, fmt.Errorf("Alma items at offset %d: %w", offset, err)
	}
	return &page, nil
}

// ItemData flattens item envelopes to their item_data objects, which is the
// shape the description-based profiles read. Envelopes without item_data are
// kept as they are.
func ItemData(items []types.Record) []types.Record {
	out := make([]types.Record, len(items))
	for i, it := range items {
		if sub := it.Sub("item_data"); sub != nil {
			out[i] = sub
			continue
		}
		out[i] = it
	}
	return out
}
