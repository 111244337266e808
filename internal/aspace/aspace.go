// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package aspace talks to the ArchivesSpace backend API. Top containers are
// the target side of a barcode run and the records barcodes are written to.
package aspace

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/pdiddy/barcode-sync/internal/httputil"
	"github.com/pdiddy/barcode-sync/pkg/types"
)

var (
	// ErrNotFound reports a URI the backend does not know.
	ErrNotFound = errors.New("aspace: not found")

	// ErrLogin reports rejected credentials.
	ErrLogin = errors.New("aspace: login failed")
)

const sessionHeader = "X-ArchivesSpace-Session"

// Client is an authenticated ArchivesSpace API client. It logs in on first
// use and reuses the session for every later request.
type Client struct {
	http     *httputil.Client
	baseURL  string
	repo     int
	username string
	password string
	log      *zerolog.Logger

	mu      sync.Mutex
	session string
}

// New returns a Client for cfg. No request is made until the first call.
func New(cfg types.ASpaceConfig, logger *zerolog.Logger) *Client {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Client{
		http:     httputil.NewClient(cfg.HTTPConfig),
		baseURL:  strings.TrimSuffix(cfg.BaseURL, "/"),
		repo:     cfg.Repository,
		username: cfg.Username,
		password: cfg.Password,
		log:      logger,
	}
}

func (c *Client) login(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session != "" {
		return c.session, nil
	}

	form := url.Values{"password": {c.password}}
	u := fmt.Sprintf("%s/users/%s/login", c.baseURL, url.PathEscape(c.username))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return "", fmt.Errorf("login request: %w", err)
	}
	if resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()
		return "", fmt.Errorf("%w for user %s", ErrLogin, c.username)
	}

	var body struct {
		Session string `json:"session"`
	}
	if err := httputil.DecodeJSON(resp, &body); err != nil {
		return "", fmt.Errorf("login: %w", err)
	}
	if body.Session == "" {
		return "", fmt.Errorf("%w: no session in response", ErrLogin)
	}
	c.session = body.Session
	return c.session, nil
}

// do sends an authenticated request for path (a URI relative to the API
// root) and decodes a JSON response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	session, err := c.login(ctx)
	if err != nil {
		return err
	}

	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding %s: %w", path, err)
		}
		rd = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+"/"+strings.TrimPrefix(path, "/"), rd)
	if err != nil {
		return fmt.Errorf("creating request for %s: %w", path, err)
	}
	req.Header.Set(sessionHeader, session)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode == http.StatusNotFound {
		resp.Body.Close()
		return fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if out == nil {
		defer resp.Body.Close()
		return httputil.CheckStatus(resp)
	}
	return httputil.DecodeJSON(resp, out)
}

// ContainerRefs returns the de-duplicated top container URIs linked to a
// resource, sorted. The backend can time out on resources with thousands of
// containers; aspacedb.ContainerRefs is the alternative.
func (c *Client) ContainerRefs(ctx context.Context, resourceID int) ([]string, error) {
	var links []struct {
		Ref string `json:"ref"`
	}
	path := fmt.Sprintf("/repositories/%d/resources/%d/top_containers", c.repo, resourceID)
	if err := c.do(ctx, http.MethodGet, path, nil, &links); err != nil {
		return nil, fmt.Errorf("listing containers for resource %d: %w", resourceID, err)
	}

	seen := make(map[string]bool, len(links))
	refs := make([]string, 0, len(links))
	for _, l := range links {
		if l.Ref != "" && !seen[l.Ref] {
			seen[l.Ref] = true
			refs = append(refs, l.Ref)
		}
	}
	sort.Strings(refs)
	return refs, nil
}

// Container fetches the full JSON of one top container.
func (c *Client) Container(ctx context.Context, uri string) (types.Record, error) {
	var rec types.Record
	if err := c.do(ctx, http.MethodGet, uri, nil, &rec); err != nil {
		return nil, err
	}
	return rec, nil
}

// PublishedContainers fetches every ref and keeps the containers linked to a
// published record, in ref order. Progress lines go to w.
func (c *Client) PublishedContainers(ctx context.Context, refs []string, w io.Writer) ([]types.Record, error) {
	var out []types.Record
	for i, ref := range refs {
		rec, err := c.Container(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("fetching container %s: %w", ref, err)
		}
		if rec.Bool("is_linked_to_published_record") {
			out = append(out, rec)
		} else {
			c.log.Info().Str("uri", ref).Msgf("Top container %s is not linked to a published resource", ref)
		}
		if (i+1)%100 == 0 || i+1 == len(refs) {
			fmt.Fprintf(w, "  fetched %d/%d top containers\n", i+1, len(refs))
		}
	}
	return out, nil
}

// Update posts rec back to its own uri.
func (c *Client) Update(ctx context.Context, rec types.Record) error {
	uri := rec.String("uri")
	if uri == "" {
		return fmt.Errorf("updating container: record has no uri")
	}
	var status struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodPost, uri, rec, &status); err != nil {
		return fmt.Errorf("updating %s: %w", uri, err)
	}
	return nil
}

// Delete removes the object at uri.
func (c *Client) Delete(ctx context.Context, uri string) error {
	if err := c.do(ctx, http.MethodDelete, uri, nil, nil); err != nil {
		return fmt.Errorf("deleting %s: %w", uri, err)
	}
	return nil
}

type containerPage struct {
	FirstPage int            `json:"first_page"`
	LastPage  int            `json:"last_page"`
	ThisPage  int            `json:"this_page"`
	Results   []types.Record `json:"results"`
}

// TopContainerPages walks every top container in the repository one page at
// a time, calling fn with each page's results. It stops at the first error
// fn returns.
func (c *Client) TopContainerPages(ctx context.Context, pageSize int, fn func(page int, results []types.Record) error) error {
	if pageSize <= 0 {
		pageSize = 1000
	}
	for page := 1; ; page++ {
		q := url.Values{"page": {strconv.Itoa(page)}, "page_size": {strconv.Itoa(pageSize)}}
		path := fmt.Sprintf("/repositories/%d/top_containers?%s", c.repo, q.Encode())

		var p containerPage
		if err := c.do(ctx, http.MethodGet, path, nil, &p); err != nil {
			return fmt.Errorf("listing top containers page %d: %w", page, err)
		}
		if err := fn(page, p.Results); err != nil {
			return err
		}
		if len(p.Results) == 0 || p.ThisPage >= p.LastPage {
			return nil
		}
	}
}

// Unlinked reports whether a top container belongs to no collection.
func Unlinked(rec types.Record) bool {
	v, ok := rec.Lookup("collection")
	if !ok || v == nil {
		return true
	}
	switch c := v.(type) {
	case []any:
		return len(c) == 0
	case []types.Record:
		return len(c) == 0
	}
	return false
}
