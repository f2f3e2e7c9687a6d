// Package catalog browses the remote file server: the top level lists
// catalogs, a catalog lists collections, a collection lists files.
package catalog

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/datallboy/dltool/internal/domain"
	"github.com/datallboy/dltool/internal/match"
)

const DefaultBaseURL = "https://myrient.erista.me/files/"

// Getter fetches a page body.
type Getter interface {
	Get(ctx context.Context, url string) (io.ReadCloser, error)
}

type Client struct {
	baseURL string
	http    Getter
}

func NewClient(baseURL string, g Getter) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{baseURL: baseURL, http: g}
}

// List returns the entries of the directory at relPath, relative to the base URL.
func (c *Client) List(ctx context.Context, relPath string) ([]Entry, error) {
	url := c.baseURL + relPath

	body, err := c.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer body.Close()

	entries, err := ParseListing(body)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", url, err)
	}
	return entries, nil
}

// Collection lists the files of one collection, keyed by canonical name.
func (c *Client) Collection(ctx context.Context, catalogHref, collectionHref string) (map[string]domain.AvailableItem, error) {
	dir := catalogHref + collectionHref

	entries, err := c.List(ctx, dir)
	if err != nil {
		return nil, err
	}

	items := make([]domain.AvailableItem, 0, len(entries))
	for _, e := range entries {
		items = append(items, domain.AvailableItem{
			Name:     match.Normalize(e.Title),
			FileName: e.Title,
			URL:      c.baseURL + dir + e.Href,
		})
	}

	return match.Index(items), nil
}

// FindCatalog returns the entry whose title contains name. When several
// match, the last one wins.
func FindCatalog(entries []Entry, name string) (Entry, bool) {
	var found Entry
	var ok bool
	if name == "" {
		return found, false
	}

	for _, e := range entries {
		if strings.Contains(e.Title, name) {
			found, ok = e, true
		}
	}
	return found, ok
}

// FindCollections returns the entries whose title starts with system.
func FindCollections(entries []Entry, system string) []Entry {
	var out []Entry
	for _, e := range entries {
		if strings.HasPrefix(e.Title, system) {
			out = append(out, e)
		}
	}
	return out
}

// Titles returns the entry titles in listing order.
func Titles(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Title
	}
	return out
}
