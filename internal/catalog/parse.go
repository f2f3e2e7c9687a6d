package catalog

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var ErrNoListing = errors.New("page has no directory listing")

// Entry is one row of a directory listing.
type Entry struct {
	Title string
	Href  string
}

// ParseListing reads the rows of the table with id "list". The first row
// links to the parent directory and is skipped.
func ParseListing(r io.Reader) ([]Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}

	table := find(doc, func(n *html.Node) bool {
		return n.DataAtom == atom.Table && attr(n, "id") == "list"
	})
	if table == nil {
		return nil, ErrNoListing
	}

	var rows []*html.Node
	walk(table, func(n *html.Node) {
		if n.DataAtom == atom.Tr && enclosingTable(n) == table {
			rows = append(rows, n)
		}
	})

	// thead rows are not entries
	var body []*html.Node
	for _, row := range rows {
		if row.Parent != nil && row.Parent.DataAtom == atom.Thead {
			continue
		}
		body = append(body, row)
	}
	if len(body) == 0 {
		return nil, nil
	}

	entries := make([]Entry, 0, len(body)-1)
	for _, row := range body[1:] {
		a := find(row, func(n *html.Node) bool { return n.DataAtom == atom.A })
		if a == nil {
			continue
		}

		title := attr(a, "title")
		if title == "" {
			title = strings.TrimSpace(text(a))
		}
		entries = append(entries, Entry{Title: title, Href: attr(a, "href")})
	}

	return entries, nil
}

func find(n *html.Node, match func(*html.Node) bool) *html.Node {
	if n.Type == html.ElementNode && match(n) {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := find(c, match); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	if n.Type == html.ElementNode {
		fn(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}

func enclosingTable(n *html.Node) *html.Node {
	for p := n.Parent; p != nil; p = p.Parent {
		if p.DataAtom == atom.Table {
			return p
		}
	}
	return nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func text(n *html.Node) string {
	var sb strings.Builder
	var collect func(*html.Node)
	collect = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			collect(c)
		}
	}
	collect(n)
	return sb.String()
}
