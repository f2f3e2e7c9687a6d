// Package manifest reads DAT files into the list of wanted names.
package manifest

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/datallboy/dltool/internal/domain"
	"github.com/datallboy/dltool/internal/match"
)

var (
	ErrNoHeader    = errors.New("DAT file has no header")
	ErrMalformed   = errors.New("malformed DAT file")
	ErrNoSystemTag = errors.New("DAT header has no system name")
)

// catalogURLs maps the homepage a DAT header points at to the catalog
// directory name used by the remote listing.
var catalogURLs = map[string]string{
	"https://www.no-intro.org": "No-Intro",
	"http://redump.org/":       "Redump",
}

// systemPostfixes are appended by DAT tools and never appear in collection names.
var systemPostfixes = []string{
	" (Retool)",
}

type Parser struct{}

func NewParser() *Parser {
	return &Parser{}
}

func (p *Parser) ParseFile(path string) (*domain.Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return p.Parse(f)
}

// Parse decodes a DAT document. Wanted names come from the first rom of each
// game, normalized and deduplicated in document order.
func (p *Parser) Parse(r io.Reader) (*domain.Manifest, error) {
	var dat datFile
	decoder := xml.NewDecoder(r)
	if err := decoder.Decode(&dat); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformed, err)
	}

	if dat.Header == nil {
		return nil, ErrNoHeader
	}

	system := strings.TrimSpace(dat.Header.Name)
	for _, fix := range systemPostfixes {
		system = strings.ReplaceAll(system, fix, "")
	}
	if system == "" {
		return nil, ErrNoSystemTag
	}

	m := &domain.Manifest{
		System:  system,
		Catalog: catalogURLs[strings.TrimSpace(dat.Header.URL)],
	}

	m.Label = system
	if m.Catalog != "" {
		m.Label = m.Catalog + ": " + system
	}

	names := make([]string, 0, len(dat.Games))
	for _, g := range dat.Games {
		if len(g.Roms) == 0 || g.Roms[0].Name == "" {
			continue
		}
		names = append(names, match.Normalize(g.Roms[0].Name))
	}
	m.Wanted = match.Unique(names)

	return m, nil
}
