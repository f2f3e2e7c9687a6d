package domain

// Manifest is the parsed list of wanted items from a DAT file.
type Manifest struct {
	// Label is a human readable name for the manifest, e.g. "No-Intro: Nintendo - Game Boy"
	Label   string
	Catalog string
	System  string

	// Wanted holds canonical names in manifest order, without duplicates
	Wanted []string
}

// AvailableItem is one file offered by the remote listing.
type AvailableItem struct {
	Name     string `json:"name"`      // Canonical name (extension stripped)
	FileName string `json:"file_name"` // Name of the file on the server, with extension
	URL      string `json:"url"`
}

// MatchedItem is an available item that the manifest asked for.
// Index is the position of its wanted name in the manifest.
type MatchedItem struct {
	AvailableItem
	Index int `json:"index"`
}
