package manifest

import "encoding/xml"

// datFile is the subset of a Logiqx DAT file that dltool reads.
type datFile struct {
	XMLName xml.Name   `xml:"datafile"`
	Header  *datHeader `xml:"header"`
	Games   []datGame  `xml:"game"`
}

type datHeader struct {
	Name string `xml:"name"`
	URL  string `xml:"url"`
}

type datGame struct {
	Name string   `xml:"name,attr"`
	Roms []datRom `xml:"rom"`
}

type datRom struct {
	Name string `xml:"name,attr"`
	Size int64  `xml:"size,attr"`
}
