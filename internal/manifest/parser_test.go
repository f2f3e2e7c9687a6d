package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const noIntroDAT = `<?xml version="1.0"?>
<!DOCTYPE datafile PUBLIC "-//Logiqx//DTD ROM Management Datafile//EN" "http://www.logiqx.com/Dats/datafile.dtd">
<datafile>
	<header>
		<name>Nintendo - Game Boy (Retool)</name>
		<description>Nintendo - Game Boy</description>
		<url>https://www.no-intro.org</url>
	</header>
	<game name="Game A (USA)">
		<description>Game A (USA)</description>
		<rom name="Game A (USA).gb" size="32768" crc="00000000"/>
	</game>
	<game name="Game B (Europe)">
		<rom name="Game B (Europe).gb" size="65536"/>
		<rom name="Game B (Europe) (Manual).pdf" size="10"/>
	</game>
	<game name="Game A (USA) alt">
		<rom name="Game A (USA).gbc" size="32768"/>
	</game>
	<game name="Empty"/>
</datafile>`

func TestParseNoIntro(t *testing.T) {
	m, err := NewParser().Parse(strings.NewReader(noIntroDAT))
	require.NoError(t, err)

	assert.Equal(t, "Nintendo - Game Boy", m.System)
	assert.Equal(t, "No-Intro", m.Catalog)
	assert.Equal(t, "No-Intro: Nintendo - Game Boy", m.Label)
	assert.Equal(t, []string{"Game A (USA)", "Game B (Europe)"}, m.Wanted)
}

func TestParseUnknownCatalog(t *testing.T) {
	dat := `<datafile><header><name>Sony - PlayStation</name><url>https://example.org</url></header>
<game name="x"><rom name="Game X.cue"/></game></datafile>`

	m, err := NewParser().Parse(strings.NewReader(dat))
	require.NoError(t, err)

	assert.Empty(t, m.Catalog)
	assert.Equal(t, "Sony - PlayStation", m.Label)
	assert.Equal(t, []string{"Game X"}, m.Wanted)
}

func TestParseRedumpCatalog(t *testing.T) {
	dat := `<datafile><header><name>Sony - PlayStation</name><url>http://redump.org/</url></header></datafile>`

	m, err := NewParser().Parse(strings.NewReader(dat))
	require.NoError(t, err)
	assert.Equal(t, "Redump", m.Catalog)
	assert.Empty(t, m.Wanted)
}

func TestParseErrors(t *testing.T) {
	_, err := NewParser().Parse(strings.NewReader("<datafile><header>"))
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = NewParser().Parse(strings.NewReader(`<datafile><game name="a"><rom name="a.zip"/></game></datafile>`))
	assert.ErrorIs(t, err, ErrNoHeader)

	_, err = NewParser().Parse(strings.NewReader(`<datafile><header><url>x</url></header></datafile>`))
	assert.ErrorIs(t, err, ErrNoSystemTag)
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gb.dat")
	require.NoError(t, os.WriteFile(path, []byte(noIntroDAT), 0o644))

	m, err := NewParser().ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, m.Wanted, 2)

	_, err = NewParser().ParseFile(filepath.Join(t.TempDir(), "missing.dat"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
