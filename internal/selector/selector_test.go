package selector

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRetriesUntilValid(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader("abc\n0\n4\n 2 \n"), &out)
	defer p.Close()

	idx, err := p.Select(context.Background(), "Choose a catalog:", []string{"No-Intro", "Redump", "TOSEC"})
	require.NoError(t, err)
	assert.Equal(t, 1, idx)

	s := out.String()
	assert.Contains(t, s, "Choose a catalog:")
	assert.Contains(t, s, "1 : No-Intro")
	assert.Contains(t, s, "3 : TOSEC")
	assert.Equal(t, 1, strings.Count(s, "Invalid number!"))
	assert.Equal(t, 2, strings.Count(s, "Input number out of range!"))
}

func TestConsecutiveSelectsShareInput(t *testing.T) {
	p := NewPrompter(strings.NewReader("2\n1\n"), io.Discard)
	defer p.Close()

	first, err := p.Select(context.Background(), "catalog", []string{"No-Intro", "Redump"})
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := p.Select(context.Background(), "collection", []string{"Sony - PlayStation", "Sega - Saturn"})
	require.NoError(t, err)
	assert.Equal(t, 0, second)

	_, err = p.Select(context.Background(), "again", []string{"a"})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestSelectEOF(t *testing.T) {
	p := NewPrompter(strings.NewReader("9\n"), io.Discard)
	defer p.Close()

	_, err := p.Select(context.Background(), "t", []string{"a"})
	assert.ErrorIs(t, err, ErrNoInput)
}

func TestSelectNoOptions(t *testing.T) {
	p := NewPrompter(strings.NewReader("1\n"), io.Discard)
	defer p.Close()

	_, err := p.Select(context.Background(), "t", nil)
	assert.ErrorIs(t, err, ErrNoOptions)
}

func TestSelectCancelledWhileWaiting(t *testing.T) {
	in, w := io.Pipe()
	defer w.Close()

	p := NewPrompter(in, io.Discard)
	defer p.Close()

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(50*time.Millisecond, cancel)

	done := make(chan error, 1)
	go func() {
		_, err := p.Select(ctx, "t", []string{"a", "b"})
		done <- err
	}()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Select did not return after cancellation")
	}
}
