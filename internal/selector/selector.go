// Package selector asks the user to pick one entry from a numbered list.
package selector

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
)

var (
	ErrNoOptions = errors.New("nothing to choose from")
	ErrNoInput   = errors.New("no selection made")
)

// Prompter reads every answer of a session from one input, so consecutive
// prompts share whatever the first one buffered.
type Prompter struct {
	in  io.Reader
	out io.Writer

	start    sync.Once
	stopOnce sync.Once
	lines    chan string
	stop     chan struct{}
	err      error // set before lines is closed
}

func NewPrompter(in io.Reader, out io.Writer) *Prompter {
	return &Prompter{
		in:    in,
		out:   out,
		lines: make(chan string),
		stop:  make(chan struct{}),
	}
}

func (p *Prompter) read() {
	defer close(p.lines)

	scanner := bufio.NewScanner(p.in)
	for scanner.Scan() {
		select {
		case p.lines <- scanner.Text():
		case <-p.stop:
			return
		}
	}
	p.err = scanner.Err()
}

// Close releases the background reader once its pending read returns.
func (p *Prompter) Close() {
	p.stopOnce.Do(func() { close(p.stop) })
}

// Select prints options numbered from 1 and reads lines until one holds a
// valid number. It returns the zero-based index of the choice, or ctx.Err()
// as soon as ctx is done.
func (p *Prompter) Select(ctx context.Context, title string, options []string) (int, error) {
	if len(options) == 0 {
		return -1, ErrNoOptions
	}

	fmt.Fprintln(p.out, title)
	for i, opt := range options {
		fmt.Fprintf(p.out, "%-2d: %s\n", i+1, opt)
	}

	p.start.Do(func() { go p.read() })

	for {
		fmt.Fprint(p.out, "Input selected number: ")

		var line string
		select {
		case <-ctx.Done():
			fmt.Fprintln(p.out)
			return -1, ctx.Err()
		case l, ok := <-p.lines:
			if !ok {
				if p.err != nil {
					return -1, p.err
				}
				return -1, ErrNoInput
			}
			line = l
		}

		n, err := strconv.Atoi(strings.TrimSpace(line))
		if err != nil {
			fmt.Fprintln(p.out, "Invalid number!")
			continue
		}
		if n < 1 || n > len(options) {
			fmt.Fprintln(p.out, "Input number out of range!")
			continue
		}
		return n - 1, nil
	}
}
