package session

import (
	"bufio"
	"context"
	"io"
	"sync"

	"github.com/nodesh/nodesh/pkg/domain"
)

// LineReader supplies command lines. The terminal line editor (history,
// vi mode, highlighting) lives outside the core behind this interface; the
// default implementation is a plain buffered reader.
type LineReader interface {
	// ReadLine shows the prompt and blocks for one line. It returns io.EOF
	// when input ends and domain.ErrCancelled when the context is done
	// while waiting.
	ReadLine(ctx context.Context, prompt string) (string, error)
}

type lineResult struct {
	text string
	err  error
}

// StdioReader reads lines from a reader on a dedicated goroutine so the
// wait stays interruptible. Waiting for input is one of the two suspension
// points of the session; it must never wedge the loop.
type StdioReader struct {
	out   io.Writer
	lines chan lineResult
	once  sync.Once
	in    *bufio.Reader
}

// NewStdioReader creates a reader over in, echoing prompts to out.
func NewStdioReader(in io.Reader, out io.Writer) *StdioReader {
	return &StdioReader{
		in:    bufio.NewReader(in),
		out:   out,
		lines: make(chan lineResult),
	}
}

func (r *StdioReader) pump() {
	for {
		text, err := r.in.ReadString('\n')
		if err != nil {
			if text != "" {
				r.lines <- lineResult{text: text}
			}
			r.lines <- lineResult{err: err}
			return
		}
		r.lines <- lineResult{text: text}
	}
}

// ReadLine implements LineReader.
func (r *StdioReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	r.once.Do(func() { go r.pump() })
	io.WriteString(r.out, prompt)
	select {
	case res := <-r.lines:
		if res.err != nil {
			if res.err == io.EOF {
				return "", io.EOF
			}
			return "", res.err
		}
		return res.text, nil
	case <-ctx.Done():
		return "", domain.ErrCancelled
	}
}
