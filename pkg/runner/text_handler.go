package runner

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
)

// ContentRenderer transforms reply text before it is written, e.g.
// markdown to ANSI. Keeping it a function avoids coupling the loop to
// any terminal library.
type ContentRenderer func(string) (string, error)

// TextHandler reads lines from a terminal-style stream and writes
// replies as prompt/response text.
type TextHandler struct {
	// Renderer, when set, is applied to reply text before writing.
	// A failing renderer falls back to the raw text.
	Renderer ContentRenderer

	out   io.Writer
	scan  *bufio.Scanner
	once  sync.Once
	lines chan scanResult
}

type scanResult struct {
	text string
	err  error
}

// NewTextHandler creates a handler for standard text IO.
func NewTextHandler(r io.Reader, w io.Writer) *TextHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &TextHandler{
		out:  w,
		scan: bufio.NewScanner(r),
	}
}

// Output writes the reply, prefixed with the speaker when set.
func (h *TextHandler) Output(ctx context.Context, reply Reply) error {
	text := reply.Text
	if h.Renderer != nil {
		if rendered, err := h.Renderer(text); err == nil {
			text = rendered
		}
	}
	text = strings.TrimSpace(text)
	if reply.Speaker != "" {
		text = reply.Speaker + ": " + text
	}
	_, err := fmt.Fprintf(h.out, "\n%s\n\n", text)
	return err
}

// Input prompts and reads one line, trimmed. Scanning runs on its own
// goroutine so cancellation is honored while the stream blocks.
func (h *TextHandler) Input(ctx context.Context) (string, error) {
	h.once.Do(func() {
		h.lines = make(chan scanResult)
		go h.readLoop()
	})

	if ctx.Err() == nil {
		fmt.Fprint(h.out, "> ")
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-h.lines:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}

// readLoop feeds scanned lines to the channel until the stream ends.
// The channel closes on EOF; read errors are delivered in-band.
func (h *TextHandler) readLoop() {
	defer close(h.lines)
	for h.scan.Scan() {
		h.lines <- scanResult{text: h.scan.Text()}
	}
	if err := h.scan.Err(); err != nil {
		h.lines <- scanResult{err: err}
	}
}

// SystemOutput writes a meta-message with a prefix that separates it
// from conversation content.
func (h *TextHandler) SystemOutput(ctx context.Context, msg string) error {
	_, err := fmt.Fprintf(h.out, "\n[parley] %s\n", msg)
	return err
}
