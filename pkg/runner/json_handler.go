package runner

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"os"
	"strings"
)

// JSONHandler speaks NDJSON: one object out per turn, one value in per
// line. It is the headless counterpart of TextHandler, meant for pipes
// and supervising processes.
type JSONHandler struct {
	lines *bufio.Scanner
	enc   *json.Encoder
}

// NewJSONHandler creates a handler for JSON IO.
func NewJSONHandler(r io.Reader, w io.Writer) *JSONHandler {
	if r == nil {
		r = os.Stdin
	}
	if w == nil {
		w = os.Stdout
	}
	return &JSONHandler{
		lines: bufio.NewScanner(r),
		enc:   json.NewEncoder(w),
	}
}

// Output emits the reply as a single JSON line.
func (h *JSONHandler) Output(ctx context.Context, reply Reply) error {
	return h.enc.Encode(reply)
}

// Input reads one line. A JSON string is unquoted; anything else is
// passed through as raw text so plain pipes keep working.
func (h *JSONHandler) Input(ctx context.Context) (string, error) {
	if !h.lines.Scan() {
		if err := h.lines.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}

	text := strings.TrimSpace(h.lines.Text())
	var unquoted string
	if json.Unmarshal([]byte(text), &unquoted) == nil {
		return unquoted, nil
	}
	return text, nil
}

// SystemOutput emits a meta-message object, keyed so consumers can
// tell it apart from replies.
func (h *JSONHandler) SystemOutput(ctx context.Context, msg string) error {
	return h.enc.Encode(map[string]string{"system": msg})
}
