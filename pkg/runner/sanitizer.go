package runner

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultMaxInputSize caps a single message at 4KB unless overridden.
	DefaultMaxInputSize = 4096
	// EnvMaxInputSize overrides the cap with a positive byte count.
	EnvMaxInputSize = "PARLEY_MAX_INPUT_SIZE"
)

var (
	ErrInputTooLarge = errors.New("input exceeds maximum allowed size")
	ErrInvalidUTF8   = errors.New("input contains invalid UTF-8 sequences")
)

// SanitizeInput enforces the size cap, validates UTF-8 and strips
// control characters before a message reaches the engine. Oversized or
// malformed input is rejected outright; truncating or repairing it
// would hand the matcher a message the user never typed.
func SanitizeInput(input string) (string, error) {
	limit := maxInputSize()
	if len(input) > limit {
		return "", fmt.Errorf("%w: size=%d limit=%d", ErrInputTooLarge, len(input), limit)
	}
	if !utf8.ValidString(input) {
		return "", ErrInvalidUTF8
	}

	// Keep \n, \t and \r; drop the rest of the control range so pasted
	// ANSI sequences cannot poison logs or corrupt the terminal.
	if strings.IndexFunc(input, isUnsafeRune) < 0 {
		return input, nil
	}
	return strings.Map(func(r rune) rune {
		if isUnsafeRune(r) {
			return -1
		}
		return r
	}, input), nil
}

func isUnsafeRune(r rune) bool {
	switch r {
	case '\n', '\t', '\r':
		return false
	}
	return unicode.IsControl(r)
}

func maxInputSize() int {
	raw := os.Getenv(EnvMaxInputSize)
	if raw == "" {
		return DefaultMaxInputSize
	}
	size, err := strconv.Atoi(raw)
	if err != nil || size <= 0 {
		return DefaultMaxInputSize
	}
	return size
}
