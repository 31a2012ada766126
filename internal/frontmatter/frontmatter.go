// Package frontmatter splits markdown content files into a YAML frontmatter
// block and a markdown body.
//
// A content file looks like:
//
//	---
//	title: Mandala Starter Kit
//	price: 1499
//	images:
//	  - /images/kits/mandala-1.jpg
//	---
//	# Mandala
//
//	Everything you need for your first piece.
//
// The block between the delimiters is decoded with gopkg.in/yaml.v3, so any
// YAML the authors write (floats, nested maps, lists of maps) is accepted.
// Splitting is byte-oriented and never copies the body.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"
)

const (
	frontmatterDelimiter = "---"
	maxFrontmatterLines  = 500 // Default line limit; override with WithLineLimit.
)

var (
	frontmatterDelimiterBytes = []byte(frontmatterDelimiter)
	utf8BOM                   = []byte("\xef\xbb\xbf")
)

// Errors returned by Split and Decode.
var (
	ErrMissingOpeningDelimiter = errors.New("parse frontmatter: missing opening delimiter")
	ErrMissingClosingDelimiter = errors.New("parse frontmatter: missing closing delimiter")
	ErrLineLimit               = errors.New("parse frontmatter: exceeds maximum line limit")
)

// ParseOptions configures frontmatter parsing behavior.
type ParseOptions struct {
	// LineLimit is the maximum number of frontmatter lines allowed. A value of 0
	// disables the line limit.
	LineLimit int
	// RequireDelimiter enforces the opening '---' delimiter when true. When
	// false, input without an opening delimiter is treated as body-only.
	RequireDelimiter bool
	// TrimLeadingBlankTail removes leading newline(s) from the body after the
	// closing delimiter.
	TrimLeadingBlankTail bool
}

// ParseOption mutates ParseOptions.
type ParseOption func(*ParseOptions)

// WithLineLimit sets the maximum number of frontmatter lines. Use 0 to disable
// the limit entirely.
func WithLineLimit(limit int) ParseOption {
	return func(opts *ParseOptions) {
		if limit < 0 {
			limit = 0
		}

		opts.LineLimit = limit
	}
}

// WithRequireDelimiter toggles whether the opening '---' delimiter is required.
func WithRequireDelimiter(required bool) ParseOption {
	return func(opts *ParseOptions) {
		opts.RequireDelimiter = required
	}
}

// WithTrimLeadingBlankTail removes leading newline(s) from the body after the
// closing delimiter.
func WithTrimLeadingBlankTail(trim bool) ParseOption {
	return func(opts *ParseOptions) {
		opts.TrimLeadingBlankTail = trim
	}
}

// Split separates src into the raw YAML block and the body that follows the
// closing delimiter. Both slices alias src.
//
// Defaults: RequireDelimiter=true, LineLimit=500, TrimLeadingBlankTail=true.
//
// When the opening delimiter is absent and not required, block is nil and
// body is the whole input (minus a UTF-8 BOM).
func Split(src []byte, opts ...ParseOption) ([]byte, []byte, error) {
	options := applyParseOptions(opts)

	src = bytes.TrimPrefix(src, utf8BOM)
	source := sliceLineSource(src)

	first, ok := source.next()
	if !ok || !bytes.Equal(first.data, frontmatterDelimiterBytes) {
		if options.RequireDelimiter {
			return nil, nil, ErrMissingOpeningDelimiter
		}

		return nil, src, nil
	}

	blockStart := source.idx
	lines := 0

	for {
		tok, ok := source.next()
		if !ok {
			return nil, nil, ErrMissingClosingDelimiter
		}

		if bytes.Equal(tok.data, frontmatterDelimiterBytes) {
			block := src[blockStart:tok.start]
			body := source.remainder()

			if options.TrimLeadingBlankTail {
				body = trimLeadingBlankLinesBytes(body)
			}

			return block, body, nil
		}

		lines++
		if options.LineLimit > 0 && lines > options.LineLimit {
			return nil, nil, ErrLineLimit
		}
	}
}

// Decode splits src, unmarshals the frontmatter block into v and returns the
// body. An empty block leaves v untouched.
func Decode(src []byte, v any, opts ...ParseOption) ([]byte, error) {
	block, body, err := Split(src, opts...)
	if err != nil {
		return nil, err
	}

	if len(bytes.TrimSpace(block)) == 0 {
		return body, nil
	}

	err = yaml.Unmarshal(block, v)
	if err != nil {
		return nil, fmt.Errorf("decode frontmatter: %w", err)
	}

	return body, nil
}

// Frontmatter maps top-level keys to decoded YAML values.
type Frontmatter map[string]any

// Parse splits src and decodes the block into a generic map.
func Parse(src []byte, opts ...ParseOption) (Frontmatter, []byte, error) {
	fm := Frontmatter{}

	body, err := Decode(src, &fm, opts...)
	if err != nil {
		return nil, nil, err
	}

	return fm, body, nil
}

// GetString returns the string value for key.
// Returns ("", false) if key is missing or not a string.
func (fm Frontmatter) GetString(key string) (string, bool) {
	s, ok := fm[key].(string)

	return s, ok
}

// GetFloat returns the numeric value for key. YAML integers are widened.
// Returns (0, false) if key is missing or not numeric.
func (fm Frontmatter) GetFloat(key string) (float64, bool) {
	switch n := fm[key].(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

// GetList returns the string slice for key. Non-string items make the lookup
// fail rather than being silently dropped.
func (fm Frontmatter) GetList(key string) ([]string, bool) {
	raw, ok := fm[key].([]any)
	if !ok {
		return nil, false
	}

	out := make([]string, 0, len(raw))

	for _, item := range raw {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}

		out = append(out, s)
	}

	return out, true
}

func applyParseOptions(opts []ParseOption) ParseOptions {
	options := ParseOptions{
		LineLimit:            maxFrontmatterLines,
		RequireDelimiter:     true,
		TrimLeadingBlankTail: true,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	return options
}

type lineToken struct {
	data  []byte // line content without newline, CR or trailing spaces
	start int    // offset of the line in the source
}

type sliceLineReader struct {
	data []byte
	idx  int
}

func sliceLineSource(data []byte) *sliceLineReader {
	return &sliceLineReader{data: data}
}

func (s *sliceLineReader) next() (lineToken, bool) {
	if s.idx >= len(s.data) {
		return lineToken{}, false
	}

	start := s.idx
	rest := s.data[start:]

	end := bytes.IndexByte(rest, '\n')
	if end < 0 {
		s.idx = len(s.data)
	} else {
		s.idx = start + end + 1
		rest = rest[:end]
	}

	return lineToken{data: bytes.TrimRight(trimCRBytes(rest), " \t"), start: start}, true
}

func (s *sliceLineReader) remainder() []byte {
	if s.idx >= len(s.data) {
		return []byte{}
	}

	return s.data[s.idx:]
}

func trimCRBytes(line []byte) []byte {
	if len(line) > 0 && line[len(line)-1] == '\r' {
		return line[:len(line)-1]
	}

	return line
}

func trimLeadingBlankLinesBytes(tail []byte) []byte {
	for len(tail) > 0 {
		if tail[0] == '\n' {
			tail = tail[1:]

			continue
		}

		if tail[0] == '\r' {
			if len(tail) >= 2 && tail[1] == '\n' {
				tail = tail[2:]

				continue
			}
		}

		break
	}

	return tail
}
