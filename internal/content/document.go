package content

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

const (
	dirPerms  = 0o755
	filePerms = 0o644
)

// Marshal encodes doc deterministically: struct field order, sorted map keys,
// two-space indent, unescaped HTML and a trailing newline.
func Marshal(doc *Document) ([]byte, error) {
	var buf bytes.Buffer

	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")

	err := enc.Encode(doc)
	if err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}

	return buf.Bytes(), nil
}

// WriteDocument atomically replaces path with the encoded document, creating
// parent directories as needed.
func WriteDocument(path string, doc *Document) error {
	data, err := Marshal(doc)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(path), dirPerms)
	if err != nil {
		return fmt.Errorf("creating output dir: %w", err)
	}

	err = atomic.WriteFile(path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("writing document: %w", err)
	}

	// atomic.WriteFile creates the temp file 0600; the document is public.
	err = os.Chmod(path, filePerms)
	if err != nil {
		return fmt.Errorf("setting document permissions: %w", err)
	}

	return nil
}

// LoadDocument reads a document written by WriteDocument.
func LoadDocument(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}

		return nil, fmt.Errorf("reading document: %w", err)
	}

	var doc Document

	err = json.Unmarshal(data, &doc)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", ErrDocumentInvalid, path, err)
	}

	if doc.Gallery.Entries == nil {
		doc.Gallery.Entries = map[string]GalleryEntry{}
	}

	return &doc, nil
}
