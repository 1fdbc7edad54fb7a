package diagnostics

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseReport decodes either one document object or an array of them.
func ParseReport(r io.Reader) ([]Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, errors.New("report is empty")
	}

	var docs []Document
	if data[0] == '[' {
		if err := json.Unmarshal(data, &docs); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
	} else {
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		docs = []Document{doc}
	}

	if err := Normalize(docs); err != nil {
		return nil, err
	}
	return docs, nil
}

// Normalize validates docs in place: uri is trimmed and required, lines must be
// non-negative, and a missing severity becomes error.
func Normalize(docs []Document) error {
	for i := range docs {
		if err := normalizeDocument(&docs[i]); err != nil {
			return fmt.Errorf("document %d: %w", i, err)
		}
	}
	return nil
}

func normalizeDocument(doc *Document) error {
	doc.URI = strings.TrimSpace(doc.URI)
	if doc.URI == "" {
		return errors.New("uri is required")
	}
	for i := range doc.Diagnostics {
		d := &doc.Diagnostics[i]
		if d.Line < 0 {
			return fmt.Errorf("diagnostic %d: line must be >= 0", i)
		}
		if d.Severity == "" {
			d.Severity = SeverityError
		}
	}
	return nil
}
