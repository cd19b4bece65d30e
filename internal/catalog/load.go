package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Source names the two export files a catalog is built from.
type Source struct {
	QuestionsPath string
	TestsPath     string
	CutoffTopic   string
}

// Load reads both export files, validates their shape, and builds the
// catalog. Malformed individual records are dropped and counted; a file
// that is missing or not a JSON array of objects is an error.
func Load(src Source, logger *slog.Logger) (*Catalog, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	qRecords, err := readExport(src.QuestionsPath, QuestionsExportSchema)
	if err != nil {
		return nil, err
	}
	tRecords, err := readExport(src.TestsPath, TestsExportSchema)
	if err != nil {
		return nil, err
	}

	questions, dropped := BuildQuestions(qRecords)
	defs := ParseDefinitions(tRecords)
	retained := Truncate(defs, src.CutoffTopic)

	if src.CutoffTopic != "" && !hasTopic(defs, src.CutoffTopic) {
		logger.Warn("cutoff topic not found, keeping all definitions", "cutoff", src.CutoffTopic)
	}
	if dropped > 0 {
		logger.Warn("discarded malformed questions", "count", dropped, "file", src.QuestionsPath)
	}

	c := Build(questions, retained)
	logger.Debug("catalog loaded",
		"questions", len(questions),
		"in_scope", c.Len(),
		"definitions", len(defs),
		"retained", len(retained),
		"topics", len(c.topics),
	)
	return c, nil
}

// readExport reads a JSON export file, strips a UTF-8 BOM, validates it
// against schema, and returns its top-level records.
func readExport(path string, schema *Schema) ([]json.RawMessage, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return decodeExport(raw, path, schema)
}

func decodeExport(raw []byte, name string, schema *Schema) ([]json.RawMessage, error) {
	raw = bytes.TrimPrefix(raw, utf8BOM)

	if err := validateDocument(schema, raw); err != nil {
		return nil, fmt.Errorf("invalid export %s (%d bytes): %w", name, len(raw), err)
	}

	var records []json.RawMessage
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("decode %s: %w", name, err)
	}
	return records, nil
}

func hasTopic(defs []TopicDefinition, topic string) bool {
	for _, d := range defs {
		if d.Topic == topic {
			return true
		}
	}
	return false
}
