package store

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	gojson "github.com/goccy/go-json"

	"github.com/sverrirab/generic-rest/internal/record"
)

// jsonIndent matches the layout of files written by earlier versions of
// the service: 4 spaces, sorted keys, no trailing newline.
const jsonIndent = "    "

// JSONFile stores the table as a single JSON object in a file.
type JSONFile struct {
	path string
}

// NewJSONFile creates a persister for path. The file is not touched until
// Load or Save.
func NewJSONFile(path string) *JSONFile {
	return &JSONFile{path: path}
}

// Load implements Persister. A missing or blank file is an empty table.
func (f *JSONFile) Load() (map[string]record.Record, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]record.Record{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}
	return DecodeJSON(data)
}

// DecodeJSON parses the persisted JSON form.
func DecodeJSON(data []byte) (map[string]record.Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]record.Record{}, nil
	}
	var out map[string]record.Record
	if err := gojson.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}
	if out == nil {
		out = map[string]record.Record{}
	}
	return out, nil
}

// EncodeJSON renders the table in the persisted JSON form.
func EncodeJSON(data map[string]record.Record) ([]byte, error) {
	plain := make(map[string]map[string]any, len(data))
	for id, rec := range data {
		plain[id] = rec.Plain()
	}
	out, err := gojson.MarshalIndentWithOption(plain, "", jsonIndent, gojson.DisableHTMLEscape())
	if err != nil {
		return nil, fmt.Errorf("encode records: %w", err)
	}
	return out, nil
}

// Save implements Persister. The file is replaced atomically: the data is
// written to a temporary file in the same directory, synced, then renamed
// over the target.
func (f *JSONFile) Save(data map[string]record.Record) error {
	encoded, err := EncodeJSON(data)
	if err != nil {
		return err
	}

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		return fmt.Errorf("write %s: %w", tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync %s: %w", tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmpName, err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod %s: %w", tmpName, err)
	}
	if err := os.Rename(tmpName, f.path); err != nil {
		return fmt.Errorf("rename to %s: %w", f.path, err)
	}
	return nil
}

// Close implements Persister.
func (f *JSONFile) Close() error { return nil }

// String implements Persister.
func (f *JSONFile) String() string { return f.path }
