package cards

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Save writes the table as JSON, going through a temp file so a reader never
// sees a half-written table.
func Save(path string, t *Table) error {
	doc := make(map[string]record, t.Len())
	for _, e := range t.Entries() {
		doc[e.UID] = record{Name: e.Name, Command: e.Command}
	}

	data, err := json.MarshalIndent(doc, "", "    ")
	if err != nil {
		return fmt.Errorf("encode card table: %w", err)
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create card table directory: %w", err)
		}
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename card table: %w", err)
	}
	return nil
}
