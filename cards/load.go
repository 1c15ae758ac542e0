package cards

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/pelletier/go-toml/v2/unstable"
	"gopkg.in/yaml.v3"
)

// Format identifies a table file encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
)

// FormatFor picks the encoding from a file extension. Unknown extensions are
// treated as JSON, which is what the enrollment tool writes.
func FormatFor(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".toml":
		return FormatTOML
	default:
		return FormatJSON
	}
}

// record is the on-disk value for one UID. The Spanish field names are what
// older playlists written by the first enrollment scripts use.
type record struct {
	Name    string   `json:"name" yaml:"name" toml:"name"`
	Command []string `json:"command" yaml:"command" toml:"command"`
	Nombre  string   `json:"nombre,omitempty" yaml:"nombre,omitempty" toml:"nombre,omitempty"`
	Comando []string `json:"comando,omitempty" yaml:"comando,omitempty" toml:"comando,omitempty"`
}

func (r record) entry(uid string) Entry {
	e := Entry{UID: uid, Name: r.Name, Command: r.Command}
	if e.Name == "" {
		e.Name = r.Nombre
	}
	if len(e.Command) == 0 {
		e.Command = r.Comando
	}
	return e
}

// Load reads a card table from disk.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read card table: %w", err)
	}
	t, err := Parse(data, FormatFor(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a card table. Duplicate UID keys are rejected with
// ErrDuplicateUID.
func Parse(data []byte, format Format) (*Table, error) {
	switch format {
	case FormatYAML:
		return parseYAML(data)
	case FormatTOML:
		return parseTOML(data)
	case FormatJSON:
		return parseJSON(data)
	default:
		return nil, fmt.Errorf("unsupported table format %q", format)
	}
}

// parseJSON walks the top-level object token by token; encoding/json would
// otherwise keep the last of two identical keys without complaint.
func parseJSON(data []byte) (*Table, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return New(nil)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("decode JSON: table must be an object")
	}

	var entries []Entry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("decode JSON: %w", err)
		}
		uid, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("decode JSON: unexpected key %v", tok)
		}
		var r record
		if err := dec.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode card %s: %w", uid, err)
		}
		entries = append(entries, r.entry(uid))
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("decode JSON: %w", err)
	}
	return New(entries)
}

// parseYAML walks the top-level mapping node by node. Keys are taken as
// written: an unquoted 00112233 stays a UID instead of becoming a number, and
// repeated keys survive long enough to be reported.
func parseYAML(data []byte) (*Table, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode YAML: %w", err)
	}
	if len(doc.Content) == 0 {
		return New(nil)
	}

	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("decode YAML: table must be a mapping (line %d)", root.Line)
	}

	entries := make([]Entry, 0, len(root.Content)/2)
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, value := root.Content[i], root.Content[i+1]
		if key.Kind != yaml.ScalarNode {
			return nil, fmt.Errorf("decode YAML: card key on line %d is not a scalar", key.Line)
		}
		uid := key.Value

		var r record
		if err := value.Decode(&r); err != nil {
			return nil, fmt.Errorf("decode card %s: %w", uid, err)
		}
		entries = append(entries, r.entry(uid))
	}
	return New(entries)
}

func parseTOML(data []byte) (*Table, error) {
	if uid, dup := repeatedTOMLKey(data); dup {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateUID, uid)
	}

	var doc map[string]record
	if err := toml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode TOML: %w", err)
	}

	uids := make([]string, 0, len(doc))
	for uid := range doc {
		uids = append(uids, uid)
	}
	sort.Strings(uids)

	entries := make([]Entry, 0, len(uids))
	for _, uid := range uids {
		entries = append(entries, doc[uid].entry(uid))
	}
	return New(entries)
}

// repeatedTOMLKey finds a card defined twice, either as two [uid] tables or
// as a top-level key and a table. Syntax errors are left to the decoder.
func repeatedTOMLKey(data []byte) (string, bool) {
	var p unstable.Parser
	p.Reset(data)

	seen := make(map[string]bool)
	inTable := false
	for p.NextExpression() {
		expr := p.Expression()
		switch expr.Kind {
		case unstable.Table, unstable.ArrayTable:
			inTable = true
		case unstable.KeyValue:
			if inTable {
				continue
			}
		default:
			continue
		}

		var key []string
		for it := expr.Key(); it.Next(); {
			key = append(key, string(it.Node().Data))
		}
		if len(key) != 1 {
			continue
		}
		if seen[key[0]] {
			return key[0], true
		}
		seen[key[0]] = true
	}
	return "", false
}
