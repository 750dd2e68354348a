package store

import (
	"bytes"
	"encoding/json"
	"strings"
)

// userEditableSuffixes lists the path suffixes the spec calls out as files a
// human may hand-edit (themes.json, per-theme files, UserSettings/config.json).
// Per SPEC_FULL's Open Question decision, these are always written indented;
// everything else is minified by default (spec §4.1's minifyJson policy).
var userEditableSuffixes = []string{
	"Themes/themes.json",
	"UserSettings/config.json",
}

func isUserEditable(path string) bool {
	for _, suf := range userEditableSuffixes {
		if len(path) >= len(suf) && path[len(path)-len(suf):] == suf {
			return true
		}
	}
	// Individual theme files (Themes/<name>.json) are also user-editable.
	return strings.HasSuffix(path, ".json") && (strings.HasPrefix(path, "Themes/") || strings.Contains(path, "/Themes/"))
}

// EncodeJSON renders v as either indented or minified JSON depending on the
// target path's editability, keeping minification round-trip stable (same
// key order as encoding/json's struct-field order) per spec §4.1.
func EncodeJSON(path string, v any) ([]byte, error) {
	if isUserEditable(path) {
		return json.MarshalIndent(v, "", "  ")
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
