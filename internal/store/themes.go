package store

import (
	"context"
	"path/filepath"
	"time"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
)

func themeFilePath(name string) string {
	return filepath.Join("projectManagement", "Themes", name+".json")
}

const themesIndexPath = "projectManagement/Themes/themes.json"

// defaultSharedFileThreshold matches spec §3's default: no file is shared
// by more than this many themes without flagging.
const defaultSharedFileThreshold = 3

// CreateTheme persists a new theme's definition and registers its shared
// files. Discovery (spec §3: "Discovered at init; user-approved before
// write") happens in internal/themeflow; this is the write-through once a
// theme has been approved.
func (s *Store) CreateTheme(ctx context.Context, t *model.Theme) error {
	path := themeFilePath(t.Name)
	content, err := EncodeJSON(path, t)
	if err != nil {
		return err
	}

	stmts := []Stmt{{
		Query: `INSERT INTO theme_status (name, category, file_paths, linked_themes, keywords, created_at, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
		Args: []any{t.Name, t.Category, marshalJSON(t.Files), marshalJSON(t.LinkedNames), marshalJSON(t.Keywords), nowISO(), nowISO()},
	}}
	for path, entry := range t.SharedFiles {
		stmts = append(stmts, Stmt{
			Query: `INSERT INTO theme_shared_files (file_path, theme_name, description) VALUES (?, ?, ?)
				ON CONFLICT(file_path, theme_name) DO UPDATE SET description = excluded.description`,
			Args: []any{path, t.Name, entry.Description},
		})
	}

	return s.Apply(ctx, ChangeSet{
		Kind: "theme",
		Stmts:  stmts,
		Files:  []FileWrite{{Path: path, Content: content}},
		Notify: []Notification{{Kind: "theme", ID: t.Name, Action: "created"}},
	})
}

// GetTheme returns a theme row plus its shared-file entries, or NotFound.
func (s *Store) GetTheme(ctx context.Context, name string) (*model.Theme, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT name, category, file_paths, linked_themes, keywords FROM theme_status WHERE name = ?`, name)
	var t model.Theme
	var files, linked, keywords string
	if err := row.Scan(&t.Name, &t.Category, &files, &linked, &keywords); err != nil {
		return nil, model.Wrap(model.ErrNotFound, err, "theme %s not found", name)
	}
	t.Files = unmarshalJSON[[]string](files)
	t.LinkedNames = unmarshalJSON[[]string](linked)
	t.Keywords = unmarshalJSON[[]string](keywords)

	rows, err := s.db.QueryContext(ctx, `SELECT file_path, description FROM theme_shared_files WHERE theme_name = ?`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	t.SharedFiles = map[string]model.SharedFileEntry{}
	for rows.Next() {
		var fp, desc string
		if err := rows.Scan(&fp, &desc); err != nil {
			return nil, err
		}
		entry := t.SharedFiles[fp]
		entry.Themes = append(entry.Themes, name)
		entry.Description = desc
		t.SharedFiles[fp] = entry
	}
	return &t, nil
}

// ThemesSharingFile returns every theme name registered against a file
// path, used by ThemeFlowIndex to enforce the shared-file threshold.
func (s *Store) ThemesSharingFile(ctx context.Context, filePath string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT theme_name FROM theme_shared_files WHERE file_path = ?`, filePath)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, nil
}

// RegisterSharedFileEntry records one theme→file association and reports
// the post-write sharing count for threshold evaluation.
func (s *Store) RegisterSharedFileEntry(ctx context.Context, filePath, themeName, description string) (sharedCount int, err error) {
	err = s.Apply(ctx, ChangeSet{
		Kind: "theme",
		Stmts: []Stmt{{
			Query: `INSERT INTO theme_shared_files (file_path, theme_name, description) VALUES (?, ?, ?)
				ON CONFLICT(file_path, theme_name) DO UPDATE SET description = excluded.description`,
			Args: []any{filePath, themeName, description},
		}},
	})
	if err != nil {
		return 0, err
	}
	names, err := s.ThemesSharingFile(ctx, filePath)
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

// AllThemeFiles returns every registered theme name mapped to its file
// list, used by GitBridge's direct-mapping impact inference.
func (s *Store) AllThemeFiles(ctx context.Context) (map[string][]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name, file_paths FROM theme_status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := map[string][]string{}
	for rows.Next() {
		var name, files string
		if err := rows.Scan(&name, &files); err != nil {
			return nil, err
		}
		out[name] = unmarshalJSON[[]string](files)
	}
	return out, nil
}

// WriteThemesIndex rewrites the top-level themes.json index — the
// user-editable summary file listing every theme name plus an updatedAt
// timestamp (spec §6 on-disk layout).
func (s *Store) WriteThemesIndex(ctx context.Context, names []string) error {
	content, err := EncodeJSON(themesIndexPath, map[string]any{
		"themes":    names,
		"updatedAt": time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	})
	if err != nil {
		return err
	}
	return s.Apply(ctx, ChangeSet{
		Kind: "theme",
		Files: []FileWrite{{Path: themesIndexPath, Content: content}},
	})
}
