// Package themeflow maintains the bipartite theme↔flow relation as an edge
// table rather than embedded object references (spec §9 redesign), and
// resolves approximate theme/flow names the way an interactive selection
// list would, falling back to exact-match NotFound.
package themeflow

import (
	"context"
	"sort"

	"github.com/sahilm/fuzzy"

	"github.com/aryanduntley/AIProjectManager-sub003/internal/model"
	"github.com/aryanduntley/AIProjectManager-sub003/internal/store"
)

// Index is a read-through cache over the Store's theme/flow edge tables,
// adding keyword/category lookup and fuzzy name resolution on top.
type Index struct {
	store *store.Store

	themes map[string]*model.Theme
	flows  map[string]*model.Flow
}

// New builds an empty Index backed by st. Call Refresh to load it.
func New(st *store.Store) *Index {
	return &Index{
		store:  st,
		themes: map[string]*model.Theme{},
		flows:  map[string]*model.Flow{},
	}
}

// Refresh reloads the theme and flow caches from the Store. Cheap enough
// to call at the start of every session boot and after any write that
// touches themes or flows.
func (idx *Index) Refresh(ctx context.Context, themeNames, flowIDs []string) error {
	themes := make(map[string]*model.Theme, len(themeNames))
	for _, name := range themeNames {
		t, err := idx.store.GetTheme(ctx, name)
		if err != nil {
			return err
		}
		themes[name] = t
	}
	flows := make(map[string]*model.Flow, len(flowIDs))
	for _, id := range flowIDs {
		f, err := idx.store.GetFlow(ctx, id)
		if err != nil {
			return err
		}
		flows[id] = f
	}
	idx.themes = themes
	idx.flows = flows
	return nil
}

// Theme returns a cached theme by exact name.
func (idx *Index) Theme(name string) (*model.Theme, bool) {
	t, ok := idx.themes[name]
	return t, ok
}

// Flow returns a cached flow by exact id.
func (idx *Index) Flow(id string) (*model.Flow, bool) {
	f, ok := idx.flows[id]
	return f, ok
}

// FlowsForTheme delegates to the Store's edge table (the cache doesn't
// duplicate the bipartite relation itself, only the entity bodies).
func (idx *Index) FlowsForTheme(ctx context.Context, themeName string) ([]string, error) {
	return idx.store.FlowsForTheme(ctx, themeName)
}

// ThemesForFlow delegates to the Store's edge table.
func (idx *Index) ThemesForFlow(ctx context.Context, flowID string) ([]string, error) {
	return idx.store.ThemesForFlow(ctx, flowID)
}

// ByCategory returns every cached theme name in a category, sorted for
// stable output.
func (idx *Index) ByCategory(category string) []string {
	var out []string
	for name, t := range idx.themes {
		if t.Category == category {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

// ByKeyword returns every cached theme name whose keyword list contains
// the given keyword.
func (idx *Index) ByKeyword(keyword string) []string {
	var out []string
	for name, t := range idx.themes {
		for _, kw := range t.Keywords {
			if kw == keyword {
				out = append(out, name)
				break
			}
		}
	}
	sort.Strings(out)
	return out
}

// ResolveTheme finds the best-matching cached theme name for a possibly
// approximate query, falling back to NotFound when nothing is close.
// Mirrors a fuzzy-picker's ranked-list behavior rather than a hard
// substring match.
func (idx *Index) ResolveTheme(query string) (string, error) {
	if t, ok := idx.themes[query]; ok {
		return t.Name, nil
	}
	names := make([]string, 0, len(idx.themes))
	for name := range idx.themes {
		names = append(names, name)
	}
	matches := fuzzy.Find(query, names)
	if len(matches) == 0 {
		return "", model.New(model.ErrNotFound, "no theme resembling %q", query)
	}
	return matches[0].Str, nil
}

// ResolveFlow finds the best-matching cached flow id for a possibly
// approximate query.
func (idx *Index) ResolveFlow(query string) (string, error) {
	if f, ok := idx.flows[query]; ok {
		return f.FlowID, nil
	}
	ids := make([]string, 0, len(idx.flows))
	for id := range idx.flows {
		ids = append(ids, id)
	}
	matches := fuzzy.Find(query, ids)
	if len(matches) == 0 {
		return "", model.New(model.ErrNotFound, "no flow resembling %q", query)
	}
	return matches[0].Str, nil
}

// ValidateFlowReference checks that a flow id and its referenced step ids
// exist, honoring the validation.flowReferences project option's three
// modes: "smart" resolves approximate names before failing, "strict"
// requires an exact match, "disabled" skips the check entirely.
func (idx *Index) ValidateFlowReference(mode, flowID string, stepIDs []string) error {
	if mode == "disabled" {
		return nil
	}
	f, ok := idx.flows[flowID]
	if !ok && mode == "smart" {
		resolved, err := idx.ResolveFlow(flowID)
		if err != nil {
			return model.New(model.ErrUnknownFlowReference, "flow %q not found", flowID)
		}
		f = idx.flows[resolved]
		ok = true
	}
	if !ok {
		return model.New(model.ErrUnknownFlowReference, "flow %q not found", flowID)
	}
	known := make(map[string]bool, len(f.Steps))
	for _, s := range f.Steps {
		known[s.StepID] = true
	}
	for _, stepID := range stepIDs {
		if !known[stepID] {
			return model.New(model.ErrUnknownFlowReference, "flow %s has no step %q", flowID, stepID)
		}
	}
	return nil
}
