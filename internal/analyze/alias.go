package analyze

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// mergeDrops tallies entries rejected while merging one stage result. Every
// list entry a merge discards is counted here and logged by the orchestrator.
type mergeDrops struct {
	Chapters  int
	Concepts  int
	TOC       int
	Themes    int
	KeyPoints int
}

func (d mergeDrops) report(log *slog.Logger) {
	if d.Chapters > 0 {
		log.Warn("dropped invalid chapter entries", "count", d.Chapters)
	}
	if d.Concepts > 0 {
		log.Warn("dropped invalid concept entries", "count", d.Concepts)
	}
	if d.TOC > 0 {
		log.Warn("dropped invalid toc entries", "count", d.TOC)
	}
	if d.Themes > 0 {
		log.Warn("dropped blank theme entries", "count", d.Themes)
	}
	if d.KeyPoints > 0 {
		log.Warn("dropped key points over the per-chapter limit", "count", d.KeyPoints)
	}
}

// Stages and models use different key names for semantically identical
// fields (English, Chinese, and synonym variants). Each canonical field has
// a priority-ordered alias list; resolution takes the first present,
// non-empty alias. This table replaces per-call-site synonym handling.
var fieldAliases = map[string][]string{
	"title":             {"full_title", "title", "書名", "完整書名", "標題"},
	"author":            {"author", "作者", "作者姓名"},
	"author_background": {"author_background", "作者背景"},
	"overview": {
		"comprehensive_overview", "book_overview", "overview",
		"executive_summary", "summary", "partial_overview",
		"摘要", "書籍概述", "重點摘要",
	},
	"main_themes":       {"main_themes", "themes", "主要主題"},
	"table_of_contents": {"table_of_contents", "toc", "estimated_structure", "目錄"},
	"chapters": {
		"chapter_analysis", "identified_chapters", "chapters",
		"各章節詳細內容", "章節分析",
	},
	"key_concepts":           {"key_concepts", "關鍵概念"},
	"critical_analysis":      {"critical_analysis", "批判性分析"},
	"comparative_analysis":   {"comparative_analysis", "比較分析"},
	"reader_recommendations": {"reader_recommendations", "reading_guide", "讀者建議", "讀者導讀"},
	"conclusion":             {"conclusion", "final_evaluation", "結論", "書籍評價"},
}

// aliasValue resolves the canonical field to its first present alias value.
func aliasValue(m map[string]any, field string) (any, bool) {
	for _, key := range fieldAliases[field] {
		if v, ok := m[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// aliasString resolves a canonical string field; empty strings don't count
// as present.
func aliasString(m map[string]any, field string) string {
	for _, key := range fieldAliases[field] {
		if v, ok := m[key]; ok {
			if s := asString(v); strings.TrimSpace(s) != "" {
				return s
			}
		}
	}
	return ""
}

// aliasStringList resolves a canonical list-of-strings field. The second
// return is the number of blank or non-string entries rejected.
func aliasStringList(m map[string]any, field string) ([]string, int) {
	v, ok := aliasValue(m, field)
	if !ok {
		return nil, 0
	}
	items, ok := v.([]any)
	if !ok {
		return nil, 0
	}
	var out []string
	dropped := 0
	for _, it := range items {
		if s := asString(it); strings.TrimSpace(s) != "" {
			out = append(out, s)
		} else {
			dropped++
		}
	}
	return out, dropped
}

func asString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return ""
	}
}

// coerce re-marshals a generic value into the typed destination. Models
// return loosely-shaped structures; the JSON round trip tolerates missing
// and extra keys.
func coerce(v any, dst any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

// aliasChapters resolves and decodes the chapter list. A map-of-title-to-
// content form (seen from some models) is converted to the list form. The
// second return is the number of entries that failed to decode.
func aliasChapters(m map[string]any, field string) ([]ChapterEntry, int) {
	v, ok := aliasValue(m, field)
	if !ok {
		return nil, 0
	}

	switch val := v.(type) {
	case []any:
		var out []ChapterEntry
		dropped := 0
		for _, it := range val {
			switch entry := it.(type) {
			case map[string]any:
				var ch ChapterEntry
				if err := coerce(entry, &ch); err != nil {
					dropped++
					continue
				}
				// Some models answer with "title"/"content" keys.
				if ch.Title == "" {
					ch.Title = asString(entry["title"])
				}
				if ch.Summary == "" {
					ch.Summary = asString(entry["content"])
				}
				out = append(out, ch)
			case string:
				out = append(out, ChapterEntry{Summary: entry})
			default:
				dropped++
			}
		}
		return out, dropped
	case map[string]any:
		titles := make([]string, 0, len(val))
		for title := range val {
			titles = append(titles, title)
		}
		sort.Strings(titles)
		var out []ChapterEntry
		for _, title := range titles {
			out = append(out, ChapterEntry{Title: title, Summary: asString(val[title])})
		}
		return out, 0
	}
	return nil, 0
}

// aliasConcepts resolves and decodes the key-concept glossary. The second
// return is the number of entries rejected for a blank term or a shape that
// failed to decode.
func aliasConcepts(m map[string]any, field string) ([]ConceptEntry, int) {
	v, ok := aliasValue(m, field)
	if !ok {
		return nil, 0
	}
	var out []ConceptEntry
	if err := coerce(v, &out); err != nil {
		if items, ok := v.([]any); ok {
			return nil, len(items)
		}
		return nil, 1
	}
	var kept []ConceptEntry
	dropped := 0
	for _, c := range out {
		if strings.TrimSpace(c.Term) != "" {
			kept = append(kept, c)
		} else {
			dropped++
		}
	}
	return kept, dropped
}

// aliasTOC resolves and decodes the table of contents. The second return is
// the number of entries rejected for a missing title or a shape that failed
// to decode.
func aliasTOC(m map[string]any, field string) ([]TOCEntry, int) {
	v, ok := aliasValue(m, field)
	if !ok {
		return nil, 0
	}
	items, ok := v.([]any)
	if !ok {
		return nil, 0
	}
	var out []TOCEntry
	dropped := 0
	for _, it := range items {
		switch entry := it.(type) {
		case map[string]any:
			var toc TOCEntry
			if err := coerce(entry, &toc); err != nil {
				dropped++
				continue
			}
			if toc.Title == "" {
				toc.Title = asString(entry["chapter_title"])
			}
			if toc.Title != "" {
				out = append(out, toc)
			} else {
				dropped++
			}
		case string:
			if strings.TrimSpace(entry) != "" {
				out = append(out, TOCEntry{Title: entry})
			} else {
				dropped++
			}
		default:
			dropped++
		}
	}
	return out, dropped
}
