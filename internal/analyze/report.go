package analyze

import "strings"

// ChapterConcept is a concept called out within one chapter's analysis.
type ChapterConcept struct {
	Concept     string `json:"concept"`
	Explanation string `json:"explanation"`
}

// ChapterEntry is one chapter's merged analysis.
type ChapterEntry struct {
	Number         string           `json:"chapter_number,omitempty"`
	Title          string           `json:"chapter_title"`
	Summary        string           `json:"summary"`
	KeyPoints      []string         `json:"key_points"`
	KeyConcepts    []ChapterConcept `json:"key_concepts,omitempty"`
	PracticalValue string           `json:"practical_value,omitempty"`
}

// ConceptEntry is one glossary term.
type ConceptEntry struct {
	Term         string `json:"term"`
	Definition   string `json:"definition"`
	Applications string `json:"applications"`
}

// TOCEntry is one table-of-contents row.
type TOCEntry struct {
	Number string `json:"chapter_number,omitempty"`
	Title  string `json:"title"`
}

// AggregateReport is the merged result of all analysis stages for one book.
// String fields follow a first-wins policy except Overview, which
// concatenates fragments; list fields append in stage order.
type AggregateReport struct {
	Title            string         `json:"title"`
	Author           string         `json:"author"`
	AuthorBackground string         `json:"author_background,omitempty"`
	Overview         string         `json:"overview"`
	MainThemes       []string       `json:"main_themes,omitempty"`
	TableOfContents  []TOCEntry     `json:"table_of_contents,omitempty"`
	Chapters         []ChapterEntry `json:"chapter_analysis"`
	KeyConcepts      []ConceptEntry `json:"key_concepts"`

	CriticalAnalysis      string `json:"critical_analysis,omitempty"`
	ComparativeAnalysis   string `json:"comparative_analysis,omitempty"`
	ReaderRecommendations string `json:"reader_recommendations,omitempty"`
	Conclusion            string `json:"conclusion,omitempty"`
}

// setFirst assigns v to dst only when dst is still empty: an earlier stage's
// non-empty value is never overwritten by a later one.
func setFirst(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" && strings.TrimSpace(v) != "" {
		*dst = v
	}
}

// appendText concatenates a fragment onto dst with a space separator.
func appendText(dst *string, v string) {
	v = strings.TrimSpace(v)
	if v == "" {
		return
	}
	if *dst == "" {
		*dst = v
		return
	}
	*dst += " " + v
}

// ValidChapter reports whether an entry carries enough content to keep.
// Entries rejected here are logged by the orchestrator, never dropped
// silently.
func ValidChapter(c ChapterEntry) bool {
	return strings.TrimSpace(c.Title) != "" || strings.TrimSpace(c.Summary) != ""
}

const maxKeyPoints = 10

// clampChapter trims oversized key-point lists and blank entries. The second
// return is the number of points removed, for the orchestrator's drop log.
func clampChapter(c ChapterEntry) (ChapterEntry, int) {
	points := c.KeyPoints[:0:0]
	dropped := 0
	for _, p := range c.KeyPoints {
		if strings.TrimSpace(p) != "" {
			points = append(points, p)
		} else {
			dropped++
		}
	}
	if len(points) > maxKeyPoints {
		dropped += len(points) - maxKeyPoints
		points = points[:maxKeyPoints]
	}
	c.KeyPoints = points
	return c, dropped
}

// Empty reports whether no stage contributed any content at all.
func (r *AggregateReport) Empty() bool {
	return r.Title == "" && r.Author == "" && r.Overview == "" &&
		len(r.Chapters) == 0 && len(r.KeyConcepts) == 0 &&
		len(r.TableOfContents) == 0 && r.Conclusion == ""
}

// WalkText applies fn to every free-text field in place. Structural fields
// (chapter numbers, TOC numbers) are left alone. Used for script
// normalization and translation passes.
func (r *AggregateReport) WalkText(fn func(string) string) {
	r.Title = fn(r.Title)
	r.Author = fn(r.Author)
	r.AuthorBackground = fn(r.AuthorBackground)
	r.Overview = fn(r.Overview)
	for i := range r.MainThemes {
		r.MainThemes[i] = fn(r.MainThemes[i])
	}
	for i := range r.TableOfContents {
		r.TableOfContents[i].Title = fn(r.TableOfContents[i].Title)
	}
	for i := range r.Chapters {
		ch := &r.Chapters[i]
		ch.Title = fn(ch.Title)
		ch.Summary = fn(ch.Summary)
		for j := range ch.KeyPoints {
			ch.KeyPoints[j] = fn(ch.KeyPoints[j])
		}
		for j := range ch.KeyConcepts {
			ch.KeyConcepts[j].Concept = fn(ch.KeyConcepts[j].Concept)
			ch.KeyConcepts[j].Explanation = fn(ch.KeyConcepts[j].Explanation)
		}
		ch.PracticalValue = fn(ch.PracticalValue)
	}
	for i := range r.KeyConcepts {
		kc := &r.KeyConcepts[i]
		kc.Term = fn(kc.Term)
		kc.Definition = fn(kc.Definition)
		kc.Applications = fn(kc.Applications)
	}
	r.CriticalAnalysis = fn(r.CriticalAnalysis)
	r.ComparativeAnalysis = fn(r.ComparativeAnalysis)
	r.ReaderRecommendations = fn(r.ReaderRecommendations)
	r.Conclusion = fn(r.Conclusion)
}
