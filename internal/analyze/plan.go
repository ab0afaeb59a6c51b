package analyze

import "github.com/dgallion1/bookgest/internal/document"

// Selection names which part of the chunk sequence a stage consumes.
type Selection int

const (
	SelectAll   Selection = iota // all chunks joined
	SelectFirst                  // first chunk only
	SelectEach                   // one call per chunk
	SelectCover                  // head of the document plus its tail
	SelectNone                   // no excerpt; prompt built from derived fields
)

// PromptContext carries everything a stage prompt may draw on: the source
// document, the chunk sequence, the excerpt chosen by the stage's selection,
// and the report as built so far (for stages that depend on earlier results).
type PromptContext struct {
	Doc        *document.Document
	Chunks     []document.Chunk
	ChunkIndex int
	ChunkTotal int
	Excerpt    string
	Report     *AggregateReport
}

// Stage is one named step of a plan: a chunk selection, a prompt builder,
// and a merge function applying the normalized result to the report. Apply
// tallies every list entry it rejects into drops so the orchestrator can log
// the discards.
type Stage struct {
	Name   string
	Select Selection
	Prompt func(pc PromptContext) string
	Apply  func(r *AggregateReport, m map[string]any, drops *mergeDrops)
}

// StagePlan is an ordered sequence of stages. Plans are data: the
// orchestrator is generic over any plan, so single-pass and multi-stage
// analysis share one execution path.
type StagePlan struct {
	Name   string
	Stages []Stage
}

// SinglePassPlan analyzes the whole document with one comprehensive call.
func SinglePassPlan() StagePlan {
	return StagePlan{
		Name: "single-pass",
		Stages: []Stage{
			{
				Name:   "comprehensive",
				Select: SelectAll,
				Prompt: comprehensivePrompt,
				Apply:  applyComprehensive,
			},
		},
	}
}

// MultiStagePlan splits the analysis into dependent stages: base metadata
// first, then per-chunk chapter analysis, a concept glossary, and a final
// synthesis that consumes the derived title and author.
func MultiStagePlan() StagePlan {
	return StagePlan{
		Name: "multi-stage",
		Stages: []Stage{
			{
				Name:   "base",
				Select: SelectCover,
				Prompt: basePrompt,
				Apply:  applyBase,
			},
			{
				Name:   "chapters",
				Select: SelectEach,
				Prompt: chaptersPrompt,
				Apply:  applyChapters,
			},
			{
				Name:   "concepts",
				Select: SelectFirst,
				Prompt: conceptsPrompt,
				Apply:  applyConcepts,
			},
			{
				Name:   "synthesis",
				Select: SelectNone,
				Prompt: synthesisPrompt,
				Apply:  applySynthesis,
			},
		},
	}
}

// applyComprehensive maps a full single-pass result one-to-one onto the
// report, reconciling key-name synonyms through the alias table.
func applyComprehensive(r *AggregateReport, m map[string]any, drops *mergeDrops) {
	applyBase(r, m, drops)
	appendChapters(r, m, drops)
	applyConcepts(r, m, drops)
	applySynthesis(r, m, drops)
}

func applyBase(r *AggregateReport, m map[string]any, drops *mergeDrops) {
	setFirst(&r.Title, aliasString(m, "title"))
	setFirst(&r.Author, aliasString(m, "author"))
	setFirst(&r.AuthorBackground, aliasString(m, "author_background"))
	appendText(&r.Overview, aliasString(m, "overview"))
	if len(r.MainThemes) == 0 {
		themes, dropped := aliasStringList(m, "main_themes")
		r.MainThemes = themes
		drops.Themes += dropped
	}
	if len(r.TableOfContents) == 0 {
		toc, dropped := aliasTOC(m, "table_of_contents")
		r.TableOfContents = toc
		drops.TOC += dropped
	}
}

func appendChapters(r *AggregateReport, m map[string]any, drops *mergeDrops) {
	entries, dropped := aliasChapters(m, "chapters")
	drops.Chapters += dropped
	for _, ch := range entries {
		if !ValidChapter(ch) {
			drops.Chapters++
			continue
		}
		clamped, trimmed := clampChapter(ch)
		drops.KeyPoints += trimmed
		r.Chapters = append(r.Chapters, clamped)
	}
}

func applyChapters(r *AggregateReport, m map[string]any, drops *mergeDrops) {
	appendChapters(r, m, drops)
	// Per-chunk calls may also return an overview fragment.
	appendText(&r.Overview, aliasString(m, "overview"))
}

func applyConcepts(r *AggregateReport, m map[string]any, drops *mergeDrops) {
	concepts, dropped := aliasConcepts(m, "key_concepts")
	r.KeyConcepts = append(r.KeyConcepts, concepts...)
	drops.Concepts += dropped
}

func applySynthesis(r *AggregateReport, m map[string]any, _ *mergeDrops) {
	setFirst(&r.CriticalAnalysis, aliasString(m, "critical_analysis"))
	setFirst(&r.ComparativeAnalysis, aliasString(m, "comparative_analysis"))
	setFirst(&r.ReaderRecommendations, aliasString(m, "reader_recommendations"))
	setFirst(&r.Conclusion, aliasString(m, "conclusion"))
}
