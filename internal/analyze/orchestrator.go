package analyze

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dgallion1/bookgest/internal/chunker"
	"github.com/dgallion1/bookgest/internal/config"
	"github.com/dgallion1/bookgest/internal/document"
	"github.com/dgallion1/bookgest/internal/llm"
	"github.com/dgallion1/bookgest/internal/modeljson"
	"github.com/dgallion1/bookgest/internal/script"
)

// coverSliceBytes bounds the head/tail excerpt used by the base stage.
const coverSliceBytes = 4000

// Analyzer drives a stage plan against one document: chunking, issuing
// completion calls, normalizing each response, and merging results into one
// AggregateReport. Stages run strictly in order because later stages consume
// fields derived by earlier ones.
type Analyzer struct {
	client     llm.Completer
	normalizer script.Normalizer
	cfg        config.Config
	chunkCfg   chunker.Config
	log        *slog.Logger
}

func NewAnalyzer(client llm.Completer, normalizer script.Normalizer, cfg config.Config, log *slog.Logger) *Analyzer {
	if normalizer == nil {
		normalizer = script.Nop{}
	}
	return &Analyzer{
		client:     client,
		normalizer: normalizer,
		cfg:        cfg,
		chunkCfg: chunker.Config{
			MaxTokens:      cfg.MaxChunkTokens,
			WindowFraction: cfg.BoundaryWindow,
		},
		log: log,
	}
}

// Run analyzes the document with the plan fitting its size: single-pass when
// the estimated tokens fit the ceiling, multi-stage otherwise. A stage's
// failure is logged and its contribution omitted; the run aborts only when
// the context is cancelled or every stage failed.
func (a *Analyzer) Run(ctx context.Context, doc *document.Document) (*AggregateReport, error) {
	if doc.Empty() {
		return nil, fmt.Errorf("document %s has no text", doc.Name)
	}

	estimated := chunker.EstimateTokens(doc.Text)
	log := a.log.With("doc", doc.Name, "estimated_tokens", estimated)

	var plan StagePlan
	var chunks []document.Chunk
	if estimated <= a.cfg.SinglePassTok {
		plan = SinglePassPlan()
		chunks = []document.Chunk{{Index: 0, Text: doc.Text, Doc: doc.Name}}
	} else {
		plan = MultiStagePlan()
		chunks = sampleChunks(chunker.SplitDocument(doc, a.chunkCfg), log)
	}
	log.Info("analysis plan selected", "plan", plan.Name, "chunks", len(chunks))

	return a.RunPlan(ctx, doc, chunks, plan)
}

// RunPlan executes an explicit plan over a prepared chunk sequence.
func (a *Analyzer) RunPlan(ctx context.Context, doc *document.Document, chunks []document.Chunk, plan StagePlan) (*AggregateReport, error) {
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s produced no chunks", doc.Name)
	}

	report := &AggregateReport{}
	applied := 0

	for _, stage := range plan.Stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		switch stage.Select {
		case SelectEach:
			for i, ch := range chunks {
				pc := PromptContext{
					Doc:        doc,
					Chunks:     chunks,
					ChunkIndex: i,
					ChunkTotal: len(chunks),
					Excerpt:    ch.Text,
					Report:     report,
				}
				if a.runStage(ctx, stage, pc, report) {
					applied++
				}
			}
		default:
			pc := PromptContext{
				Doc:        doc,
				Chunks:     chunks,
				ChunkTotal: len(chunks),
				Excerpt:    selectExcerpt(stage.Select, doc, chunks),
				Report:     report,
			}
			if a.runStage(ctx, stage, pc, report) {
				applied++
			}
		}
	}

	if applied == 0 || report.Empty() {
		return nil, fmt.Errorf("analysis of %s produced no content: every stage failed", doc.Name)
	}

	a.normalizeScript(report)
	return report, nil
}

// runStage issues one completion call and merges its result. Failures are
// logged and tolerated; the return value reports whether content merged.
func (a *Analyzer) runStage(ctx context.Context, stage Stage, pc PromptContext, report *AggregateReport) bool {
	log := a.log.With("doc", pc.Doc.Name, "stage", stage.Name, "chunk", pc.ChunkIndex)

	raw, err := a.client.Complete(ctx, stage.Prompt(pc))
	if err != nil {
		if ctx.Err() != nil {
			return false
		}
		log.Warn("stage skipped: completion failed", "error", err)
		return false
	}

	result, err := modeljson.Normalize(raw)
	if err != nil {
		log.Error("stage skipped: unparseable response", "error", err, "raw", snippet(raw))
		return false
	}

	var drops mergeDrops
	stage.Apply(report, result, &drops)
	drops.report(log)

	log.Info("stage merged")
	return true
}

// normalizeScript converts every free-text field to the target script.
// A conversion failure keeps the original text.
func (a *Analyzer) normalizeScript(report *AggregateReport) {
	report.WalkText(func(s string) string {
		if s == "" {
			return s
		}
		out, err := a.normalizer.Convert(s)
		if err != nil {
			a.log.Warn("script normalization failed, keeping original", "error", err)
			return s
		}
		return out
	})
}

func selectExcerpt(sel Selection, doc *document.Document, chunks []document.Chunk) string {
	switch sel {
	case SelectFirst:
		return chunks[0].Text
	case SelectCover:
		head := document.Document{Text: chunks[0].Text}
		tail := document.Document{Text: chunks[len(chunks)-1].Text}
		if len(chunks) == 1 {
			return head.Head(2 * coverSliceBytes)
		}
		return head.Head(coverSliceBytes) + "\n...\n" + tail.Tail(coverSliceBytes)
	case SelectNone:
		return ""
	default: // SelectAll
		var sb strings.Builder
		for _, ch := range chunks {
			sb.WriteString(ch.Text)
		}
		return sb.String()
	}
}

// sampleChunks caps the work done on very large books: beyond ten chunks,
// only the leading fifth and trailing tenth of the sequence are analyzed.
func sampleChunks(chunks []document.Chunk, log *slog.Logger) []document.Chunk {
	if len(chunks) <= 10 {
		return chunks
	}
	lead := len(chunks) / 5
	if lead < 5 {
		lead = 5
	}
	trail := len(chunks) / 10
	if trail < 1 {
		trail = 1
	}
	sampled := make([]document.Chunk, 0, lead+trail)
	sampled = append(sampled, chunks[:lead]...)
	sampled = append(sampled, chunks[len(chunks)-trail:]...)
	for i := range sampled {
		sampled[i].Index = i
	}
	log.Info("sampling chunks for oversized document",
		"total", len(chunks), "lead", lead, "trail", trail)
	return sampled
}

func snippet(s string) string {
	if len(s) <= 300 {
		return s
	}
	return s[:300] + "..."
}
