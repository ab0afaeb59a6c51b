package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	"github.com/dgallion1/bookgest/internal/analyze"
	"github.com/dgallion1/bookgest/internal/config"
	"github.com/dgallion1/bookgest/internal/parser"
	"github.com/dgallion1/bookgest/internal/report"
	"github.com/dgallion1/bookgest/internal/translate"
)

// Translator converts one text field to the target language.
type Translator interface {
	Translate(ctx context.Context, text string) (string, error)
}

var _ Translator = (*translate.Client)(nil)

// Worker runs the full analysis pipeline for one document at a time.
// Stages within a document are strictly sequential.
type Worker struct {
	analyzer   *analyze.Analyzer
	translator Translator
	cfg        config.Config
	log        *slog.Logger
}

// NewWorker builds a worker. translator may be nil when translation is off.
func NewWorker(analyzer *analyze.Analyzer, translator Translator, cfg config.Config, log *slog.Logger) *Worker {
	return &Worker{
		analyzer:   analyzer,
		translator: translator,
		cfg:        cfg,
		log:        log,
	}
}

// Process runs parse, analyze, optional translate, render and save for a job.
func (w *Worker) Process(ctx context.Context, job *Job) {
	log := w.log.With("job_id", job.ID, "filename", job.Filename)

	job.SetStatus(StatusParsing, "parsing")
	p, err := parser.ForFile(job.Filename)
	if err != nil {
		w.fail(job, log, StatusFailed, "parsing", err)
		return
	}
	doc, err := p.Parse(bytes.NewReader(job.FileData()), job.Filename)
	if err != nil {
		w.fail(job, log, StatusFailed, "parsing", fmt.Errorf("parse: %w", err))
		return
	}
	if doc.Empty() {
		// Scanned or protected books extract to nothing. Fatal for this
		// document, never a crash.
		w.fail(job, log, StatusFailed, "parsing", fmt.Errorf("no extractable text in %s", job.Filename))
		return
	}
	job.SetTitle(doc.Title)
	job.ContentHash = ContentHashHex([]byte(doc.Text))
	log.Info("parsed document", "title", doc.Title, "chars", len(doc.Text), "pages", doc.Pages)

	job.SetStatus(StatusAnalyzing, "analyzing")
	rep, err := w.analyzer.Run(ctx, doc)
	if err != nil {
		w.fail(job, log, StatusFailed, "analyzing", fmt.Errorf("analyze: %w", err))
		return
	}

	degraded := false
	if w.translator != nil {
		job.SetStatus(StatusTranslating, "translating")
		degraded = w.translateReport(ctx, rep, log)
	}

	job.SetStatus(StatusRendering, "rendering")
	markdown := report.Render(rep)
	out, err := report.Save(w.cfg.OutputDir, doc.Name, rep, markdown, doc.Text)
	if err != nil {
		w.fail(job, log, StatusFailed, "rendering", fmt.Errorf("save: %w", err))
		return
	}
	job.SetResult(markdown, out.MarkdownPath)

	if degraded {
		job.AddError("translation degraded, some fields kept original text")
		job.SetStatus(StatusPartial, "done")
	} else {
		job.SetStatus(StatusCompleted, "done")
	}
	log.Info("job complete", "status", job.Snapshot().Status, "report", out.MarkdownPath)
}

// translateReport walks every free-text field through the translator.
// A field whose translation fails after retries keeps its original text;
// the report is never aborted here.
func (w *Worker) translateReport(ctx context.Context, rep *analyze.AggregateReport, log *slog.Logger) bool {
	degraded := false
	rep.WalkText(func(s string) string {
		if s == "" {
			return s
		}
		out, err := w.translator.Translate(ctx, s)
		if err != nil {
			log.Warn("translation failed, keeping original text", "chars", len(s), "error", err)
			degraded = true
			return s
		}
		return out
	})
	return degraded
}

func (w *Worker) fail(job *Job, log *slog.Logger, status JobStatus, phase string, err error) {
	log.Error(phase+" failed", "error", err)
	job.AddError(err.Error())
	job.SetStatus(status, phase)
}
