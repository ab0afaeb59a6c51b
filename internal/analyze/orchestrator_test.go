package analyze

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/dgallion1/bookgest/internal/config"
	"github.com/dgallion1/bookgest/internal/document"
)

// fakeCompleter replays canned responses in call order.
type fakeCompleter struct {
	responses []string
	errAt     map[int]error // 0-based call index -> error
	calls     int
	prompts   []string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt string) (string, error) {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if err, ok := f.errAt[idx]; ok {
		return "", err
	}
	if idx < len(f.responses) {
		return f.responses[idx], nil
	}
	return "{}", nil
}

// markNormalizer tags converted text so tests can see the script pass ran.
type markNormalizer struct{}

func (markNormalizer) Convert(s string) (string, error) { return "繁" + s, nil }

func testCfg() config.Config {
	return config.Config{
		SinglePassTok:  40000,
		MaxChunkTokens: 25000,
		BoundaryWindow: 0.5,
	}
}

func logger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

const baseResponse = `{
	"title": "輸出力法則",
	"author": "作者甲",
	"author_background": "背景",
	"book_overview": "概述一",
	"main_themes": ["主題一", "主題二"],
	"estimated_structure": [{"chapter_number": "1", "title": "第一章"}]
}`

func chapterResponse(title string) string {
	return `{"identified_chapters": [{"chapter_title": "` + title +
		`", "summary": "摘要", "key_points": ["點一"]}], "partial_overview": "部分概述"}`
}

const conceptsResponse = `{"key_concepts": [{"term": "專注", "definition": "定義", "applications": "應用"}]}`

const synthesisResponse = `{
	"critical_analysis": "批判",
	"comparative_analysis": "比較",
	"reader_recommendations": "建議",
	"conclusion": "結論"
}`

func TestRunPlan_MultiStageMergesInStageOrder(t *testing.T) {
	doc := &document.Document{Name: "book", Text: "content"}
	chunks := []document.Chunk{
		{Index: 0, Text: "第一部分內容", Doc: "book"},
		{Index: 1, Text: "第二部分內容", Doc: "book"},
	}
	fake := &fakeCompleter{responses: []string{
		baseResponse,
		chapterResponse("甲"),
		chapterResponse("乙"),
		conceptsResponse,
		synthesisResponse,
	}}

	a := NewAnalyzer(fake, markNormalizer{}, testCfg(), logger())
	report, err := a.RunPlan(context.Background(), doc, chunks, MultiStagePlan())
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}

	if fake.calls != 5 {
		t.Errorf("expected 5 completion calls (base + 2 chunks + concepts + synthesis), got %d", fake.calls)
	}
	if report.Title != "繁輸出力法則" {
		t.Errorf("title=%q (script pass should apply)", report.Title)
	}
	if len(report.Chapters) != 2 || report.Chapters[0].Title != "繁甲" || report.Chapters[1].Title != "繁乙" {
		t.Errorf("chapters out of order: %+v", report.Chapters)
	}
	if !strings.Contains(report.Overview, "概述一") || !strings.Contains(report.Overview, "部分概述") {
		t.Errorf("overview should concatenate fragments, got %q", report.Overview)
	}
	if len(report.KeyConcepts) != 1 || report.KeyConcepts[0].Term != "繁專注" {
		t.Errorf("key concepts=%v", report.KeyConcepts)
	}
	if report.Conclusion != "繁結論" {
		t.Errorf("conclusion=%q", report.Conclusion)
	}
	if len(report.TableOfContents) != 1 || report.TableOfContents[0].Number != "1" {
		t.Errorf("toc=%v", report.TableOfContents)
	}
}

func TestRunPlan_LaterStagesSeeDerivedTitle(t *testing.T) {
	doc := &document.Document{Name: "book", Text: "content"}
	chunks := []document.Chunk{{Index: 0, Text: "內容", Doc: "book"}}
	fake := &fakeCompleter{responses: []string{
		baseResponse,
		chapterResponse("甲"),
		conceptsResponse,
		synthesisResponse,
	}}

	a := NewAnalyzer(fake, nil, testCfg(), logger())
	if _, err := a.RunPlan(context.Background(), doc, chunks, MultiStagePlan()); err != nil {
		t.Fatalf("RunPlan: %v", err)
	}

	// The chapters prompt (call 2) must embed the title derived by the base
	// stage (call 1).
	if !strings.Contains(fake.prompts[1], "輸出力法則") {
		t.Error("chapter prompt should carry the derived book title")
	}
	if !strings.Contains(fake.prompts[3], "輸出力法則") {
		t.Error("synthesis prompt should carry the derived book title")
	}
}

func TestRunPlan_LogsRejectedConceptAndTOCEntries(t *testing.T) {
	doc := &document.Document{Name: "book", Text: "content"}
	chunks := []document.Chunk{{Index: 0, Text: "內容", Doc: "book"}}
	baseWithBadTOC := `{
		"title": "輸出力法則",
		"author": "作者甲",
		"book_overview": "概述",
		"estimated_structure": [
			{"chapter_number": "1", "title": "第一章"},
			{"chapter_number": "2"}
		]
	}`
	conceptsWithBlankTerm := `{"key_concepts": [
		{"term": "  ", "definition": "被丟棄的定義", "applications": "無"},
		{"term": "專注", "definition": "定義", "applications": "應用"}
	]}`
	fake := &fakeCompleter{responses: []string{
		baseWithBadTOC,
		chapterResponse("甲"),
		conceptsWithBlankTerm,
		synthesisResponse,
	}}

	var buf bytes.Buffer
	a := NewAnalyzer(fake, nil, testCfg(), slog.New(slog.NewTextHandler(&buf, nil)))
	report, err := a.RunPlan(context.Background(), doc, chunks, MultiStagePlan())
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}

	if len(report.KeyConcepts) != 1 || report.KeyConcepts[0].Term != "專注" {
		t.Fatalf("key concepts=%v", report.KeyConcepts)
	}
	if len(report.TableOfContents) != 1 {
		t.Fatalf("toc=%v", report.TableOfContents)
	}
	logged := buf.String()
	if !strings.Contains(logged, "dropped invalid concept entries") {
		t.Error("blank-term concept was discarded without a log entry")
	}
	if !strings.Contains(logged, "dropped invalid toc entries") {
		t.Error("title-less toc entry was discarded without a log entry")
	}
}

func TestRunPlan_LogsTruncatedKeyPoints(t *testing.T) {
	doc := &document.Document{Name: "book", Text: "content"}
	chunks := []document.Chunk{{Index: 0, Text: "內容", Doc: "book"}}
	points := make([]string, 0, maxKeyPoints+2)
	for i := 0; i < maxKeyPoints+2; i++ {
		points = append(points, `"點"`)
	}
	chapterWithTooManyPoints := `{"identified_chapters": [{"chapter_title": "第一章", "summary": "摘要", "key_points": [` +
		strings.Join(points, ",") + `]}]}`
	fake := &fakeCompleter{responses: []string{
		baseResponse,
		chapterWithTooManyPoints,
		conceptsResponse,
		synthesisResponse,
	}}

	var buf bytes.Buffer
	a := NewAnalyzer(fake, nil, testCfg(), slog.New(slog.NewTextHandler(&buf, nil)))
	report, err := a.RunPlan(context.Background(), doc, chunks, MultiStagePlan())
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}

	if len(report.Chapters) != 1 || len(report.Chapters[0].KeyPoints) != maxKeyPoints {
		t.Fatalf("chapters=%+v", report.Chapters)
	}
	if !strings.Contains(buf.String(), "dropped key points over the per-chapter limit") {
		t.Error("truncated key points were discarded without a log entry")
	}
}

func TestRunPlan_StageFailureDoesNotAbortRun(t *testing.T) {
	doc := &document.Document{Name: "book", Text: "content"}
	chunks := []document.Chunk{{Index: 0, Text: "內容", Doc: "book"}}
	fake := &fakeCompleter{
		responses: []string{
			baseResponse,
			"", // failed call
			conceptsResponse,
			synthesisResponse,
		},
		errAt: map[int]error{1: errors.New("completion failed after 3 attempts")},
	}

	a := NewAnalyzer(fake, nil, testCfg(), logger())
	report, err := a.RunPlan(context.Background(), doc, chunks, MultiStagePlan())
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}
	if fake.calls != 4 {
		t.Errorf("run should continue past the failed stage, calls=%d", fake.calls)
	}
	if len(report.Chapters) != 0 {
		t.Errorf("failed stage must contribute nothing, chapters=%v", report.Chapters)
	}
	if report.Title != "輸出力法則" || report.Conclusion != "結論" {
		t.Errorf("surviving stages should still merge: %+v", report)
	}
}

func TestRunPlan_UnparseableStageTolerated(t *testing.T) {
	doc := &document.Document{Name: "book", Text: "content"}
	chunks := []document.Chunk{{Index: 0, Text: "內容", Doc: "book"}}
	fake := &fakeCompleter{responses: []string{
		baseResponse,
		"這不是JSON",
		conceptsResponse,
		synthesisResponse,
	}}

	a := NewAnalyzer(fake, nil, testCfg(), logger())
	report, err := a.RunPlan(context.Background(), doc, chunks, MultiStagePlan())
	if err != nil {
		t.Fatalf("RunPlan: %v", err)
	}
	if report.Title != "輸出力法則" {
		t.Errorf("title=%q", report.Title)
	}
	if len(report.Chapters) != 0 {
		t.Errorf("unparseable stage must contribute nothing")
	}
}

func TestRunPlan_AllStagesFailedIsAnError(t *testing.T) {
	doc := &document.Document{Name: "book", Text: "content"}
	chunks := []document.Chunk{{Index: 0, Text: "內容", Doc: "book"}}
	fake := &fakeCompleter{errAt: map[int]error{
		0: errors.New("down"), 1: errors.New("down"),
		2: errors.New("down"), 3: errors.New("down"),
	}}

	a := NewAnalyzer(fake, nil, testCfg(), logger())
	if _, err := a.RunPlan(context.Background(), doc, chunks, MultiStagePlan()); err == nil {
		t.Fatal("expected error when every stage fails")
	}
}

func TestRun_SmallDocumentUsesSinglePass(t *testing.T) {
	doc := &document.Document{Name: "book", Text: "一本短書的內容。"}
	fake := &fakeCompleter{responses: []string{`{
		"title": "短書",
		"author": "作者",
		"book_overview": "概述",
		"chapter_analysis": [{"chapter_title": "唯一章", "summary": "摘要"}],
		"key_concepts": [{"term": "概念", "definition": "定義", "applications": "應用"}],
		"conclusion": "結論"
	}`}}

	a := NewAnalyzer(fake, nil, testCfg(), logger())
	report, err := a.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if fake.calls != 1 {
		t.Errorf("single-pass should make exactly 1 call, got %d", fake.calls)
	}
	if report.Title != "短書" || len(report.Chapters) != 1 {
		t.Errorf("report=%+v", report)
	}
}

func TestRun_LargeDocumentUsesMultiStage(t *testing.T) {
	cfg := testCfg()
	cfg.SinglePassTok = 50
	cfg.MaxChunkTokens = 40

	doc := &document.Document{
		Name: "big",
		Text: strings.Repeat("這是很長的書籍內容。\n\n", 30),
	}
	fake := &fakeCompleter{responses: []string{baseResponse}}

	a := NewAnalyzer(fake, nil, cfg, logger())
	report, err := a.Run(context.Background(), doc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	// base + one call per chunk + concepts + synthesis
	if fake.calls < 4 {
		t.Errorf("multi-stage should make several calls, got %d", fake.calls)
	}
	if report.Title != "輸出力法則" {
		t.Errorf("title=%q", report.Title)
	}
}

func TestRun_EmptyDocumentIsFatal(t *testing.T) {
	a := NewAnalyzer(&fakeCompleter{}, nil, testCfg(), logger())
	if _, err := a.Run(context.Background(), &document.Document{Name: "empty", Text: "   "}); err == nil {
		t.Fatal("expected error for empty document")
	}
}

func TestSampleChunks_CapsOversizedSequences(t *testing.T) {
	chunks := make([]document.Chunk, 40)
	for i := range chunks {
		chunks[i] = document.Chunk{Index: i, Text: "x"}
	}
	sampled := sampleChunks(chunks, logger())
	if len(sampled) != 12 { // 40/5 lead + 40/10 trail
		t.Errorf("expected 12 sampled chunks, got %d", len(sampled))
	}
	for i, c := range sampled {
		if c.Index != i {
			t.Errorf("sampled chunk %d has index %d", i, c.Index)
		}
	}
}
