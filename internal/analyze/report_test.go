package analyze

import (
	"reflect"
	"testing"
)

func TestSetFirst_FirstWins(t *testing.T) {
	var title string
	setFirst(&title, "第一階段書名")
	setFirst(&title, "第二階段書名")
	if title != "第一階段書名" {
		t.Errorf("later stage overwrote first-wins field: %q", title)
	}
}

func TestSetFirst_EmptyDoesNotCount(t *testing.T) {
	var s string
	setFirst(&s, "   ")
	setFirst(&s, "實際內容")
	if s != "實際內容" {
		t.Errorf("whitespace-only value should not claim the field: %q", s)
	}
}

func TestAppendText_ConcatenatesInOrder(t *testing.T) {
	var overview string
	appendText(&overview, "片段一")
	appendText(&overview, "")
	appendText(&overview, "片段二")
	if overview != "片段一 片段二" {
		t.Errorf("overview=%q", overview)
	}
}

func TestApplyChapters_AppendInStageOrder(t *testing.T) {
	r := &AggregateReport{}
	applyChapters(r, map[string]any{
		"identified_chapters": []any{
			map[string]any{"chapter_title": "a", "summary": "sa"},
			map[string]any{"chapter_title": "b", "summary": "sb"},
		},
	}, new(mergeDrops))
	applyChapters(r, map[string]any{
		"identified_chapters": []any{
			map[string]any{"chapter_title": "c", "summary": "sc"},
		},
	}, new(mergeDrops))

	var titles []string
	for _, ch := range r.Chapters {
		titles = append(titles, ch.Title)
	}
	if !reflect.DeepEqual(titles, []string{"a", "b", "c"}) {
		t.Errorf("expected [a b c], got %v", titles)
	}
}

func TestApplyChapters_RejectsEmptyEntries(t *testing.T) {
	r := &AggregateReport{}
	drops := new(mergeDrops)
	applyChapters(r, map[string]any{
		"identified_chapters": []any{
			map[string]any{"chapter_title": "", "summary": ""},
			map[string]any{"chapter_title": "有效章節", "summary": "內容"},
		},
	}, drops)
	if len(r.Chapters) != 1 || r.Chapters[0].Title != "有效章節" {
		t.Errorf("chapters=%v", r.Chapters)
	}
	if drops.Chapters != 1 {
		t.Errorf("expected 1 rejected chapter counted, got %d", drops.Chapters)
	}
}

func TestAliasString_PriorityOrder(t *testing.T) {
	m := map[string]any{
		"summary":           "低優先摘要",
		"executive_summary": "高優先摘要",
	}
	if got := aliasString(m, "overview"); got != "高優先摘要" {
		t.Errorf("expected the higher-priority alias, got %q", got)
	}
}

func TestAliasString_ChineseSynonyms(t *testing.T) {
	m := map[string]any{"摘要": "中文摘要內容"}
	if got := aliasString(m, "overview"); got != "中文摘要內容" {
		t.Errorf("got %q", got)
	}
	m = map[string]any{"書名": "輸出力法則"}
	if got := aliasString(m, "title"); got != "輸出力法則" {
		t.Errorf("got %q", got)
	}
}

func TestAliasString_SkipsEmptyAlias(t *testing.T) {
	m := map[string]any{
		"full_title": "",
		"title":      "實際書名",
	}
	if got := aliasString(m, "title"); got != "實際書名" {
		t.Errorf("empty alias should be skipped, got %q", got)
	}
}

func TestAliasChapters_DictFormConverted(t *testing.T) {
	m := map[string]any{
		"chapters": map[string]any{
			"第一章": "內容一",
			"第二章": "內容二",
		},
	}
	chapters, _ := aliasChapters(m, "chapters")
	if len(chapters) != 2 {
		t.Fatalf("expected 2 chapters, got %d", len(chapters))
	}
	for _, ch := range chapters {
		if ch.Title == "" || ch.Summary == "" {
			t.Errorf("dict-form chapter missing fields: %+v", ch)
		}
	}
}

func TestAliasChapters_TitleContentKeys(t *testing.T) {
	m := map[string]any{
		"chapters": []any{
			map[string]any{"title": "章節", "content": "內容"},
		},
	}
	chapters, _ := aliasChapters(m, "chapters")
	if len(chapters) != 1 || chapters[0].Title != "章節" || chapters[0].Summary != "內容" {
		t.Errorf("chapters=%v", chapters)
	}
}

func TestClampChapter_LimitsKeyPoints(t *testing.T) {
	ch := ChapterEntry{Title: "t"}
	for i := 0; i < 15; i++ {
		ch.KeyPoints = append(ch.KeyPoints, "點")
	}
	ch.KeyPoints = append(ch.KeyPoints, "  ")
	got, dropped := clampChapter(ch)
	if len(got.KeyPoints) != maxKeyPoints {
		t.Errorf("expected %d key points, got %d", maxKeyPoints, len(got.KeyPoints))
	}
	// 15 real points clamped to 10 plus one blank entry removed.
	if dropped != 6 {
		t.Errorf("expected 6 dropped points, got %d", dropped)
	}
}

func TestApplySynthesis_FirstWinsAcrossStages(t *testing.T) {
	r := &AggregateReport{}
	applySynthesis(r, map[string]any{"conclusion": "第一個結論"}, new(mergeDrops))
	applySynthesis(r, map[string]any{"conclusion": "第二個結論"}, new(mergeDrops))
	if r.Conclusion != "第一個結論" {
		t.Errorf("conclusion=%q", r.Conclusion)
	}
}

func TestWalkText_SkipsStructuralFields(t *testing.T) {
	r := &AggregateReport{
		Title:           "简体书名",
		TableOfContents: []TOCEntry{{Number: "1", Title: "简体章节"}},
		Chapters:        []ChapterEntry{{Number: "2", Title: "简体", Summary: "简体摘要"}},
	}
	r.WalkText(func(s string) string { return "[T]" + s })

	if r.Title != "[T]简体书名" {
		t.Errorf("title=%q", r.Title)
	}
	if r.TableOfContents[0].Number != "1" {
		t.Error("TOC number must not be transformed")
	}
	if r.Chapters[0].Number != "2" {
		t.Error("chapter number must not be transformed")
	}
	if r.Chapters[0].Summary != "[T]简体摘要" {
		t.Errorf("summary=%q", r.Chapters[0].Summary)
	}
}

func TestAggregateReport_Empty(t *testing.T) {
	if !(&AggregateReport{}).Empty() {
		t.Error("zero report should be empty")
	}
	if (&AggregateReport{Title: "x"}).Empty() {
		t.Error("report with a title is not empty")
	}
}
