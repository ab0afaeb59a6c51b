package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/yuin/goldmark"

	"github.com/dgallion1/bookgest/internal/analyze"
)

func fullReport() *analyze.AggregateReport {
	return &analyze.AggregateReport{
		Title:            "輸出力法則",
		Author:           "作者甲",
		AuthorBackground: "資深顧問。",
		Overview:         "一本關於產出的書。",
		MainThemes:       []string{"產出", "習慣"},
		TableOfContents: []analyze.TOCEntry{
			{Number: "1", Title: "起點"},
			{Title: "無編號章"},
		},
		Chapters: []analyze.ChapterEntry{
			{
				Number:    "1",
				Title:     "起點",
				Summary:   "章節摘要內容。",
				KeyPoints: []string{"重點一", "重點二"},
				KeyConcepts: []analyze.ChapterConcept{
					{Concept: "輸出", Explanation: "把想法變成成果。"},
				},
				PracticalValue: "立即可用。",
			},
		},
		KeyConcepts: []analyze.ConceptEntry{
			{Term: "專注", Definition: "單一目標。", Applications: "工作規劃。"},
		},
		CriticalAnalysis:      "批判內容。",
		ComparativeAnalysis:   "比較內容。",
		ReaderRecommendations: "建議內容。",
		Conclusion:            "結論內容。",
	}
}

func TestRender_SectionOrder(t *testing.T) {
	md := Render(fullReport())

	headings := []string{
		"# 輸出力法則",
		"**作者：** 作者甲",
		"## 書籍概述",
		"## 目錄",
		"## 章節詳解",
		"### 1. 起點",
		"#### 章節摘要",
		"#### 核心觀點",
		"#### 關鍵概念",
		"#### 實用價值",
		"## 關鍵概念",
		"### 專注",
		"## 批判性分析",
		"## 比較分析",
		"## 讀者建議",
		"## 結論",
	}
	pos := -1
	for _, h := range headings {
		i := strings.Index(md, h)
		if i < 0 {
			t.Fatalf("missing section %q", h)
		}
		if i < pos {
			t.Errorf("section %q out of order", h)
		}
		pos = i
	}
}

func TestRender_EmptyReportUsesPlaceholders(t *testing.T) {
	md := Render(&analyze.AggregateReport{})

	for _, want := range []string{
		"# 未知書名",
		"**作者：** 未知",
		"無可用概述",
		"無可用批判性分析",
		"無可用比較分析",
		"無可用讀者建議",
		"無可用結論",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("missing placeholder %q", want)
		}
	}
}

func TestRender_EmptyChapterListKeepsHeader(t *testing.T) {
	md := Render(&analyze.AggregateReport{Title: "書"})

	if !strings.Contains(md, "## 章節詳解") {
		t.Fatal("chapter section header must render even with no chapters")
	}
	if strings.Contains(md, "### ") {
		t.Error("no chapter subsections expected for an empty chapter list")
	}
	if !strings.Contains(md, "## 目錄") {
		t.Error("toc header must render even when empty")
	}
}

func TestRender_UnnumberedEntries(t *testing.T) {
	md := Render(&analyze.AggregateReport{
		TableOfContents: []analyze.TOCEntry{{Title: "無編號章"}},
		Chapters:        []analyze.ChapterEntry{{Title: "無編號章", Summary: "摘要"}},
	})
	if !strings.Contains(md, "- 無編號章\n") {
		t.Error("unnumbered toc entry should render as a plain bullet")
	}
	if !strings.Contains(md, "### 無編號章\n") {
		t.Error("unnumbered chapter heading should omit the number prefix")
	}
}

func TestRender_ParsesAsMarkdown(t *testing.T) {
	for _, r := range []*analyze.AggregateReport{fullReport(), {}} {
		var buf bytes.Buffer
		if err := goldmark.Convert([]byte(Render(r)), &buf); err != nil {
			t.Fatalf("rendered report does not parse: %v", err)
		}
		if buf.Len() == 0 {
			t.Error("empty HTML output")
		}
	}
}

func TestSave_WritesBookDirectory(t *testing.T) {
	dir := t.TempDir()
	r := fullReport()

	out, err := Save(dir, "mybook", r, Render(r), "raw text")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	if out.Dir != filepath.Join(dir, "mybook") {
		t.Errorf("dir=%q", out.Dir)
	}
	md, err := os.ReadFile(filepath.Join(dir, "mybook", "mybook_書籍報告.md"))
	if err != nil {
		t.Fatalf("read markdown: %v", err)
	}
	if !strings.Contains(string(md), "# 輸出力法則") {
		t.Error("markdown file missing title")
	}

	data, err := os.ReadFile(filepath.Join(dir, "mybook", "mybook_分析結果.json"))
	if err != nil {
		t.Fatalf("read json: %v", err)
	}
	var decoded analyze.AggregateReport
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("decode json dump: %v", err)
	}
	if decoded.Title != r.Title {
		t.Errorf("json title=%q", decoded.Title)
	}

	raw, err := os.ReadFile(filepath.Join(dir, "mybook", "mybook_原始文本.txt"))
	if err != nil {
		t.Fatalf("read raw text: %v", err)
	}
	if string(raw) != "raw text" {
		t.Errorf("raw text=%q", raw)
	}
}
