// Package report renders an aggregate analysis into a Chinese Markdown
// report and writes the per-book output files.
package report

import (
	"fmt"
	"strings"

	"github.com/dgallion1/bookgest/internal/analyze"
)

// Placeholders shown when a scalar section has no content. Section headers
// are always emitted; list sections may be empty under their header.
const (
	noTitle       = "未知書名"
	noAuthor      = "未知"
	noOverview    = "無可用概述"
	noSummary     = "無可用摘要"
	noExplain     = "無可用解釋"
	noPractical   = "無可用實用價值分析"
	noCritical    = "無可用批判性分析"
	noComparative = "無可用比較分析"
	noGuide       = "無可用讀者建議"
	noConclusion  = "無可用結論"
)

// Render maps the report into ordered Markdown sections. Section order is
// fixed regardless of which fields are populated.
func Render(r *analyze.AggregateReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", orElse(r.Title, noTitle))

	fmt.Fprintf(&b, "**作者：** %s\n\n", orElse(r.Author, noAuthor))
	if r.AuthorBackground != "" {
		fmt.Fprintf(&b, "%s\n\n", r.AuthorBackground)
	}

	section(&b, "書籍概述", orElse(r.Overview, noOverview))

	b.WriteString("## 目錄\n\n")
	for _, entry := range r.TableOfContents {
		if entry.Number != "" {
			fmt.Fprintf(&b, "- %s. %s\n", entry.Number, entry.Title)
		} else {
			fmt.Fprintf(&b, "- %s\n", entry.Title)
		}
	}
	b.WriteString("\n")

	b.WriteString("## 章節詳解\n\n")
	for _, ch := range r.Chapters {
		renderChapter(&b, ch)
	}

	b.WriteString("## 關鍵概念\n\n")
	for _, c := range r.KeyConcepts {
		if c.Term == "" {
			continue
		}
		fmt.Fprintf(&b, "### %s\n\n", c.Term)
		if c.Definition != "" {
			fmt.Fprintf(&b, "**定義：** %s\n\n", c.Definition)
		}
		if c.Applications != "" {
			fmt.Fprintf(&b, "**應用：** %s\n\n", c.Applications)
		}
	}

	section(&b, "批判性分析", orElse(r.CriticalAnalysis, noCritical))
	section(&b, "比較分析", orElse(r.ComparativeAnalysis, noComparative))
	section(&b, "讀者建議", orElse(r.ReaderRecommendations, noGuide))
	section(&b, "結論", orElse(r.Conclusion, noConclusion))

	return b.String()
}

func renderChapter(b *strings.Builder, ch analyze.ChapterEntry) {
	if ch.Number != "" {
		fmt.Fprintf(b, "### %s. %s\n\n", ch.Number, ch.Title)
	} else {
		fmt.Fprintf(b, "### %s\n\n", ch.Title)
	}

	section2(b, "章節摘要", orElse(ch.Summary, noSummary))

	b.WriteString("#### 核心觀點\n\n")
	for _, p := range ch.KeyPoints {
		fmt.Fprintf(b, "- %s\n", p)
	}
	b.WriteString("\n")

	if len(ch.KeyConcepts) > 0 {
		b.WriteString("#### 關鍵概念\n\n")
		for _, kc := range ch.KeyConcepts {
			fmt.Fprintf(b, "##### %s\n\n", kc.Concept)
			fmt.Fprintf(b, "%s\n\n", orElse(kc.Explanation, noExplain))
		}
	}

	section2(b, "實用價值", orElse(ch.PracticalValue, noPractical))
}

func section(b *strings.Builder, heading, body string) {
	fmt.Fprintf(b, "## %s\n\n%s\n\n", heading, body)
}

func section2(b *strings.Builder, heading, body string) {
	fmt.Fprintf(b, "#### %s\n\n%s\n\n", heading, body)
}

func orElse(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
