package analyze

import (
	"fmt"
	"strings"
)

// jsonOnly is appended to every prompt so responses stay machine-parseable.
const jsonOnly = "請只回傳有效的JSON，不要附加任何其他文字。"

func comprehensivePrompt(pc PromptContext) string {
	var sb strings.Builder
	sb.WriteString(`請對以下中文書籍內容進行全面分析，並以JSON格式回傳結構化的書籍分析報告。

【分析要求】
1. 識別完整書名與作者
2. 作者背景（約300字）
3. 書籍概述，包括寫作目的、目標受眾與核心訊息（約500字）
4. 目錄結構與各章節深入分析（每章：編號、標題、摘要、3-5個核心觀點、關鍵概念、實用價值）
5. 3-5個關鍵概念（名稱、定義、應用場景）
6. 批判性分析、比較分析、讀者建議與結論

書籍內容：
`)
	fence(&sb, pc.Excerpt)
	sb.WriteString(`
請回傳以下結構的JSON：
{
  "title": "完整書名",
  "author": "作者姓名",
  "author_background": "作者背景",
  "book_overview": "書籍概述",
  "main_themes": ["主題1", "主題2"],
  "table_of_contents": [{"chapter_number": "1", "title": "章節標題"}],
  "chapter_analysis": [
    {
      "chapter_number": "1",
      "chapter_title": "章節標題",
      "summary": "章節摘要",
      "key_points": ["觀點1", "觀點2"],
      "key_concepts": [{"concept": "概念", "explanation": "解釋"}],
      "practical_value": "實用價值"
    }
  ],
  "key_concepts": [{"term": "概念名稱", "definition": "定義", "applications": "應用場景"}],
  "critical_analysis": "批判性分析",
  "comparative_analysis": "比較分析",
  "reader_recommendations": "讀者建議",
  "conclusion": "結論"
}
如確實找不到某項資訊，請標記為「未找到」，不要捏造。` + jsonOnly)
	return sb.String()
}

func basePrompt(pc PromptContext) string {
	var sb strings.Builder
	sb.WriteString(`請仔細分析以下書籍的封面、目錄與前言部分，提取基本資訊。
書名與作者資訊必須準確，注意區分作者與譯者、編者。

文本內容：
`)
	fence(&sb, pc.Excerpt)
	sb.WriteString(`
請回傳以下結構的JSON：
{
  "title": "完整書名",
  "author": "作者姓名",
  "author_background": "作者背景（約300字）",
  "book_overview": "書籍概述（約500字）",
  "main_themes": ["主題1", "主題2", "主題3"],
  "estimated_structure": [{"chapter_number": "1", "title": "章節標題"}]
}
如確實找不到某項資訊，請標記為「未找到」，不要捏造。` + jsonOnly)
	return sb.String()
}

func chaptersPrompt(pc PromptContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `這是《%s》（作者：%s）的第 %d/%d 部分。
請分析這部分內容，提取其中的章節資訊與重點。

文本內容：
`, orUnknown(pc.Report.Title), orUnknown(pc.Report.Author), pc.ChunkIndex+1, pc.ChunkTotal)
	fence(&sb, pc.Excerpt)
	sb.WriteString(`
請回傳以下結構的JSON：
{
  "identified_chapters": [
    {
      "chapter_number": "章節編號（如有）",
      "chapter_title": "章節標題",
      "summary": "章節摘要（300-500字）",
      "key_points": ["關鍵點1", "關鍵點2", "關鍵點3"],
      "key_concepts": [{"concept": "概念名稱", "explanation": "概念解釋"}],
      "practical_value": "實用價值分析"
    }
  ],
  "partial_overview": "基於此部分的書籍概述"
}
` + jsonOnly)
	return sb.String()
}

func conceptsPrompt(pc PromptContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `請基於對《%s》（作者：%s）以下內容的理解，提取並分析3-5個最關鍵的概念。

文本內容：
`, orUnknown(pc.Report.Title), orUnknown(pc.Report.Author))
	fence(&sb, pc.Excerpt)
	sb.WriteString(`
請回傳以下結構的JSON：
{
  "key_concepts": [
    {"term": "關鍵概念名稱", "definition": "簡明定義", "applications": "應用場景"}
  ]
}
` + jsonOnly)
	return sb.String()
}

func synthesisPrompt(pc PromptContext) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, `請基於對《%s》（作者：%s）的理解，提供批判性分析、比較分析、讀者建議與結論。
書籍概述：%s
主要主題：%s
已分析章節數：%d
`, orUnknown(pc.Report.Title), orUnknown(pc.Report.Author),
		orUnknown(pc.Report.Overview), strings.Join(pc.Report.MainThemes, "、"),
		len(pc.Report.Chapters))
	sb.WriteString(`
請回傳以下結構的JSON：
{
  "critical_analysis": "批判性分析（優點、局限性、適用範圍）",
  "comparative_analysis": "與同類書籍的比較分析",
  "reader_recommendations": "適合的讀者群體與閱讀建議",
  "conclusion": "整體評價與核心價值"
}
評價需客觀公正。` + jsonOnly)
	return sb.String()
}

func fence(sb *strings.Builder, text string) {
	sb.WriteString("```\n")
	sb.WriteString(text)
	sb.WriteString("\n```\n")
}

func orUnknown(s string) string {
	if strings.TrimSpace(s) == "" {
		return "未知"
	}
	return s
}
