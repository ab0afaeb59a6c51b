package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dgallion1/bookgest/internal/analyze"
)

// Output is the set of files Save produced for one book.
type Output struct {
	Dir          string
	MarkdownPath string
	JSONPath     string
	RawTextPath  string
}

// Save writes the rendered report, the aggregate JSON dump, and a copy of
// the raw extracted text under <outputDir>/<bookName>/.
func Save(outputDir, bookName string, r *analyze.AggregateReport, markdown, rawText string) (*Output, error) {
	dir := filepath.Join(outputDir, bookName)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	out := &Output{
		Dir:          dir,
		MarkdownPath: filepath.Join(dir, bookName+"_書籍報告.md"),
		JSONPath:     filepath.Join(dir, bookName+"_分析結果.json"),
		RawTextPath:  filepath.Join(dir, bookName+"_原始文本.txt"),
	}

	if err := os.WriteFile(out.MarkdownPath, []byte(markdown), 0o644); err != nil {
		return nil, fmt.Errorf("write report: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(out.JSONPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("write report json: %w", err)
	}

	if err := os.WriteFile(out.RawTextPath, []byte(rawText), 0o644); err != nil {
		return nil, fmt.Errorf("write raw text: %w", err)
	}
	return out, nil
}
