package parser

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"golang.org/x/net/html"

	"github.com/dgallion1/bookgest/internal/document"
)

// EPUBParser handles .epub files by walking the OPF spine in reading order.
type EPUBParser struct{}

type epubContainer struct {
	XMLName   xml.Name `xml:"container"`
	RootFiles []struct {
		FullPath string `xml:"full-path,attr"`
	} `xml:"rootfiles>rootfile"`
}

type epubPackage struct {
	XMLName xml.Name `xml:"package"`
	Title   string   `xml:"metadata>title"`
	Items   []struct {
		ID        string `xml:"id,attr"`
		Href      string `xml:"href,attr"`
		MediaType string `xml:"media-type,attr"`
	} `xml:"manifest>item"`
	ItemRefs []struct {
		IDRef string `xml:"idref,attr"`
	} `xml:"spine>itemref"`
}

func (p *EPUBParser) Parse(r io.Reader, filename string) (*document.Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}

	var container epubContainer
	if err := decodeZipXML(zr, "META-INF/container.xml", &container); err != nil {
		return nil, err
	}
	if len(container.RootFiles) == 0 {
		return nil, errors.New("no rootfile found in container.xml")
	}

	opfPath := container.RootFiles[0].FullPath
	var pkg epubPackage
	if err := decodeZipXML(zr, opfPath, &pkg); err != nil {
		return nil, err
	}

	manifest := make(map[string]string, len(pkg.Items))
	for _, item := range pkg.Items {
		if item.MediaType == "application/xhtml+xml" || item.MediaType == "text/html" {
			manifest[item.ID] = item.Href
		}
	}

	// Spine order is reading order.
	opfDir := path.Dir(opfPath)
	var paragraphs []string
	for _, ref := range pkg.ItemRefs {
		href, ok := manifest[ref.IDRef]
		if !ok {
			continue
		}
		f := findZipFile(zr, path.Join(opfDir, href))
		if f == nil {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			continue
		}
		text := extractXHTMLText(rc)
		rc.Close()
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	name := baseName(filename)
	title := strings.TrimSpace(pkg.Title)
	if title == "" {
		title = name
	}
	return &document.Document{
		Name:  name,
		Title: title,
		Text:  strings.Join(paragraphs, "\n\n"),
	}, nil
}

func decodeZipXML(zr *zip.Reader, name string, v any) error {
	f := findZipFile(zr, name)
	if f == nil {
		return fmt.Errorf("%s not found in epub", name)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	if err := xml.NewDecoder(rc).Decode(v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}

func findZipFile(zr *zip.Reader, name string) *zip.File {
	for _, f := range zr.File {
		if f.Name == name {
			return f
		}
	}
	return nil
}

// extractXHTMLText pulls the visible text of one spine document. Malformed
// markup degrades to whatever the tolerant parser recovers.
func extractXHTMLText(r io.Reader) string {
	root, err := html.Parse(r)
	if err != nil {
		return ""
	}
	var paragraphs []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "p", "li", "td", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6":
				if t := textContent(n); t != "" {
					paragraphs = append(paragraphs, t)
				}
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	if body := findBody(root); body != nil {
		walk(body)
	} else {
		walk(root)
	}
	return strings.Join(paragraphs, "\n\n")
}
