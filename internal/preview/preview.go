// Package preview provides the read-only queries the upload UI needs
// before a merge: a short text preview and the list of embedded
// images. Both depend only on the source bytes and are safe to repeat.
package preview

import (
	"bytes"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/fumiama/imgsz"
	"github.com/yshk0402/word-merger-app/internal/ooxml"
)

// MaxParagraphs is how many non-blank paragraphs a text preview shows.
const MaxParagraphs = 5

// Image is one embedded image with its decoded metadata. Width and
// Height are zero when the format could not be decoded; the raw bytes
// are still returned so the caller can decide what to do with them.
type Image struct {
	Name   string `json:"name"`
	Format string `json:"format,omitempty"`
	Width  int64  `json:"width,omitempty"`
	Height int64  `json:"height,omitempty"`
	Data   []byte `json:"data,omitempty"`
}

// Text returns the first MaxParagraphs paragraphs of the document
// whose trimmed text is non-empty, joined with newlines.
func Text(data []byte) (string, error) {
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var lines []string
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := strings.TrimSpace(paragraphText(para))
		if text == "" {
			continue
		}
		lines = append(lines, text)
		if len(lines) == MaxParagraphs {
			break
		}
	}
	return strings.Join(lines, "\n"), nil
}

// Images lists every embedded image of the document in
// relationship-id order.
func Images(data []byte) ([]Image, error) {
	parts, err := ooxml.ImageParts(data)
	if err != nil {
		return nil, err
	}

	images := make([]Image, 0, len(parts))
	for _, part := range parts {
		img := Image{Name: part.Name, Data: part.Data}
		if sz, format, err := imgsz.DecodeSize(bytes.NewReader(part.Data)); err == nil {
			img.Format = format
			img.Width = int64(sz.Width)
			img.Height = int64(sz.Height)
		}
		images = append(images, img)
	}
	return images, nil
}

func paragraphText(para *docx.Paragraph) string {
	var buf strings.Builder
	for _, child := range para.Children {
		run, ok := child.(*docx.Run)
		if !ok {
			continue
		}
		for _, rc := range run.Children {
			if t, ok := rc.(*docx.Text); ok {
				buf.WriteString(t.Text)
			}
		}
	}
	return buf.String()
}
