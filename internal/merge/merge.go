// Package merge combines several .docx documents into one. Each
// source contributes, in caller order: a heading with its display
// name, its content (verbatim body elements or re-typed plain text),
// optionally its embedded images, and a separator line.
package merge

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/fumiama/go-docx"
	"github.com/yshk0402/word-merger-app/internal/ooxml"
)

// Source is one uploaded document: a display name and the raw .docx
// bytes. Data is never consumed destructively; every use re-parses
// from the slice, so a source can be previewed and merged from the
// same bytes.
type Source struct {
	Name string
	Data []byte
}

// Options controls how sources are combined.
type Options struct {
	// KeepStyles copies body elements verbatim, preserving run
	// formatting, numbering and tables. When false only the plain
	// text of non-blank paragraphs is carried over and tables are
	// dropped.
	KeepStyles bool
	// KeepImages appends every embedded image of a source after its
	// text, scaled to a fixed 6 inch width.
	KeepImages bool
	// OnProgress, if set, receives (i+1)/n after source i is
	// processed. It is called inline and must not block.
	OnProgress func(fraction float64)
}

const (
	separatorWidth = 50
	imageWidthEMU  = 6 * 914400 // 6 inches in English Metric Units
	headingStyle   = "Heading1"
)

// Merge combines sources in order into a single .docx blob. The
// operation is all-or-nothing: the first failure aborts the merge and
// the partial document is discarded.
func Merge(sources []Source, opts Options) ([]byte, error) {
	if len(sources) == 0 {
		return nil, ErrNoSources
	}

	out := docx.New().WithDefaultTheme()
	separator := strings.Repeat("=", separatorWidth)

	for i, src := range sources {
		doc, err := docx.Parse(bytes.NewReader(src.Data), int64(len(src.Data)))
		if err != nil {
			return nil, stageErr(StageParse, src.Name, err)
		}

		heading := out.AddParagraph()
		heading.Style(headingStyle)
		heading.AddText(src.Name)

		if opts.KeepStyles {
			copyBody(out, doc)
		} else {
			copyPlainText(out, doc)
		}

		if opts.KeepImages {
			if err := copyImages(out, src); err != nil {
				return nil, err
			}
		}

		out.AddParagraph().AddText(separator)
		out.AddParagraph()

		if opts.OnProgress != nil {
			opts.OnProgress(float64(i+1) / float64(len(sources)))
		}
	}

	var buf bytes.Buffer
	if _, err := out.WriteTo(&buf); err != nil {
		return nil, stageErr(StageSerialize, "", err)
	}
	return buf.Bytes(), nil
}

// copyBody appends every body-level element of doc to out unchanged:
// paragraphs, tables and breaks keep their structure and formatting.
// Styles referenced by id and inline image relationships resolve
// against the output's parts, so exotic formatting may degrade, same
// as the element-level copy this mirrors.
func copyBody(out, doc *docx.Docx) {
	out.Document.Body.Items = append(out.Document.Body.Items, doc.Document.Body.Items...)
}

// copyPlainText re-types each paragraph of doc that has any
// non-whitespace text as a fresh unstyled paragraph in out. Tables
// are not walked and therefore dropped in this mode.
func copyPlainText(out, doc *docx.Docx) {
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		text := paragraphText(para)
		if strings.TrimSpace(text) == "" {
			continue
		}
		out.AddParagraph().AddText(text)
	}
}

// copyImages appends every image part of the source as its own
// picture paragraph, in relationship-id order.
func copyImages(out *docx.Docx, src Source) error {
	images, err := ooxml.ImageParts(src.Data)
	if err != nil {
		return stageErr(StageCopy, src.Name, err)
	}
	for _, img := range images {
		run, err := out.AddParagraph().AddInlineDrawing(img.Data)
		if err != nil {
			return stageErr(StageCopy, src.Name, fmt.Errorf("add image %s: %w", img.Name, err))
		}
		scaleInlineDrawings(run, imageWidthEMU)
	}
	return nil
}

// scaleInlineDrawings forces every inline drawing in the run to the
// given width, keeping the aspect ratio the drawing was inserted with.
func scaleInlineDrawings(run *docx.Run, widthEMU int64) {
	for _, child := range run.Children {
		d, ok := child.(*docx.Drawing)
		if !ok || d.Inline == nil || d.Inline.Extent == nil {
			continue
		}
		cx := d.Inline.Extent.CX
		cy := d.Inline.Extent.CY
		if cx <= 0 {
			continue
		}
		d.Inline.Extent.CX = widthEMU
		d.Inline.Extent.CY = cy * widthEMU / cx
	}
}

// paragraphText concatenates the text of every run in the paragraph.
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
