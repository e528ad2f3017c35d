package merge

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/fumiama/go-docx"
	"github.com/yshk0402/word-merger-app/internal/ooxml"
)

// makeDoc builds a .docx blob with one paragraph per text.
func makeDoc(t *testing.T, texts ...string) []byte {
	t.Helper()
	doc := docx.New().WithDefaultTheme()
	for _, text := range texts {
		doc.AddParagraph().AddText(text)
	}
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return buf.Bytes()
}

// makeImageDoc builds a .docx blob with one paragraph and one
// embedded image.
func makeImageDoc(t *testing.T, text string) []byte {
	t.Helper()
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText(text)
	if _, err := doc.AddParagraph().AddInlineDrawing(onePixelPNG()); err != nil {
		t.Fatalf("embed fixture image: %v", err)
	}
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return buf.Bytes()
}

// onePixelPNG returns a valid 1x1 transparent PNG.
func onePixelPNG() []byte {
	return []byte{
		0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A,
		0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52,
		0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
		0x08, 0x06, 0x00, 0x00, 0x00, 0x1F, 0x15, 0xC4, 0x89,
		0x00, 0x00, 0x00, 0x0A, 0x49, 0x44, 0x41, 0x54,
		0x78, 0x9C, 0x63, 0x00, 0x01, 0x00, 0x00, 0x05, 0x00, 0x01,
		0x0D, 0x0A, 0x2D, 0xB4,
		0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4E, 0x44,
		0xAE, 0x42, 0x60, 0x82,
	}
}

// makeTableDoc builds a .docx blob with a paragraph followed by a
// 2x2 table.
func makeTableDoc(t *testing.T) []byte {
	t.Helper()
	doc := docx.New().WithDefaultTheme()
	doc.AddParagraph().AddText("before table")
	doc.AddTable(2, 2, 0, nil)
	var buf bytes.Buffer
	if _, err := doc.WriteTo(&buf); err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	return buf.Bytes()
}

// paragraphTexts parses a merged blob back and returns the text of
// every body paragraph in order. Empty paragraphs yield "".
func paragraphTexts(t *testing.T, data []byte) []string {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parse merged output: %v", err)
	}
	var texts []string
	for _, item := range doc.Document.Body.Items {
		if para, ok := item.(*docx.Paragraph); ok {
			texts = append(texts, paragraphText(para))
		}
	}
	return texts
}

func TestMerge_PlainTextOrdering(t *testing.T) {
	sources := []Source{
		{Name: "A.docx", Data: makeDoc(t, "Hello")},
		{Name: "B.docx", Data: makeDoc(t, "World")},
	}

	out, err := Merge(sources, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"A.docx", "Hello", strings.Repeat("=", 50), "",
		"B.docx", "World", strings.Repeat("=", 50), "",
	}
	got := paragraphTexts(t, out)
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d: %q", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("paragraph[%d]: expected %q, got %q", i, w, got[i])
		}
	}
}

func TestMerge_PlainTextSkipsBlankParagraphs(t *testing.T) {
	sources := []Source{
		{Name: "doc.docx", Data: makeDoc(t, "Hello", "   ", "", "World")},
	}

	out, err := Merge(sources, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := paragraphTexts(t, out)
	// heading, Hello, World, separator, blank
	if len(got) != 5 {
		t.Fatalf("expected 5 paragraphs, got %d: %q", len(got), got)
	}
	if got[1] != "Hello" || got[2] != "World" {
		t.Errorf("expected blank source paragraphs to be dropped, got %q", got)
	}
}

func TestMerge_StyledKeepsElementsContiguous(t *testing.T) {
	sources := []Source{
		{Name: "first.docx", Data: makeDoc(t, "One", "Two", "Three")},
		{Name: "second.docx", Data: makeDoc(t, "Four")},
	}

	out, err := Merge(sources, Options{KeepStyles: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{
		"first.docx", "One", "Two", "Three", strings.Repeat("=", 50), "",
		"second.docx", "Four", strings.Repeat("=", 50), "",
	}
	got := paragraphTexts(t, out)
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d: %q", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("paragraph[%d]: expected %q, got %q", i, w, got[i])
		}
	}
}

// tableCount parses a merged blob back and counts body-level tables.
func tableCount(t *testing.T, data []byte) int {
	t.Helper()
	doc, err := docx.Parse(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("parse merged output: %v", err)
	}
	n := 0
	for _, item := range doc.Document.Body.Items {
		if _, ok := item.(*docx.Table); ok {
			n++
		}
	}
	return n
}

func TestMerge_StyledPreservesTables(t *testing.T) {
	sources := []Source{
		{Name: "tabular.docx", Data: makeTableDoc(t)},
	}

	out, err := Merge(sources, Options{KeepStyles: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tableCount(t, out); got != 1 {
		t.Errorf("expected 1 table in styled output, got %d", got)
	}
	got := paragraphTexts(t, out)
	if len(got) < 2 || got[0] != "tabular.docx" || got[1] != "before table" {
		t.Errorf("expected heading then source paragraph, got %q", got)
	}
}

func TestMerge_PlainDropsTables(t *testing.T) {
	sources := []Source{
		{Name: "tabular.docx", Data: makeTableDoc(t)},
	}

	out, err := Merge(sources, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := tableCount(t, out); got != 0 {
		t.Errorf("expected no tables in plain output, got %d", got)
	}
	// The paragraph around the table still comes through as text.
	want := []string{"tabular.docx", "before table", strings.Repeat("=", 50), ""}
	got := paragraphTexts(t, out)
	if len(got) != len(want) {
		t.Fatalf("expected %d paragraphs, got %d: %q", len(want), len(got), got)
	}
	for i, w := range want {
		if got[i] != w {
			t.Errorf("paragraph[%d]: expected %q, got %q", i, w, got[i])
		}
	}
}

func TestMerge_ImagesScaledToFixedWidth(t *testing.T) {
	sources := []Source{
		{Name: "a.docx", Data: makeImageDoc(t, "pic")},
	}

	out, err := Merge(sources, Options{KeepImages: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	doc, err := docx.Parse(bytes.NewReader(out), int64(len(out)))
	if err != nil {
		t.Fatalf("parse merged output: %v", err)
	}

	drawings := 0
	for _, item := range doc.Document.Body.Items {
		para, ok := item.(*docx.Paragraph)
		if !ok {
			continue
		}
		for _, child := range para.Children {
			run, ok := child.(*docx.Run)
			if !ok {
				continue
			}
			for _, rc := range run.Children {
				d, ok := rc.(*docx.Drawing)
				if !ok || d.Inline == nil || d.Inline.Extent == nil {
					continue
				}
				drawings++
				if d.Inline.Extent.CX != imageWidthEMU {
					t.Errorf("expected drawing width %d EMU, got %d", int64(imageWidthEMU), d.Inline.Extent.CX)
				}
				if d.Inline.Extent.CY <= 0 {
					t.Errorf("expected positive drawing height, got %d", d.Inline.Extent.CY)
				}
			}
		}
	}
	if drawings != 1 {
		t.Fatalf("expected 1 inline drawing in output, found %d", drawings)
	}
}

func TestMerge_KeepImagesCopiesAll(t *testing.T) {
	sources := []Source{
		{Name: "a.docx", Data: makeImageDoc(t, "first")},
		{Name: "b.docx", Data: makeImageDoc(t, "second")},
	}

	out, err := Merge(sources, Options{KeepImages: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	images, err := ooxml.ImageParts(out)
	if err != nil {
		t.Fatalf("scan merged output: %v", err)
	}
	if len(images) != 2 {
		t.Errorf("expected 2 images in output, got %d", len(images))
	}
}

func TestMerge_DropImagesByDefault(t *testing.T) {
	sources := []Source{
		{Name: "a.docx", Data: makeImageDoc(t, "has image")},
	}

	out, err := Merge(sources, Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	images, err := ooxml.ImageParts(out)
	if err != nil {
		t.Fatalf("scan merged output: %v", err)
	}
	if len(images) != 0 {
		t.Errorf("expected no images in output, got %d", len(images))
	}
}

func TestMerge_EmptySourceList(t *testing.T) {
	if _, err := Merge(nil, Options{}); !errors.Is(err, ErrNoSources) {
		t.Fatalf("expected ErrNoSources, got %v", err)
	}
}

func TestMerge_CorruptSourceFailsWhole(t *testing.T) {
	sources := []Source{
		{Name: "A.docx", Data: makeDoc(t, "Hello")},
		{Name: "B.docx", Data: []byte("truncated garbage")},
	}

	out, err := Merge(sources, Options{})
	if err == nil {
		t.Fatal("expected merge to fail")
	}
	if out != nil {
		t.Error("expected no partial output on failure")
	}

	var merr *Error
	if !errors.As(err, &merr) {
		t.Fatalf("expected *merge.Error, got %T", err)
	}
	if merr.Stage != StageParse {
		t.Errorf("expected stage %q, got %q", StageParse, merr.Stage)
	}
	if merr.Source != "B.docx" {
		t.Errorf("expected failing source %q, got %q", "B.docx", merr.Source)
	}
}

func TestMerge_ProgressFractions(t *testing.T) {
	sources := []Source{
		{Name: "a.docx", Data: makeDoc(t, "a")},
		{Name: "b.docx", Data: makeDoc(t, "b")},
		{Name: "c.docx", Data: makeDoc(t, "c")},
		{Name: "d.docx", Data: makeDoc(t, "d")},
	}

	var fractions []float64
	_, err := Merge(sources, Options{
		OnProgress: func(f float64) { fractions = append(fractions, f) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []float64{0.25, 0.5, 0.75, 1.0}
	if len(fractions) != len(want) {
		t.Fatalf("expected %d progress calls, got %d", len(want), len(fractions))
	}
	for i, w := range want {
		if fractions[i] != w {
			t.Errorf("progress[%d]: expected %v, got %v", i, w, fractions[i])
		}
	}
}

func TestMerge_SourcesReadTwice(t *testing.T) {
	// Source bytes must not be consumed: merging the same sources
	// twice succeeds and yields equivalent content.
	sources := []Source{
		{Name: "a.docx", Data: makeDoc(t, "again")},
	}

	first, err := Merge(sources, Options{})
	if err != nil {
		t.Fatalf("first merge: %v", err)
	}
	second, err := Merge(sources, Options{})
	if err != nil {
		t.Fatalf("second merge: %v", err)
	}

	ft := paragraphTexts(t, first)
	st := paragraphTexts(t, second)
	if len(ft) != len(st) {
		t.Fatalf("expected identical paragraph counts, got %d and %d", len(ft), len(st))
	}
	for i := range ft {
		if ft[i] != st[i] {
			t.Errorf("paragraph[%d]: %q vs %q", i, ft[i], st[i])
		}
	}
}

func TestErrorString(t *testing.T) {
	err := stageErr(StageParse, "bad.docx", errors.New("not a zip"))
	msg := err.Error()
	if !strings.Contains(msg, "bad.docx") || !strings.Contains(msg, "not a zip") {
		t.Errorf("expected descriptive message, got %q", msg)
	}

	serr := stageErr(StageSerialize, "", errors.New("boom"))
	if strings.Contains(serr.Error(), `""`) {
		t.Errorf("expected no empty source in message, got %q", serr.Error())
	}
}
