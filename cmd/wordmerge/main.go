// wordmerge merges .docx files from disk into one document, or prints
// previews of them. Argument order is merge order.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/yshk0402/word-merger-app/internal/merge"
	"github.com/yshk0402/word-merger-app/internal/preview"
)

type cliConfig struct {
	output      string
	keepStyles  bool
	keepImages  bool
	previewOnly bool
}

func main() {
	cfg, files := parseFlags()

	if err := run(cfg, files); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("error: %v", err))
		os.Exit(1)
	}
}

func parseFlags() (cliConfig, []string) {
	var cfg cliConfig
	flag.StringVar(&cfg.output, "o", "merged_document.docx", "Output file name")
	flag.BoolVar(&cfg.keepStyles, "styles", true, "Preserve the original formatting of each document")
	flag.BoolVar(&cfg.keepImages, "images", true, "Carry over embedded images")
	flag.BoolVar(&cfg.previewOnly, "preview", false, "Print a preview of each input instead of merging")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] input1.docx input2.docx ...\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()
	return cfg, flag.Args()
}

func run(cfg cliConfig, files []string) error {
	if len(files) == 0 {
		flag.Usage()
		return fmt.Errorf("no input files")
	}

	sources := make([]merge.Source, 0, len(files))
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		sources = append(sources, merge.Source{Name: filepath.Base(path), Data: data})
	}

	if cfg.previewOnly {
		return printPreviews(sources)
	}

	bar := newBar(len(sources))
	blob, err := merge.Merge(sources, merge.Options{
		KeepStyles: cfg.keepStyles,
		KeepImages: cfg.keepImages,
		OnProgress: func(fraction float64) {
			bar.Set(int(fraction * float64(len(sources))))
		},
	})
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	output := cfg.output
	if !strings.EqualFold(filepath.Ext(output), ".docx") {
		output += ".docx"
	}
	if err := os.WriteFile(output, blob, 0o644); err != nil {
		return err
	}

	fmt.Println(color.GreenString("merged %d documents into %s (%d bytes)", len(sources), output, len(blob)))
	return nil
}

func printPreviews(sources []merge.Source) error {
	for i, src := range sources {
		if i > 0 {
			fmt.Println()
		}
		fmt.Println(color.CyanString("=== %s ===", src.Name))

		// A bad file only loses its own preview.
		text, err := preview.Text(src.Data)
		if err != nil {
			fmt.Println(color.YellowString("unreadable: %v", err))
			continue
		}
		if text == "" {
			text = "(no text content)"
		}
		fmt.Println(text)

		images, err := preview.Images(src.Data)
		if err != nil {
			fmt.Println(color.YellowString("image scan failed: %v", err))
			continue
		}
		for _, img := range images {
			if img.Format != "" {
				fmt.Printf("  image %s (%s, %dx%d, %d bytes)\n", img.Name, img.Format, img.Width, img.Height, len(img.Data))
			} else {
				fmt.Printf("  image %s (%d bytes)\n", img.Name, len(img.Data))
			}
		}
	}
	return nil
}

func newBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString("merging")),
		progressbar.OptionSetItsString("docs"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
	)
}
