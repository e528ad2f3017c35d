// Package ooxml reads the parts of a WordprocessingML (.docx) package
// that the document library does not expose: the main document
// relationship table and the media parts it points at.
package ooxml

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
)

const documentRelsPart = "word/_rels/document.xml.rels"

// Relationship is one entry of a part's relationship table.
type Relationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr"`
}

type relationships struct {
	XMLName xml.Name       `xml:"Relationships"`
	Items   []Relationship `xml:"Relationship"`
}

// ImagePart is an embedded image resolved from the relationship table.
type ImagePart struct {
	RelID string // relationship id, e.g. "rId7"
	Name  string // part name inside the package, e.g. "word/media/image1.png"
	Data  []byte
}

// IsDocx reports whether data looks like a WordprocessingML package:
// a ZIP container with a word/document.xml part.
func IsDocx(data []byte) bool {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return false
	}
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			return true
		}
	}
	return false
}

// DocumentRelationships returns the relationship table of the main
// document part. A missing rels part yields an empty table, not an
// error: documents without embedded resources are valid.
func DocumentRelationships(data []byte) ([]Relationship, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx container: %w", err)
	}
	raw, err := readPart(zr, documentRelsPart)
	if err != nil {
		return nil, err
	}
	if raw == nil {
		return nil, nil
	}
	var rels relationships
	if err := xml.Unmarshal(raw, &rels); err != nil {
		return nil, fmt.Errorf("parse %s: %w", documentRelsPart, err)
	}
	return rels.Items, nil
}

// ImageParts returns every embedded image the document relationship
// table points at, including images no paragraph references. Entries
// are sorted by relationship id so the result is deterministic for
// identical input bytes; relationship tables themselves carry no
// meaningful order.
func ImageParts(data []byte) ([]ImagePart, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx container: %w", err)
	}

	rels, err := DocumentRelationships(data)
	if err != nil {
		return nil, err
	}

	var imageRels []Relationship
	for _, rel := range rels {
		if !strings.Contains(rel.Type, "/image") {
			continue
		}
		// Externally linked images have no part inside the package.
		if strings.EqualFold(rel.TargetMode, "External") {
			continue
		}
		imageRels = append(imageRels, rel)
	}
	sort.Slice(imageRels, func(i, j int) bool {
		return lessRelID(imageRels[i].ID, imageRels[j].ID)
	})

	images := make([]ImagePart, 0, len(imageRels))
	for _, rel := range imageRels {
		name := resolveTarget(rel.Target)
		raw, err := readPart(zr, name)
		if err != nil {
			return nil, err
		}
		if raw == nil {
			return nil, fmt.Errorf("relationship %s targets missing part %s", rel.ID, name)
		}
		images = append(images, ImagePart{RelID: rel.ID, Name: name, Data: raw})
	}
	return images, nil
}

// resolveTarget turns a relationship target into a package part name.
// Targets are relative to the part that owns the rels (word/), except
// for absolute targets starting with "/".
func resolveTarget(target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(path.Clean(target), "/")
	}
	return path.Clean("word/" + target)
}

// readPart reads a named part from the container, nil if absent.
func readPart(zr *zip.Reader, name string) ([]byte, error) {
	for _, f := range zr.File {
		if f.Name != name {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open part %s: %w", name, err)
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("read part %s: %w", name, err)
		}
		return raw, nil
	}
	return nil, nil
}

// lessRelID orders "rId2" before "rId10"; ids that do not follow the
// rId<n> convention fall back to plain string order.
func lessRelID(a, b string) bool {
	na, aok := relIDNum(a)
	nb, bok := relIDNum(b)
	if aok && bok {
		return na < nb
	}
	return a < b
}

func relIDNum(id string) (int, bool) {
	s := strings.TrimPrefix(id, "rId")
	if s == id {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}
