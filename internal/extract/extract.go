// Package extract turns an uploaded document into cleaned text, detected
// sections, and model-sized chunks. PDF text extraction shells out to
// pdftotext; everything downstream is plain text processing.
package extract

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"regexp"
	"strings"
	"unicode"

	"github.com/sketchcourse/api/internal/model"
)

// chunking targets roughly 1200 model tokens per chunk, approximating
// 1 token ~ 0.75 words.
const (
	chunkMaxTokens = 1200
	wordsPerToken  = 0.75
	maxHeaderWords = 10
	defaultSection = "Introduction"
)

// Extractor produces an ExtractedDocument from a document on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) (*model.ExtractedDocument, error)
}

// PDFExtractor extracts text with the pdftotext binary.
type PDFExtractor struct {
	binPath string
}

// NewPDFExtractor returns an extractor using the given pdftotext binary
// ("pdftotext" if empty).
func NewPDFExtractor(binPath string) *PDFExtractor {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PDFExtractor{binPath: binPath}
}

// Extract runs pdftotext and processes the raw text.
func (e *PDFExtractor) Extract(ctx context.Context, path string) (*model.ExtractedDocument, error) {
	cmd := exec.CommandContext(ctx, e.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("pdftotext failed: %v: %s", err, strings.TrimSpace(stderr.String()))
	}

	return Process(stdout.String()), nil
}

// Process cleans raw document text and derives sections and chunks.
func Process(raw string) *model.ExtractedDocument {
	cleaned := Clean(raw)
	return &model.ExtractedDocument{
		FullText: cleaned,
		Sections: DetectSections(raw),
		Chunks:   Chunk(cleaned, chunkMaxTokens),
	}
}

var (
	reDashes     = regexp.MustCompile(`[–—]`)
	reWhitespace = regexp.MustCompile(`\s+`)
)

// Clean normalizes extracted text: dashes unified, whitespace collapsed.
func Clean(text string) string {
	text = reDashes.ReplaceAllString(text, "-")
	text = reWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// DetectSections splits text on upper-case header lines. The heuristic is
// deliberately crude: a short line in all capitals starts a new section.
func DetectSections(text string) []model.DocumentSection {
	lines := strings.Split(text, "\n")

	var sections []model.DocumentSection
	currentTitle := defaultSection
	var currentText strings.Builder

	for _, line := range lines {
		trimmed := strings.TrimSpace(line)
		if isHeaderLine(trimmed) {
			if currentText.Len() > 0 {
				sections = append(sections, model.DocumentSection{
					Title: currentTitle,
					Text:  strings.TrimSpace(currentText.String()),
				})
				currentText.Reset()
			}
			currentTitle = titleCase(trimmed)
			continue
		}
		currentText.WriteString(line)
		currentText.WriteString(" ")
	}

	if strings.TrimSpace(currentText.String()) != "" {
		sections = append(sections, model.DocumentSection{
			Title: currentTitle,
			Text:  strings.TrimSpace(currentText.String()),
		})
	}

	return sections
}

// Chunk splits text into pieces of at most maxTokens approximate tokens.
func Chunk(text string, maxTokens int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	limit := int(float64(maxTokens) * wordsPerToken)
	if limit < 1 {
		limit = 1
	}

	var chunks []string
	for start := 0; start < len(words); start += limit {
		end := start + limit
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
	}
	return chunks
}

func isHeaderLine(line string) bool {
	if line == "" || len(strings.Fields(line)) >= maxHeaderWords {
		return false
	}
	hasLetter := false
	for _, r := range line {
		if unicode.IsLetter(r) {
			hasLetter = true
			if !unicode.IsUpper(r) {
				return false
			}
		}
	}
	return hasLetter
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		r := []rune(w)
		r[0] = unicode.ToUpper(r[0])
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}
