package services

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFService converts PDF bytes into cleaned markdown. Header levels are
// inferred from relative font sizes so the downstream chunker and skeleton
// extraction see a usable hierarchy.
type PDFService struct{}

// NewPDFService creates a new PDF extraction service
func NewPDFService() *PDFService {
	return &PDFService{}
}

// pdfLine is one visual row of text with its dominant font size
type pdfLine struct {
	text     string
	fontSize float64
}

// Extract parses the PDF and returns markdown content.
func (s *PDFService) Extract(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("failed to open pdf: %w", err)
	}

	var lines []pdfLine
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}
		pageLines := collectLines(page.Content().Text)
		lines = append(lines, pageLines...)
		// page break becomes a blank line
		lines = append(lines, pdfLine{})
	}

	body := renderMarkdown(lines)
	return PostProcessMarkdown(body), nil
}

// collectLines groups positioned glyph runs into visual rows
func collectLines(texts []pdf.Text) []pdfLine {
	if len(texts) == 0 {
		return nil
	}

	sorted := make([]pdf.Text, len(texts))
	copy(sorted, texts)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y > sorted[j].Y // pdf y grows upward
		}
		return sorted[i].X < sorted[j].X
	})

	var (
		lines   []pdfLine
		buf     strings.Builder
		curY    = sorted[0].Y
		maxFont float64
	)
	flush := func() {
		text := strings.TrimSpace(buf.String())
		if text != "" {
			lines = append(lines, pdfLine{text: text, fontSize: maxFont})
		}
		buf.Reset()
		maxFont = 0
	}

	for _, t := range sorted {
		// a shift of more than half the font size starts a new row
		if diff := curY - t.Y; diff > t.FontSize/2 || diff < -t.FontSize/2 {
			flush()
			curY = t.Y
		}
		buf.WriteString(t.S)
		if t.FontSize > maxFont {
			maxFont = t.FontSize
		}
	}
	flush()

	return lines
}

// renderMarkdown classifies lines into headers and body text by comparing
// each line's font size against the document's dominant body size.
func renderMarkdown(lines []pdfLine) string {
	bodySize := dominantFontSize(lines)

	var out strings.Builder
	for _, line := range lines {
		if line.text == "" {
			out.WriteString("\n")
			continue
		}
		switch {
		case bodySize > 0 && line.fontSize >= bodySize*1.5:
			out.WriteString("# " + line.text + "\n\n")
		case bodySize > 0 && line.fontSize >= bodySize*1.2:
			out.WriteString("## " + line.text + "\n\n")
		default:
			out.WriteString(line.text + "\n")
		}
	}
	return out.String()
}

// dominantFontSize returns the most common font size across all lines
func dominantFontSize(lines []pdfLine) float64 {
	counts := make(map[float64]int)
	for _, line := range lines {
		if line.text != "" && line.fontSize > 0 {
			counts[line.fontSize]++
		}
	}
	var (
		best      float64
		bestCount int
	)
	for size, count := range counts {
		if count > bestCount || (count == bestCount && size < best) {
			best = size
			bestCount = count
		}
	}
	return best
}

var (
	hyphenBreakRe = regexp.MustCompile(`(\w)-\n(\w)`)
	spaceRunRe    = regexp.MustCompile(`[ \t]+`)
	blankRunRe    = regexp.MustCompile(`\n{3,}`)
	trailingWSRe  = regexp.MustCompile(`[ \t]+\n`)
)

// PostProcessMarkdown applies the cleanup rules in their required order:
// de-hyphenate line-broken words, collapse space runs, cap blank lines at
// two, normalize bullets, and strip replacement characters.
func PostProcessMarkdown(text string) string {
	text = hyphenBreakRe.ReplaceAllString(text, "$1$2")
	text = spaceRunRe.ReplaceAllString(text, " ")
	text = blankRunRe.ReplaceAllString(text, "\n\n")
	text = strings.ReplaceAll(text, "• ", "- ")
	text = strings.ReplaceAll(text, "�", "")
	text = trailingWSRe.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}
