package extractor

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	pdflib "github.com/ledongthuc/pdf"
	"github.com/xhad/paperqa/internal/models"
)

// Heading patterns for research-paper style documents: numbered headings,
// ALL-CAPS lines, and the canonical section names.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(?i)(\d+\.?\s+[A-Z][A-Za-z\s]+)$`),
	regexp.MustCompile(`^([A-Z][A-Z\s]+)$`),
	regexp.MustCompile(`^(?i)(Abstract|Introduction|Conclusion|References|Methodology|Results|Discussion)`),
}

// PDFExtractor pulls page-level text out of a PDF and tracks the section
// heading each page falls under.
type PDFExtractor struct{}

func New() *PDFExtractor {
	return &PDFExtractor{}
}

// Validate checks existence, the size cap and structural integrity before
// any extraction is attempted. It returns false with a human-readable
// message rather than an error, so callers can surface the message as-is.
func (p *PDFExtractor) Validate(path string, maxSizeMB int) (bool, string) {
	info, err := os.Stat(path)
	if err != nil {
		return false, "File does not exist"
	}

	sizeMB := float64(info.Size()) / (1024 * 1024)
	if sizeMB > float64(maxSizeMB) {
		return false, fmt.Sprintf(
			"File size (%.2fMB) exceeds maximum allowed size (%dMB)", sizeMB, maxSizeMB)
	}

	f, _, err := pdflib.Open(path)
	if err != nil {
		return false, fmt.Sprintf("Invalid or corrupted PDF: %v", err)
	}
	f.Close()

	return true, ""
}

// Extract returns one PageRecord per non-empty page, with 1-based page
// numbers. The current section carries forward across pages until the
// next heading is seen.
func (p *PDFExtractor) Extract(path string) ([]models.PageRecord, error) {
	f, reader, err := pdflib.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	var pages []models.PageRecord
	currentSection := "Unknown"

	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to extract text from page %d: %w", i, err)
		}

		var pageText strings.Builder
		for _, line := range strings.Split(text, "\n") {
			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if section := detectSection(line); section != "" {
				currentSection = section
			}

			pageText.WriteString(line)
			pageText.WriteString("\n")
		}

		if trimmed := strings.TrimSpace(pageText.String()); trimmed != "" {
			pages = append(pages, models.PageRecord{
				Text:    trimmed,
				Page:    i,
				Section: currentSection,
			})
		}
	}

	return pages, nil
}

// detectSection reports the section name when a line looks like a
// heading, or "" otherwise.
func detectSection(line string) string {
	line = strings.TrimSpace(line)

	if len(line) > 100 || len(line) < 3 {
		return ""
	}

	for _, pattern := range sectionPatterns {
		if pattern.MatchString(line) {
			if line == strings.ToUpper(line) {
				return titleCase(line)
			}
			return line
		}
	}

	return ""
}

// titleCase renders an ALL-CAPS heading like "RELATED WORK" as
// "Related Work".
func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
