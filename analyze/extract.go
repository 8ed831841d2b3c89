// Package analyze locates mentions of a code in page text, extracts bounded
// context windows and classifies each window as historical, current or
// indeterminate evidence.
package analyze

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/eantrace/eantrace/ean"
	"github.com/eantrace/eantrace/models"
)

// Document is the analyzable view of a fetched page. Title is optional; when
// set it is preferred over title markup found inside Text.
type Document struct {
	URL   string
	Title string
	Text  string
}

// Extract runs the full extraction over raw content. It is a pure function:
// identical inputs always produce identical results.
func Extract(content string, code ean.Code, sourceURL string) *models.SourceResult {
	return ExtractDoc(Document{URL: sourceURL, Text: content}, code)
}

// ExtractDoc locates every mention of the code in doc.Text, derives a
// context window per mention, extracts a product name and temporal clue,
// scores the window against both indicator sets and deduplicates findings by
// cleaned snippet. When no pattern-based mention exists but the raw code
// substring does, a single indeterminate fallback finding is produced. A nil
// result means no evidence at all.
func ExtractDoc(doc Document, code ean.Code) *models.SourceResult {
	if doc.Text == "" {
		return nil
	}

	var findings []models.Finding
	seen := make(map[string]struct{})

	for _, re := range mentionPatterns(code.String()) {
		for _, loc := range re.FindAllStringIndex(doc.Text, -1) {
			window := contextWindow(doc.Text, loc[0], loc[1])
			snippet := normalizeSpace(window)
			if _, dup := seen[snippet]; dup {
				continue
			}
			seen[snippet] = struct{}{}
			findings = append(findings, models.Finding{
				ProductName: productName(window, doc),
				DateClue:    dateClue(window),
				Assessment:  Classify(window),
				Snippet:     snippet,
				SourceURL:   doc.URL,
			})
		}
	}

	if len(findings) == 0 {
		if pos := strings.Index(doc.Text, code.String()); pos >= 0 {
			window := contextWindow(doc.Text, pos, pos+len(code.String()))
			name := models.UnknownClue
			if title, ok := pageTitle(doc); ok {
				name = title
			}
			findings = append(findings, models.Finding{
				ProductName: name,
				DateClue:    models.UnknownClue,
				Assessment:  models.Indeterminate,
				Snippet:     normalizeSpace(window),
				SourceURL:   doc.URL,
			})
		}
	}

	if len(findings) == 0 {
		return nil
	}
	return &models.SourceResult{SourceURL: doc.URL, Findings: findings}
}

// Classify scores a window against both indicator sets. Strict comparison,
// no weighting: ties, including zero against zero, are indeterminate.
func Classify(window string) models.Assessment {
	historical, current := Score(window)
	switch {
	case historical > current:
		return models.Historical
	case current > historical:
		return models.Current
	default:
		return models.Indeterminate
	}
}

// Score counts how many patterns of each indicator set match the window.
// Each pattern contributes at most one point.
func Score(window string) (historical, current int) {
	for _, re := range historicalIndicators {
		if re.MatchString(window) {
			historical++
		}
	}
	for _, re := range currentIndicators {
		if re.MatchString(window) {
			current++
		}
	}
	return historical, current
}

// contextWindow slices a fixed-radius window around [start, end), clamped to
// the content bounds and nudged onto rune boundaries so multi-byte text is
// never cut mid-rune.
func contextWindow(content string, start, end int) string {
	lo := start - contextRadius
	if lo < 0 {
		lo = 0
	}
	hi := end + contextRadius
	if hi > len(content) {
		hi = len(content)
	}
	for lo > 0 && !utf8.RuneStart(content[lo]) {
		lo--
	}
	for hi < len(content) && !utf8.RuneStart(content[hi]) {
		hi++
	}
	return content[lo:hi]
}

func productName(window string, doc Document) string {
	if name, ok := firstMatch(productPatterns, window); ok {
		return name
	}
	if title, ok := pageTitle(doc); ok {
		return title
	}
	return models.UnknownClue
}

func dateClue(window string) string {
	if clue, ok := firstMatch(datePatterns, window); ok {
		return clue
	}
	return models.UnknownClue
}

func pageTitle(doc Document) (string, bool) {
	if t := normalizeSpace(doc.Title); t != "" {
		return t, true
	}
	if t, ok := titlePattern.find(doc.Text); ok {
		if trimmed := normalizeSpace(t); trimmed != "" {
			return trimmed, true
		}
	}
	return "", false
}

var spaceRun = regexp.MustCompile(`\s+`)

func normalizeSpace(s string) string {
	return strings.TrimSpace(spaceRun.ReplaceAllString(s, " "))
}
