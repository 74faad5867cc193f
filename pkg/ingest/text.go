package ingest

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
)

// maxLineBytes bounds a single line in ReadLines.
const maxLineBytes = 16 * 1024 * 1024

// ReadLines returns one record per line. Lines that are not valid UTF-8 are
// rejected and counted.
func ReadLines(r io.Reader) ([]string, Stats, error) {
	var stats Stats
	var records []string

	scanner := bufio.NewScanner(decodeUTF8(r))
	scanner.Buffer(make([]byte, 64*1024), maxLineBytes)
	for scanner.Scan() {
		stats.Rows++
		line := strings.TrimRight(scanner.Text(), "\r")
		if !validText(line) {
			stats.Rejected++
			continue
		}
		records = append(records, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("failed to read lines: %w", err)
	}
	return records, stats, nil
}

// HTMLOptions controls how an HTML document is split into records.
type HTMLOptions struct {
	// Selector picks the elements that become records. Defaults to "p".
	Selector string
	// Readability extracts the main article and returns it as one record.
	Readability bool
	// PageURL resolves relative links during readability extraction.
	PageURL string
}

func normalizeText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// ReadHTML extracts records from an HTML document.
func ReadHTML(r io.Reader, opts HTMLOptions) ([]string, error) {
	if opts.Readability {
		return readArticle(r, opts.PageURL)
	}

	selector := opts.Selector
	if selector == "" {
		selector = "p"
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse html: %w", err)
	}

	var records []string
	doc.Find(selector).Each(func(i int, s *goquery.Selection) {
		if text := normalizeText(s.Text()); text != "" {
			records = append(records, text)
		}
	})
	return records, nil
}

func readArticle(r io.Reader, pageURL string) ([]string, error) {
	if pageURL == "" {
		pageURL = "http://localhost/"
	}
	parsedURL, err := url.Parse(pageURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse page url: %w", err)
	}

	parser := readability.NewParser()
	article, err := parser.Parse(r, parsedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to extract article: %w", err)
	}

	// Content is cleaned HTML; goquery flattens it to text.
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(article.Content))
	if err != nil {
		return nil, fmt.Errorf("failed to parse article content: %w", err)
	}
	text := normalizeText(article.Title + " " + doc.Text())
	if text == "" {
		return nil, nil
	}
	return []string{text}, nil
}
