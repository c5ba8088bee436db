package utils

import (
	"html"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	spaceRun    = regexp.MustCompile(`[^\S\n]+`)
	newlineRun  = regexp.MustCompile(`\n{3,}`)
	invisibleCh = regexp.MustCompile(`[\x{200B}-\x{200D}\x{FEFF}\x{00AD}\x{2060}-\x{2064}]+`)
)

// HTMLToText renders an HTML body as plain text. Block elements start a new
// line and empty lines are dropped.
func HTMLToText(body string) (string, error) {
	if strings.TrimSpace(body) == "" {
		return "", nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, head, meta, link").Remove()
	doc.Find("p, div, br, h1, h2, h3, h4, h5, h6, li, tr, blockquote").Each(func(_ int, s *goquery.Selection) {
		s.PrependHtml("\n")
	})
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href != "" && strings.TrimSpace(s.Text()) != href && !strings.HasPrefix(href, "mailto:") {
			s.AppendHtml(" (" + html.EscapeString(href) + ")")
		}
	})

	text := invisibleCh.ReplaceAllString(doc.Text(), "")
	text = spaceRun.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if line = strings.TrimSpace(line); line != "" {
			kept = append(kept, line)
		}
	}
	text = newlineRun.ReplaceAllString(strings.Join(kept, "\n"), "\n\n")

	return strings.TrimSpace(text), nil
}
