package feed

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	breaksRegex         = regexp.MustCompile(`(?i)<br\s*/?>|</p>`)
	multipleSpacesRegex = regexp.MustCompile(`\s+`)
)

// plainText strips markup from an HTML description.
// Line breaks and paragraph ends become spaces so words do not run together.
func plainText(html string) string {
	if !strings.ContainsRune(html, '<') && !strings.ContainsRune(html, '&') {
		return strings.TrimSpace(multipleSpacesRegex.ReplaceAllString(html, " "))
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(breaksRegex.ReplaceAllString(html, " $0")))

	if err != nil {
		return html
	}

	text := multipleSpacesRegex.ReplaceAllString(doc.Text(), " ")

	return strings.TrimSpace(text)
}
