package utils

import (
	"github.com/microcosm-cc/bluemonday"
)

var (
	// UGCPolicy keeps the formatting found in ordinary email bodies
	UGCPolicy *bluemonday.Policy
)

func init() {
	UGCPolicy = bluemonday.UGCPolicy()

	// Allow additional safe elements for email content
	UGCPolicy.AllowElements("p", "br", "div", "span", "h1", "h2", "h3", "h4", "h5", "h6")
	UGCPolicy.AllowElements("strong", "em", "u", "s", "code", "pre")
	UGCPolicy.AllowElements("ul", "ol", "li")
	UGCPolicy.AllowElements("blockquote")
	UGCPolicy.AllowElements("a", "img")
	UGCPolicy.AllowElements("table", "thead", "tbody", "tr", "th", "td")

	UGCPolicy.AllowAttrs("href").OnElements("a")
	UGCPolicy.AllowAttrs("src", "alt", "title", "width", "height").OnElements("img")
	UGCPolicy.AllowAttrs("style").OnElements("span", "div", "p", "td")

	UGCPolicy.RequireParseableURLs(true)
	UGCPolicy.AllowURLSchemes("http", "https", "mailto", "cid")
}

// SanitizeHTML cleans a message body before it is stored or served
func SanitizeHTML(html string) string {
	if html == "" {
		return ""
	}
	return UGCPolicy.Sanitize(html)
}
