package library

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	blankLines = regexp.MustCompile(`\n{3,}`)
	spaceRuns  = regexp.MustCompile(`[ \t\r\f]+`)
)

// DescriptionToText converts an HTML book description into plain text with
// light markdown: paragraphs become blank-line separated, list items are
// prefixed with "- ", bold and italic become ** and *. Input without markup
// is only trimmed.
func DescriptionToText(raw string) string {
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "<") {
		return raw
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return raw
	}

	var b strings.Builder
	renderMarkdown(&b, doc.Find("body"))

	text := b.String()
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSpace(spaceRuns.ReplaceAllString(line, " "))
	}
	text = strings.Join(lines, "\n")
	text = blankLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func renderMarkdown(b *strings.Builder, s *goquery.Selection) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch name := goquery.NodeName(c); name {
		case "#text":
			b.WriteString(strings.ReplaceAll(c.Text(), "\n", " "))
		case "br":
			b.WriteString("\n")
		case "p", "div", "section", "blockquote":
			b.WriteString("\n\n")
			renderMarkdown(b, c)
			b.WriteString("\n\n")
		case "h1", "h2", "h3", "h4", "h5", "h6":
			b.WriteString("\n\n" + strings.Repeat("#", int(name[1]-'0')) + " ")
			renderMarkdown(b, c)
			b.WriteString("\n\n")
		case "li":
			b.WriteString("\n- ")
			renderMarkdown(b, c)
		case "ul", "ol":
			renderMarkdown(b, c)
			b.WriteString("\n\n")
		case "strong", "b":
			wrapInline(b, c, "**")
		case "em", "i":
			wrapInline(b, c, "*")
		case "script", "style", "#comment":
		default:
			renderMarkdown(b, c)
		}
	})
}

func wrapInline(b *strings.Builder, s *goquery.Selection, marker string) {
	var inner strings.Builder
	renderMarkdown(&inner, s)
	text := strings.TrimSpace(inner.String())
	if text == "" {
		return
	}
	b.WriteString(marker + text + marker)
}
