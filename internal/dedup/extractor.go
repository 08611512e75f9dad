package dedup

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// navIndicators flags boilerplate containers by class or id substring.
var navIndicators = []string{
	"nav", "navigation", "menu", "footer", "header",
	"sidebar", "breadcrumb", "pagination",
}

// minDivTextLen is the minimum text length for a bare <div> to be treated as
// content rather than layout scaffolding.
const minDivTextLen = 50

// headingLevels maps heading tags to their markdown prefix.
var headingLevels = map[string]string{
	"h1": "#", "h2": "##", "h3": "###",
	"h4": "####", "h5": "#####", "h6": "######",
}

// defaultExcludedTags are removed from the document before the block walk so
// their text never leaks into surrounding containers.
var defaultExcludedTags = []string{"script", "style", "noscript"}

// Extractor renders raw HTML to markdown. The zero-configuration form is
// available through the package-level ExtractMarkdown.
type Extractor struct {
	excludedTags []string
}

// NewExtractor builds an extractor that removes the given HTML tags before
// walking the document. A nil list keeps the defaults (script, style,
// noscript).
func NewExtractor(excludedTags []string) *Extractor {
	tags := make([]string, 0, len(excludedTags))
	for _, tag := range excludedTags {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			tags = append(tags, tag)
		}
	}
	if len(tags) == 0 {
		tags = defaultExcludedTags
	}
	return &Extractor{excludedTags: tags}
}

var defaultExtractor = NewExtractor(nil)

// ExtractMarkdown renders HTML to markdown with the default excluded tags.
func ExtractMarkdown(html string) (string, error) {
	return defaultExtractor.ExtractMarkdown(html)
}

// ExtractMarkdown parses raw HTML and produces a markdown rendition directly,
// for pages where the primary extraction produced empty or negligible output.
// It emits the title and meta description first, then walks block-level
// elements in document order, suppressing navigation boilerplate and
// near-duplicate blocks.
func (e *Extractor) ExtractMarkdown(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse html: %w", err)
	}

	doc.Find(strings.Join(e.excludedTags, ", ")).Remove()

	suppressor := newBlockSuppressor()
	var blocks []string

	emit := func(text string) {
		if suppressor.Admit(text) {
			blocks = append(blocks, text)
		}
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		emit("# " + title)
	}
	if desc, ok := doc.Find(`meta[name="description"]`).First().Attr("content"); ok {
		if desc = strings.TrimSpace(desc); desc != "" {
			emit("*" + desc + "*")
		}
	}

	doc.Find("h1, h2, h3, h4, h5, h6, p, ul, ol, blockquote, div").Each(func(_ int, sel *goquery.Selection) {
		if isNavigation(sel) {
			return
		}
		tag := goquery.NodeName(sel)
		switch {
		case headingLevels[tag] != "":
			if text := collapseSpace(sel.Text()); text != "" {
				emit(headingLevels[tag] + " " + text)
			}
		case tag == "p":
			if text := collapseSpace(sel.Text()); text != "" {
				emit(text)
			}
		case tag == "ul" || tag == "ol":
			var items []string
			sel.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
				if text := collapseSpace(li.Text()); text != "" {
					items = append(items, "- "+text)
				}
			})
			if len(items) > 0 {
				emit(strings.Join(items, "\n"))
			}
		case tag == "blockquote":
			if text := collapseSpace(sel.Text()); text != "" {
				emit("> " + text)
			}
		case tag == "div":
			text := collapseSpace(sel.Text())
			if len(text) > minDivTextLen {
				emit(text)
			}
		}
	})

	return strings.Join(blocks, "\n\n"), nil
}

// isNavigation reports whether the element or one of its ancestors carries a
// navigation-indicating class or id, or is a <nav> element.
func isNavigation(sel *goquery.Selection) bool {
	for node := sel; node.Length() > 0; node = node.Parent() {
		if goquery.NodeName(node) == "nav" {
			return true
		}
		class, _ := node.Attr("class")
		id, _ := node.Attr("id")
		marker := strings.ToLower(class + " " + id)
		for _, indicator := range navIndicators {
			if strings.Contains(marker, indicator) {
				return true
			}
		}
	}
	return false
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
