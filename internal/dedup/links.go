package dedup

import (
	"regexp"
	"strings"
)

var (
	markdownLinkRe = regexp.MustCompile(`\[([^\]]*)\]\(([^)]*)\)`)
	imageLinkRe    = regexp.MustCompile(`!\[([^\]]*)\]\(([^)]*)\)`)
)

// fileLinkExtensions lists document extensions whose links survive stripping
// when preservation is requested.
var fileLinkExtensions = []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx"}

// StripLinks replaces markdown links with their anchor text so that link-only
// variance between otherwise identical pages does not defeat content hashing.
// Image links are removed entirely. When preserveFileLinks is true, links to
// documents (PDFs and office formats) are left intact.
func StripLinks(markdown string, preserveFileLinks bool) string {
	out := imageLinkRe.ReplaceAllString(markdown, "")
	out = markdownLinkRe.ReplaceAllStringFunc(out, func(match string) string {
		parts := markdownLinkRe.FindStringSubmatch(match)
		text, target := parts[1], parts[2]
		if preserveFileLinks && isFileLink(target) {
			return match
		}
		return text
	})
	return out
}

func isFileLink(target string) bool {
	lower := strings.ToLower(target)
	if i := strings.IndexAny(lower, "?#"); i >= 0 {
		lower = lower[:i]
	}
	for _, ext := range fileLinkExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}
