package dedup

import (
	"strings"
	"testing"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Willow Creek Winery</title>
  <meta name="description" content="Family-owned winery in the hills.">
</head>
<body>
  <nav><ul><li>Home</li><li>Wines</li><li>Contact</li></ul></nav>
  <div class="breadcrumb">Home / Wines</div>
  <h1>Our Wines</h1>
  <p>We craft small-lot wines from estate-grown grapes, aged in French oak.</p>
  <h2>Tasting Room</h2>
  <p>Open daily from 11am to 5pm. Reservations recommended on weekends.</p>
  <ul>
    <li>Pinot Noir</li>
    <li>Chardonnay</li>
  </ul>
  <blockquote>Best tasting experience in the valley.</blockquote>
  <div>tiny</div>
  <div>This standalone block describes our sustainable farming practices in detail for visitors.</div>
  <div class="footer-links"><p>Privacy Policy</p></div>
</body>
</html>`

func TestExtractMarkdown(t *testing.T) {
	got, err := ExtractMarkdown(samplePage)
	if err != nil {
		t.Fatalf("ExtractMarkdown: %v", err)
	}

	wantContains := []string{
		"# Willow Creek Winery",
		"*Family-owned winery in the hills.*",
		"# Our Wines",
		"We craft small-lot wines from estate-grown grapes, aged in French oak.",
		"## Tasting Room",
		"- Pinot Noir\n- Chardonnay",
		"> Best tasting experience in the valley.",
		"This standalone block describes our sustainable farming practices in detail for visitors.",
	}
	for _, want := range wantContains {
		if !strings.Contains(got, want) {
			t.Fatalf("output missing %q:\n%s", want, got)
		}
	}

	wantAbsent := []string{
		"Home / Wines",     // breadcrumb class
		"Privacy Policy",   // inside footer-flagged div
		"\ntiny",           // div below minimum length
		"- Home\n- Wines",  // nav list
	}
	for _, unwanted := range wantAbsent {
		if strings.Contains(got, unwanted) {
			t.Fatalf("output should not contain %q:\n%s", unwanted, got)
		}
	}
}

func TestExtractMarkdownSuppressesRepeatedBlocks(t *testing.T) {
	html := `<html><body>
	  <p>Award winning wines produced from our historic estate vineyard since 1987.</p>
	  <p>Award winning wines produced from our historic estate vineyard since 1987.</p>
	</body></html>`
	got, err := ExtractMarkdown(html)
	if err != nil {
		t.Fatalf("ExtractMarkdown: %v", err)
	}
	if n := strings.Count(got, "historic estate vineyard"); n != 1 {
		t.Fatalf("repeated paragraph emitted %d times, want 1:\n%s", n, got)
	}
}

func TestExtractMarkdownEmptyBody(t *testing.T) {
	got, err := ExtractMarkdown("<html><body><nav>only nav here</nav></body></html>")
	if err != nil {
		t.Fatalf("ExtractMarkdown: %v", err)
	}
	if strings.TrimSpace(got) != "" {
		t.Fatalf("expected empty output, got %q", got)
	}
}

func TestExtractMarkdownRemovesExcludedTags(t *testing.T) {
	html := `<html><body>
	  <div>Our cellar door is open for tastings every weekend throughout the summer season.</div>
	  <script>window.analytics.track("page_view_event_for_the_marketing_team");</script>
	  <style>.hero { display: none; }</style>
	</body></html>`

	got, err := ExtractMarkdown(html)
	if err != nil {
		t.Fatalf("ExtractMarkdown: %v", err)
	}
	if !strings.Contains(got, "cellar door") {
		t.Fatalf("content paragraph missing:\n%s", got)
	}
	if strings.Contains(got, "analytics") || strings.Contains(got, "display: none") {
		t.Fatalf("excluded tag text leaked into output:\n%s", got)
	}
}

func TestExtractorCustomExcludedTags(t *testing.T) {
	html := `<html><body>
	  <p>The vineyard tour covers the press house, the barrel hall and the tasting room.</p>
	  <blockquote>A quote that the configuration asked us to leave out of the rendition.</blockquote>
	</body></html>`

	got, err := NewExtractor([]string{"script", "style", "blockquote"}).ExtractMarkdown(html)
	if err != nil {
		t.Fatalf("ExtractMarkdown: %v", err)
	}
	if !strings.Contains(got, "vineyard tour") {
		t.Fatalf("content paragraph missing:\n%s", got)
	}
	if strings.Contains(got, "leave out") {
		t.Fatalf("excluded blockquote leaked into output:\n%s", got)
	}
}
