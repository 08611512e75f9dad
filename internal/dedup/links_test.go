package dedup

import "testing"

func TestStripLinks(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		preserve bool
		want     string
	}{
		{
			name: "inline link becomes text",
			in:   "Read [our story](https://example.com/about) here.",
			want: "Read our story here.",
		},
		{
			name: "image link removed entirely",
			in:   "Before ![vineyard photo](https://example.com/v.jpg) after.",
			want: "Before  after.",
		},
		{
			name:     "pdf link preserved when requested",
			in:       "Download the [tasting menu](https://example.com/menu.pdf).",
			preserve: true,
			want:     "Download the [tasting menu](https://example.com/menu.pdf).",
		},
		{
			name: "pdf link stripped by default",
			in:   "Download the [tasting menu](https://example.com/menu.pdf).",
			want: "Download the tasting menu.",
		},
		{
			name:     "pdf link with query preserved",
			in:       "[menu](https://example.com/menu.pdf?v=2)",
			preserve: true,
			want:     "[menu](https://example.com/menu.pdf?v=2)",
		},
		{
			name:     "html link stripped even when preserving files",
			in:       "[contact](https://example.com/contact)",
			preserve: true,
			want:     "contact",
		},
		{
			name: "multiple links in one line",
			in:   "[a](x) and [b](y)",
			want: "a and b",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripLinks(tc.in, tc.preserve); got != tc.want {
				t.Fatalf("StripLinks = %q, want %q", got, tc.want)
			}
		})
	}
}
