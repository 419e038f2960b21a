package extract

import (
	"strings"
	"testing"
	"unicode/utf8"

	"golang.org/x/net/html"
)

func parseHTML(t *testing.T, raw string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(raw))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func TestFindImage(t *testing.T) {
	tests := []struct {
		name      string
		html      string
		targetSrc string
		pageURL   string
		wantAlt   string
		wantNil   bool
	}{
		{
			name:      "exact src match",
			html:      `<img src="https://site.example/a.jpg" alt="first"><img src="https://site.example/b.jpg" alt="second">`,
			targetSrc: "https://site.example/b.jpg",
			pageURL:   "https://site.example/post",
			wantAlt:   "second",
		},
		{
			name:      "relative src resolved against page URL",
			html:      `<img src="/uploads/photo.jpg" alt="relative">`,
			targetSrc: "https://site.example/uploads/photo.jpg",
			pageURL:   "https://site.example/post",
			wantAlt:   "relative",
		},
		{
			name:      "fuzzy filename match on src",
			html:      `<img src="https://cdn.example/resized/photo.jpg?w=400" alt="fuzzy">`,
			targetSrc: "https://site.example/uploads/photo.jpg",
			pageURL:   "https://site.example/post",
			wantAlt:   "fuzzy",
		},
		{
			name:      "fuzzy filename match on data-src",
			html:      `<img data-src="https://site.example/lazy/photo.jpg" alt="lazy">`,
			targetSrc: "https://site.example/photo.jpg",
			pageURL:   "https://site.example/post",
			wantAlt:   "lazy",
		},
		{
			name:      "fuzzy filename match on srcset",
			html:      `<img srcset="https://site.example/photo-400.jpg 400w, https://site.example/photo.jpg 800w" alt="set">`,
			targetSrc: "https://site.example/photo.jpg?v=2",
			pageURL:   "https://site.example/post",
			wantAlt:   "set",
		},
		{
			name:      "exact match preferred over earlier fuzzy candidate",
			html:      `<img src="https://cdn.example/thumbs/photo.jpg" alt="thumb"><img src="https://site.example/photo.jpg" alt="original">`,
			targetSrc: "https://site.example/photo.jpg",
			pageURL:   "https://site.example/post",
			wantAlt:   "original",
		},
		{
			name:      "no match",
			html:      `<img src="https://site.example/other.jpg" alt="other">`,
			targetSrc: "https://site.example/missing.jpg",
			pageURL:   "https://site.example/post",
			wantNil:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseHTML(t, tt.html)
			img := FindImage(doc, tt.targetSrc, tt.pageURL)
			if tt.wantNil {
				if img != nil {
					t.Fatalf("FindImage() = %v, want nil", img)
				}
				return
			}
			if img == nil {
				t.Fatal("FindImage() = nil, want a match")
			}
			if got := attr(img, "alt"); got != tt.wantAlt {
				t.Errorf("matched alt = %q, want %q", got, tt.wantAlt)
			}
		})
	}
}

func TestURLFilename(t *testing.T) {
	tests := []struct {
		name string
		url  string
		want string
	}{
		{"plain path", "https://site.example/uploads/photo.jpg", "photo.jpg"},
		{"query stripped", "https://site.example/photo.jpg?w=400&h=300", "photo.jpg"},
		{"percent decoded", "https://site.example/my%20photo.jpg", "my photo.jpg"},
		{"no path", "photo.jpg", "photo.jpg"},
		{"trailing slash", "https://site.example/uploads/", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := URLFilename(tt.url); got != tt.want {
				t.Errorf("URLFilename(%q) = %q, want %q", tt.url, got, tt.want)
			}
		})
	}
}

func TestSurroundingContext(t *testing.T) {
	tests := []struct {
		name string
		html string
		want []string
		skip []string
	}{
		{
			name: "figcaption under the image's parent",
			html: `<figure><img src="a.jpg"><figcaption>A red barn</figcaption></figure>`,
			want: []string{"Caption: A red barn"},
		},
		{
			name: "nearest preceding heading",
			html: `<div><h2>Gallery</h2><div><img src="a.jpg"></div></div>`,
			want: []string{"Nearest Heading: Gallery"},
		},
		{
			name: "heading found on an ancestor level",
			html: `<h1>Trip Report</h1><section><div><img src="a.jpg"></div></section>`,
			want: []string{"Nearest Heading: Trip Report"},
		},
		{
			name: "paragraphs around the image's parent",
			html: `<p>Before text.</p><figure><img src="a.jpg"></figure><p>After text.</p>`,
			want: []string{"Surrounding Paragraphs: Before text.\nAfter text."},
		},
		{
			name: "non-paragraph siblings ignored",
			html: `<div>Before.</div><figure><img src="a.jpg"></figure><div>After.</div>`,
			skip: []string{"Surrounding Paragraphs:"},
		},
		{
			name: "section content labelled",
			html: `<section><img src="a.jpg"><p>Inside the section.</p></section>`,
			want: []string{"Section Content: Inside the section."},
		},
		{
			name: "all segments in order",
			html: `<article><h2>Barn</h2><p>Intro.</p><figure><img src="a.jpg"><figcaption>Red barn</figcaption></figure><p>Outro.</p></article>`,
			want: []string{
				"Caption: Red barn\n",
				"Nearest Heading: Barn\n",
				"Surrounding Paragraphs: Intro.\nOutro.\n",
				"Section Content:",
			},
		},
		{
			name: "no context at all",
			html: `<div><img src="a.jpg"></div>`,
			skip: []string{"Caption:", "Nearest Heading:", "Surrounding Paragraphs:", "Section Content:"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseHTML(t, tt.html)
			img := firstElement(doc, "img")
			if img == nil {
				t.Fatal("no img in fixture")
			}
			got := SurroundingContext(img)
			for _, want := range tt.want {
				if !strings.Contains(got, want) {
					t.Errorf("context missing %q\ngot: %q", want, got)
				}
			}
			for _, skip := range tt.skip {
				if strings.Contains(got, skip) {
					t.Errorf("context should not contain %q\ngot: %q", skip, got)
				}
			}
		})
	}
}

func TestSurroundingContextOrder(t *testing.T) {
	raw := `<article><h2>Barn</h2><figure><img src="a.jpg"><figcaption>Red barn</figcaption></figure></article>`
	doc := parseHTML(t, raw)
	img := firstElement(doc, "img")

	got := SurroundingContext(img)
	caption := strings.Index(got, "Caption:")
	heading := strings.Index(got, "Nearest Heading:")
	section := strings.Index(got, "Section Content:")
	if caption == -1 || heading == -1 || section == -1 {
		t.Fatalf("expected all three segments, got %q", got)
	}
	if !(caption < heading && heading < section) {
		t.Errorf("segments out of order: %q", got)
	}
}

func TestSectionSnippetTruncation(t *testing.T) {
	long := strings.Repeat("word ", 200) // well over 500 chars once joined
	raw := `<section><img src="a.jpg"><p>` + long + `</p></section>`
	doc := parseHTML(t, raw)
	img := firstElement(doc, "img")

	got := sectionSnippet(img)
	if !strings.HasPrefix(got, "Section Content: ") {
		t.Fatalf("unexpected snippet %q", got)
	}
	body := strings.TrimPrefix(got, "Section Content: ")
	if !strings.HasSuffix(body, "...") {
		t.Errorf("long section should be truncated with ellipsis, got tail %q", body[len(body)-10:])
	}
	if len(body) != 503 {
		t.Errorf("truncated body length = %d, want 503", len(body))
	}
}

func TestSectionSnippetTruncationMultibyte(t *testing.T) {
	// 499 ASCII characters followed by multi-byte runes puts the 500th
	// character boundary mid-rune in byte terms.
	long := strings.Repeat("a", 499) + strings.Repeat("řž", 100)
	raw := `<section><img src="a.jpg"><p>` + long + `</p></section>`
	doc := parseHTML(t, raw)
	img := firstElement(doc, "img")

	got := sectionSnippet(img)
	if !utf8.ValidString(got) {
		t.Fatalf("section snippet contains invalid UTF-8: %q", got)
	}
	body := strings.TrimPrefix(got, "Section Content: ")
	if !strings.HasSuffix(body, "...") {
		t.Errorf("long section should be truncated with ellipsis, got tail %q", body[len(body)-10:])
	}
	if n := utf8.RuneCountInString(body); n != 503 {
		t.Errorf("truncated body rune count = %d, want 503", n)
	}
}

func TestWordPressPostID(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{
			name: "body class",
			html: `<body class="single single-post postid-123 logged-in"></body>`,
			want: "123",
		},
		{
			name: "rest discovery link",
			html: `<head><link rel="https://api.w.org/" href="https://site.example/wp-json/wp/v2/posts/456"></head>`,
			want: "456",
		},
		{
			name: "body class wins over link",
			html: `<head><link rel="https://api.w.org/" href="https://site.example/wp-json/wp/v2/posts/456"></head><body class="postid-123"></body>`,
			want: "123",
		},
		{
			name: "discovery link without post id",
			html: `<head><link rel="https://api.w.org/" href="https://site.example/wp-json/"></head>`,
			want: "",
		},
		{
			name: "not wordpress",
			html: `<body class="home"></body>`,
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := parseHTML(t, tt.html)
			if got := WordPressPostID(doc); got != tt.want {
				t.Errorf("WordPressPostID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestHasWPDiscoveryLink(t *testing.T) {
	doc := parseHTML(t, `<head><link rel="https://api.w.org/" href="https://site.example/wp-json/"></head>`)
	if !hasWPDiscoveryLink(doc) {
		t.Error("expected discovery link to be detected")
	}

	doc = parseHTML(t, `<head><link rel="stylesheet" href="style.css"></head>`)
	if hasWPDiscoveryLink(doc) {
		t.Error("stylesheet link should not read as WordPress")
	}
}

func TestNodeText(t *testing.T) {
	doc := parseHTML(t, `<p>  Hello   <b>big</b>
	world </p>`)
	p := firstElement(doc, "p")
	if got := nodeText(p); got != "Hello big world" {
		t.Errorf("nodeText() = %q, want %q", got, "Hello big world")
	}
}
