package extract

import (
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Extractor finds a clicked image within a fetched page and builds the
// prompt context from nearby markup.
type Extractor struct {
	fetcher  *Fetcher
	renderer *ImageRenderer
}

// NewExtractor creates a new extractor
func NewExtractor(fetcher *Fetcher, renderer *ImageRenderer) *Extractor {
	return &Extractor{
		fetcher:  fetcher,
		renderer: renderer,
	}
}

// Extract fetches the page, locates the target image and returns the
// extracted context together with the rendered image payload.
func (e *Extractor) Extract(ctx context.Context, pageURL, imageURL string) (*ExtractedContext, error) {
	pageHTML, err := e.fetcher.FetchPage(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	doc, err := html.Parse(strings.NewReader(pageHTML))
	if err != nil {
		return nil, &ExtractError{
			Type:    ErrParseFailure,
			Message: fmt.Sprintf("failed to parse page HTML: %v", err),
		}
	}

	img := FindImage(doc, imageURL, pageURL)
	if img == nil {
		return nil, &ExtractError{
			Type:       ErrElementNotFound,
			Message:    "could not find the image element on the page",
			Suggestion: "Reload the page and try again",
		}
	}

	result := &ExtractedContext{
		ImageURL:    imageURL,
		OriginalAlt: attr(img, "alt"),
		HTMLContext: SurroundingContext(img),
	}

	result.WPPostID = WordPressPostID(doc)
	result.IsWordPress = result.WPPostID != "" || hasWPDiscoveryLink(doc)

	data, _, err := e.fetcher.FetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}
	rendered, err := e.renderer.Render(data)
	if err != nil {
		return nil, err
	}
	result.ImageBase64 = rendered.Base64
	result.ImageWidth = rendered.Width
	result.ImageHeight = rendered.Height

	return result, nil
}

// FindImage locates the img element matching the target URL. Exact match
// on the resolved src wins; otherwise the trailing filename (query string
// stripped) is matched by containment against src, data-src and srcset.
// The first fuzzy hit wins, with no ranking among multiple candidates.
func FindImage(doc *html.Node, targetSrc, pageURL string) *html.Node {
	images := collectElements(doc, "img")
	base, _ := url.Parse(pageURL)

	for _, img := range images {
		if resolveURL(base, attr(img, "src")) == targetSrc {
			return img
		}
	}

	filename := URLFilename(targetSrc)
	if filename == "" {
		return nil
	}
	for _, img := range images {
		for _, key := range []string{"src", "data-src", "srcset"} {
			if v := attr(img, key); v != "" && strings.Contains(v, filename) {
				return img
			}
		}
	}

	return nil
}

// URLFilename returns the trailing path segment of a URL with any query
// string stripped and percent-encoding decoded.
func URLFilename(rawURL string) string {
	s := rawURL
	if idx := strings.Index(s, "?"); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.LastIndex(s, "/"); idx >= 0 {
		s = s[idx+1:]
	}
	if decoded, err := url.QueryUnescape(s); err == nil {
		s = decoded
	}
	return s
}

// contextStrategy produces one optional labelled snippet near the image.
type contextStrategy func(img *html.Node) string

// SurroundingContext applies the proximity strategies in fixed order and
// concatenates whatever they find. It never fails; absent segments are
// simply omitted.
func SurroundingContext(img *html.Node) string {
	strategies := []contextStrategy{
		captionSnippet,
		headingSnippet,
		paragraphSnippet,
		sectionSnippet,
	}

	var sb strings.Builder
	for _, strategy := range strategies {
		if snippet := strategy(img); snippet != "" {
			sb.WriteString(snippet)
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// captionSnippet finds a figcaption anywhere under the image's parent.
func captionSnippet(img *html.Node) string {
	parent := img.Parent
	if parent == nil {
		return ""
	}
	if caption := firstElement(parent, "figcaption"); caption != nil {
		if text := nodeText(caption); text != "" {
			return "Caption: " + text
		}
	}
	return ""
}

// headingSnippet walks preceding siblings of the image, then preceding
// siblings of each ancestor up to the document root, and returns the
// first heading found.
func headingSnippet(img *html.Node) string {
	for node := img; node != nil; node = node.Parent {
		for sib := prevElement(node); sib != nil; sib = prevElement(sib) {
			if isHeading(sib) {
				if text := nodeText(sib); text != "" {
					return "Nearest Heading: " + text
				}
				return ""
			}
		}
	}
	return ""
}

// paragraphSnippet takes the siblings immediately before and after the
// image's parent, keeping each only when it is a <p>.
func paragraphSnippet(img *html.Node) string {
	parent := img.Parent
	if parent == nil || parent.Parent == nil {
		return ""
	}

	var paragraphs []string
	if prev := prevElement(parent); prev != nil && prev.Data == "p" {
		if text := nodeText(prev); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	if next := nextElement(parent); next != nil && next.Data == "p" {
		if text := nodeText(next); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}

	if len(paragraphs) == 0 {
		return ""
	}
	return "Surrounding Paragraphs: " + strings.Join(paragraphs, "\n")
}

// sectionSnippet finds the nearest section or article ancestor and takes
// up to 500 characters of its text.
func sectionSnippet(img *html.Node) string {
	for node := img.Parent; node != nil; node = node.Parent {
		if node.Type == html.ElementNode && (node.Data == "section" || node.Data == "article") {
			text := nodeText(node)
			if text == "" {
				return ""
			}
			// Truncate on runes, not bytes; Czech section text is full
			// of multi-byte characters.
			if runes := []rune(text); len(runes) > 500 {
				text = string(runes[:500]) + "..."
			}
			return "Section Content: " + text
		}
	}
	return ""
}

var (
	postIDClassRe = regexp.MustCompile(`postid-(\d+)`)
	postIDLinkRe  = regexp.MustCompile(`/wp-json/wp/v2/posts/(\d+)`)
)

// WordPressPostID derives the post id from the body class, falling back
// to the REST discovery link.
func WordPressPostID(doc *html.Node) string {
	if body := firstElement(doc, "body"); body != nil {
		if m := postIDClassRe.FindStringSubmatch(attr(body, "class")); m != nil {
			return m[1]
		}
	}

	for _, link := range collectElements(doc, "link") {
		if attr(link, "rel") != "https://api.w.org/" {
			continue
		}
		if m := postIDLinkRe.FindStringSubmatch(attr(link, "href")); m != nil {
			return m[1]
		}
	}

	return ""
}

// hasWPDiscoveryLink reports whether the page advertises the WordPress
// REST API at all, which marks the page as a WordPress site even when no
// post id is exposed.
func hasWPDiscoveryLink(doc *html.Node) bool {
	for _, link := range collectElements(doc, "link") {
		if attr(link, "rel") == "https://api.w.org/" {
			return true
		}
	}
	return false
}

// ---- DOM helpers ----

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func resolveURL(base *url.URL, ref string) string {
	if ref == "" {
		return ""
	}
	if base == nil {
		return ref
	}
	parsed, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(parsed).String()
}

// collectElements returns all elements with the given tag, in document order.
func collectElements(root *html.Node, tag string) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

// firstElement returns the first descendant with the given tag.
func firstElement(root *html.Node, tag string) *html.Node {
	if root.Type == html.ElementNode && root.Data == tag {
		return root
	}
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if found := firstElement(c, tag); found != nil {
			return found
		}
	}
	return nil
}

func prevElement(n *html.Node) *html.Node {
	for sib := n.PrevSibling; sib != nil; sib = sib.PrevSibling {
		if sib.Type == html.ElementNode {
			return sib
		}
	}
	return nil
}

func nextElement(n *html.Node) *html.Node {
	for sib := n.NextSibling; sib != nil; sib = sib.NextSibling {
		if sib.Type == html.ElementNode {
			return sib
		}
	}
	return nil
}

func isHeading(n *html.Node) bool {
	if n.Type != html.ElementNode || len(n.Data) != 2 {
		return false
	}
	return n.Data[0] == 'h' && n.Data[1] >= '1' && n.Data[1] <= '6'
}

var whitespaceRe = regexp.MustCompile(`\s+`)

// nodeText returns the trimmed text content of a node with whitespace
// runs collapsed.
func nodeText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(node *html.Node) {
		if node.Type == html.TextNode {
			sb.WriteString(node.Data)
			sb.WriteString(" ")
		}
		for c := node.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(sb.String(), " "))
}
