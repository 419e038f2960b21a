package wordpress

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/altsmith/altbridge/pkg/extract"
)

// Resolver maps an image URL to a media-library attachment id using a
// cascade of search strategies. A zero id with a nil error means "not
// found"; callers that actually need an id turn that into
// ErrMediaNotFound themselves.
type Resolver struct {
	client *Client
}

// NewResolver creates a resolver backed by the given client.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// resolverStrategy attempts one way of finding the attachment id for a
// filename. A zero id means the strategy found nothing; errors are
// treated the same way so later strategies still run.
type resolverStrategy struct {
	name string
	run  func(ctx context.Context, filename string) (int, error)
}

// Resolve tries each strategy in order and returns the first hit.
func (r *Resolver) Resolve(ctx context.Context, imageURL string) int {
	filename := extract.URLFilename(imageURL)
	if filename == "" {
		return 0
	}

	strategies := []resolverStrategy{
		{name: "exact", run: r.exactSearch},
		{name: "suffix-strip", run: r.suffixStripSearch},
		{name: "partial-token", run: r.partialTokenSearch},
	}

	for _, strategy := range strategies {
		id, err := strategy.run(ctx, filename)
		if err != nil {
			log.Printf("media resolver: %s strategy failed for %q: %v", strategy.name, filename, err)
			continue
		}
		if id != 0 {
			return id
		}
	}

	return 0
}

// exactSearch queries the media list by the full filename and takes the
// first result.
func (r *Resolver) exactSearch(ctx context.Context, filename string) (int, error) {
	items, err := r.client.SearchMedia(ctx, filename, 5)
	if err != nil {
		return 0, err
	}
	if len(items) == 0 {
		return 0, nil
	}
	return items[0].ID, nil
}

// resolutionSuffixRe matches WordPress resolution suffixes such as
// "-400x400" or "-1024x768-scaled" before the file extension.
var resolutionSuffixRe = regexp.MustCompile(`^(.*)-\d+x\d+(?:-[^.]+)?(\.[A-Za-z0-9]+)$`)

// StripResolutionSuffix removes a trailing -<width>x<height> marker
// (plus any modifier segments) from a filename. The second return value
// reports whether anything was stripped.
func StripResolutionSuffix(filename string) (string, bool) {
	m := resolutionSuffixRe.FindStringSubmatch(filename)
	if m == nil {
		return filename, false
	}
	return m[1] + m[2], true
}

// suffixStripSearch retries the exact search with the resolution suffix
// removed, covering thumbnails whose library entry is the original file.
func (r *Resolver) suffixStripSearch(ctx context.Context, filename string) (int, error) {
	stripped, ok := StripResolutionSuffix(filename)
	if !ok {
		return 0, nil
	}
	return r.exactSearch(ctx, stripped)
}

// partialTokenSearch searches by the first hyphen-delimited token of the
// filename and scans result source URLs for one containing the token.
// When several media items share the token the first one wins; results
// are not ranked by similarity.
func (r *Resolver) partialTokenSearch(ctx context.Context, filename string) (int, error) {
	if !strings.Contains(filename, "-") {
		return 0, nil
	}
	token := filename[:strings.Index(filename, "-")]
	if token == "" {
		return 0, nil
	}

	items, err := r.client.SearchMedia(ctx, token, 10)
	if err != nil {
		return 0, err
	}

	for _, item := range items {
		if strings.Contains(extract.URLFilename(item.SourceURL), token) {
			return item.ID, nil
		}
	}

	return 0, nil
}
