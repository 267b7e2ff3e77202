package metadata

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/MrSnakeDoc/keepmark/internal/domain"
)

// Extractor kinds, selected by KEEPMARK_EXTRACTOR.
const (
	KindRegex    = "regex"
	KindDocument = "document"
)

// Extractor turns an HTML document into page metadata.
type Extractor interface {
	Extract(html string) domain.Metadata
}

// NewExtractor returns the extractor for kind.
func NewExtractor(kind string) (Extractor, error) {
	switch kind {
	case KindRegex, "":
		return RegexExtractor{}, nil
	case KindDocument:
		return DocumentExtractor{}, nil
	default:
		return nil, fmt.Errorf("unknown extractor %q", kind)
	}
}

var (
	titleRe       = regexp.MustCompile(`(?i)<title>(.*?)</title>`)
	descriptionRe = regexp.MustCompile(`(?i)<meta name="description" content="(.*?)"`)
)

// RegexExtractor captures the first <title> and description meta tag
// verbatim. A tag split across lines or with reordered attributes is
// not found.
type RegexExtractor struct{}

func (RegexExtractor) Extract(html string) domain.Metadata {
	return domain.Metadata{
		Title:       firstSubmatch(titleRe, html),
		Description: firstSubmatch(descriptionRe, html),
	}
}

func firstSubmatch(re *regexp.Regexp, s string) *string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v := m[1]
	return &v
}

// DocumentExtractor parses the page with goquery. Entities are decoded
// and the title is trimmed.
type DocumentExtractor struct{}

func (DocumentExtractor) Extract(html string) domain.Metadata {
	var meta domain.Metadata

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return meta
	}

	if title := doc.Find("title").First(); title.Length() > 0 {
		t := strings.TrimSpace(title.Text())
		meta.Title = &t
	}

	if content, ok := doc.Find("meta[name='description']").First().Attr("content"); ok {
		meta.Description = &content
	}

	return meta
}
