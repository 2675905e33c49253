package listing

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"go.uber.org/zap"

	"tourism_watch/internal/models"
)

// LinkSelectors locate listing links on a results page.
type LinkSelectors struct {
	// Item matches one listing card.
	Item string
	// URL matches the element inside a card that carries the link.
	URL string
	// Attribute is read from the URL element.
	Attribute string
}

// ExtractLinks returns listing URLs in page order, then card order. A page
// where any card lacks the link attribute contributes nothing and is logged.
func ExtractLinks(docs []*models.Document, sel LinkSelectors, log *zap.Logger) []string {
	links := []string{}
	for i, doc := range docs {
		var page []string
		complete := true
		doc.Find(sel.Item).EachWithBreak(func(_ int, item *goquery.Selection) bool {
			v, ok := item.Find(sel.URL).First().Attr(sel.Attribute)
			if !ok {
				complete = false
				return false
			}
			page = append(page, withScheme(strings.TrimSpace(v)))
			return true
		})
		if !complete {
			log.Warn("No links found in page", zap.Int("page", i+1), zap.String("url", doc.URL))
			continue
		}
		links = append(links, page...)
	}
	return links
}

// withScheme prefixes https to host+path links.
func withScheme(link string) string {
	switch {
	case strings.Contains(link, "://"):
		return link
	case strings.HasPrefix(link, "//"):
		return "https:" + link
	default:
		return "https://" + link
	}
}

// FieldSelectors locate the detail fields of one listing page.
type FieldSelectors struct {
	HostContainer string
	HostnameClass string
	PermitClass   string
}

// Fields holds the optional values found on a detail page.
type Fields struct {
	Host   *string
	Permit *string
}

// ExtractListingFields reads host and permit independently. A field that
// cannot be located stays nil and is logged as a warning.
func ExtractListingFields(doc *models.Document, sel FieldSelectors, log *zap.Logger) Fields {
	var f Fields

	container := doc.Find(sel.HostContainer).First()
	name := container.Find("div." + sel.HostnameClass).First()
	if container.Length() == 0 || name.Length() == 0 {
		log.Warn("Host username couldn't be extracted", zap.String("url", doc.URL))
	} else {
		parts := strings.Split(name.Text(), ": ")
		host := strings.TrimSpace(parts[len(parts)-1])
		f.Host = &host
	}

	permitEl := doc.Find("." + sel.PermitClass).First()
	tokens := strings.Fields(permitEl.Text())
	if permitEl.Length() == 0 || len(tokens) == 0 {
		log.Warn("Tourism's lodging permit couldn't be extracted", zap.String("url", doc.URL))
	} else {
		permit := tokens[len(tokens)-1]
		f.Permit = &permit
	}

	return f
}

// Summarize returns the readable title and excerpt of a detail page.
func Summarize(doc *models.Document) (title, excerpt string, err error) {
	pageURL, err := url.Parse(doc.URL)
	if err != nil {
		return "", "", err
	}
	article, err := readability.FromReader(strings.NewReader(doc.HTML), pageURL)
	if err != nil {
		return "", "", err
	}
	return article.Title, article.Excerpt, nil
}
