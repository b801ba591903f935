package feed

import (
	"bytes"
	"fmt"
	"slices"
	"time"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
	"github.com/mmcdole/gofeed/rss"
	"github.com/rasxm/simplerss/internal/entity"
)

// Transformer converts raw RSS documents into bounded item lists
type Transformer struct {
	// MaxItems caps the number of returned items, entity.MaxItemsDefault when 0
	MaxItems int

	// PlainText reduces HTML descriptions to collapsed plain text
	PlainText bool
}

// NewTransformer creates a Transformer from the feed configuration
func NewTransformer(cfg entity.FeedConfig) *Transformer {
	return &Transformer{
		MaxItems:  cfg.MaxItems,
		PlainText: cfg.PlainText,
	}
}

type datedItem struct {
	item      *rss.Item
	published time.Time
}

// Transform parses an RSS 2.0 document and returns its most recent items,
// newest first, with ids assigned by position.
// Items with equal or unparseable dates keep their document order; an
// unparseable date counts as the zero time.
func (t *Transformer) Transform(body []byte) ([]entity.FeedItem, error) {
	if feedType := gofeed.DetectFeedType(bytes.NewReader(body)); feedType != gofeed.FeedTypeRSS {
		return nil, &entity.MalformedFeedError{Reason: fmt.Sprintf("unsupported document type %q", feedTypeName(feedType))}
	}

	parser := &rss.Parser{}
	doc, err := parser.Parse(bytes.NewReader(body))

	if err != nil {
		return nil, &entity.MalformedFeedError{Reason: "could not parse rss document", Err: err}
	}

	if len(doc.Items) == 0 {
		return nil, &entity.MalformedFeedError{Reason: "rss document has no channel items"}
	}

	dated := make([]datedItem, 0, len(doc.Items))

	for _, it := range doc.Items {
		d := datedItem{item: it}

		if it.PubDateParsed != nil {
			d.published = *it.PubDateParsed
		}

		dated = append(dated, d)
	}

	slices.SortStableFunc(dated, func(a, b datedItem) int {
		return b.published.Compare(a.published)
	})

	limit := t.MaxItems

	if limit <= 0 {
		limit = entity.MaxItemsDefault
	}

	if len(dated) > limit {
		dated = dated[:limit]
	}

	items := make([]entity.FeedItem, 0, len(dated))

	for i, d := range dated {
		description := d.item.Description

		if t.PlainText {
			description = plainText(description)
		}

		items = append(items, entity.FeedItem{
			ID:          i,
			Description: description,
			PubDate:     d.item.PubDate,
			Link:        d.item.Link,
			Media:       thumbnailURL(d.item.Extensions),
		})
	}

	return items, nil
}

// thumbnailURL returns the url attribute of the first media:thumbnail element
func thumbnailURL(extensions ext.Extensions) string {
	thumbnails := extensions["media"]["thumbnail"]

	if len(thumbnails) == 0 {
		return ""
	}

	return thumbnails[0].Attrs["url"]
}

func feedTypeName(t gofeed.FeedType) string {
	switch t {
	case gofeed.FeedTypeAtom:
		return "atom"
	case gofeed.FeedTypeJSON:
		return "json"
	case gofeed.FeedTypeRSS:
		return "rss"
	default:
		return "unknown"
	}
}
