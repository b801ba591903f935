package entity

// MaxItemsDefault caps the number of items returned per feed request
const MaxItemsDefault = 10

// FeedItem is one normalized entry extracted from an RSS document
type FeedItem struct {
	// Position in the response after sorting and truncation, starting at 0.
	ID          int    `json:"id"`
	Description string `json:"description"`
	// Publication date exactly as it appears in the document.
	PubDate string `json:"pubDate"`
	Link    string `json:"link"`
	// Thumbnail URL, omitted from the JSON when the item has none.
	Media string `json:"media,omitempty"`
}

// Envelope wraps a list under the "feed" key
type Envelope[T any] struct {
	Feed []T `json:"feed"`
}

// NewEnvelope never produces a null feed list
func NewEnvelope[T any](feed []T) Envelope[T] {
	if feed == nil {
		feed = []T{}
	}

	return Envelope[T]{Feed: feed}
}
