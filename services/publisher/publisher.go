package publisher

import "trendradar/internal/domain"

// Publisher announces newly discovered products to downstream consumers.
type Publisher interface {
	// PublishDiscovery publishes a product that was seen for the first time
	PublishDiscovery(product domain.Product) error

	// TrimStreams trims all streams to the configured maximum length
	TrimStreams() error

	// Close closes the publisher connection
	Close() error
}
