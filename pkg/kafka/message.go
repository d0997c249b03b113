package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

// IncomingMessage is a consumed Kafka message with parsed metadata
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string
}

// ImageUploadEvent is the listing store's notification that an image was
// uploaded or replaced and needs (re)processing
type ImageUploadEvent struct {
	EventType string `json:"event_type"` // image.uploaded
	ImageID   string `json:"image_id"`
	Source    string `json:"source"` // project | product
	URL       string `json:"url"`
	AltText   string `json:"alt_text,omitempty"`
}

// ParseImageUploadEvent parses the message body as an image upload event
func (m *IncomingMessage) ParseImageUploadEvent() (*ImageUploadEvent, error) {
	var event ImageUploadEvent
	if err := json.Unmarshal(m.Value, &event); err != nil {
		return nil, fmt.Errorf("invalid image event payload: %w", err)
	}
	if event.ImageID == "" || event.URL == "" {
		return nil, fmt.Errorf("image event missing image_id or url")
	}
	return &event, nil
}
