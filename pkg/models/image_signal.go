package models

import "time"

// ImageSource identifies which side of a match an image belongs to
type ImageSource string

const (
	ImageSourceProject ImageSource = "project"
	ImageSourceProduct ImageSource = "product"
)

// AttributeSet maps an attribute kind (category, material, color, context, ...)
// to the set of tags extracted for that kind. Kinds are open-ended.
type AttributeSet map[string][]string

// ImageSignal is the persisted per-image scoring input: one embedding plus
// extracted attributes, keyed by image_id. The image itself lives in the
// listing store; we only ever see its id and URL.
type ImageSignal struct {
	ImageID    string       `json:"image_id"`
	Source     ImageSource  `json:"source"`
	Embedding  []float64    `json:"embedding"`
	Attributes AttributeSet `json:"attributes"`
	Confidence float64      `json:"confidence"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// HasEmbedding reports whether the signal carries a usable (non-zero) embedding.
func (s *ImageSignal) HasEmbedding() bool {
	for _, v := range s.Embedding {
		if v != 0 {
			return true
		}
	}
	return false
}
