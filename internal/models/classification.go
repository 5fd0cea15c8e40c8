package models

import "fmt"

// Classification is the contract produced by the external classifier for one
// message. Confidence arrives as an integer percentage and is normalized to
// [0,1] before storage.
type Classification struct {
	Category   string `json:"category"`
	Name       string `json:"name"`
	Status     string `json:"status"`
	NextAction string `json:"next_action"`
	Notes      string `json:"notes"`
	Confidence int    `json:"confidence"`
}

// Normalize clamps the confidence percentage into [0,100].
func (c *Classification) Normalize() {
	if c.Confidence < 0 {
		c.Confidence = 0
	}
	if c.Confidence > 100 {
		c.Confidence = 100
	}
}

// Validate checks the category against the fixed set. Malformed classifier
// output fails fast here instead of propagating empty values downstream.
func (c *Classification) Validate() (Category, error) {
	if c == nil {
		return "", fmt.Errorf("%w: nil classification", ErrInvalidClassification)
	}
	return ParseCategory(c.Category)
}

// NormalizedConfidence returns the confidence as a fraction in [0,1].
func (c *Classification) NormalizedConfidence() float64 {
	c.Normalize()
	return float64(c.Confidence) / 100.0
}
