// Package profanity gates queries before retrieval; a triggered check
// short-circuits the request with a rejection.
package profanity

import goaway "github.com/TwiN/go-away"

// Gate reports whether text should be rejected outright.
type Gate interface {
	IsProfane(text string) bool
}

type Detector struct {
	detector *goaway.ProfanityDetector
}

func NewDetector() *Detector {
	return &Detector{detector: goaway.NewProfanityDetector()}
}

func (d *Detector) IsProfane(text string) bool {
	return d.detector.IsProfane(text)
}
