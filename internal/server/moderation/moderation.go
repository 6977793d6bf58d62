// Package moderation decides whether a provider reply is a recipe or the
// assistant declining an off-topic request.
package moderation

import (
	"strings"
)

type Verdict int

const (
	VerdictOK Verdict = iota
	VerdictRefusal
)

func (v Verdict) String() string {
	if v == VerdictRefusal {
		return "refusal"
	}
	return "ok"
}

// Classifier labels a completed reply.
type Classifier interface {
	Classify(reply string) Verdict
}

// DefaultRefusalMarkers are the phrases the chef prompt makes the model use
// when it declines.
var DefaultRefusalMarkers = []string{
	"I can only help with cooking",
	"I can only assist with cooking",
	"I'm a cooking assistant",
	"I am a cooking assistant",
	"not related to cooking",
}

// MarkerClassifier flags a reply as a refusal when it contains any marker.
// Matching is case-sensitive.
type MarkerClassifier struct {
	markers []string
}

// NewMarkerClassifier uses DefaultRefusalMarkers when markers is empty.
// Blank markers are dropped since they would match every reply.
func NewMarkerClassifier(markers []string) *MarkerClassifier {
	if len(markers) == 0 {
		markers = DefaultRefusalMarkers
	}
	kept := make([]string, 0, len(markers))
	for _, m := range markers {
		if m != "" {
			kept = append(kept, m)
		}
	}
	return &MarkerClassifier{markers: kept}
}

func (c *MarkerClassifier) Classify(reply string) Verdict {
	for _, m := range c.markers {
		if strings.Contains(reply, m) {
			return VerdictRefusal
		}
	}
	return VerdictOK
}

// ExtractRefusalMessage reduces a refusal to its first sentence: the text
// before the first line break, cut after the first period, trimmed.
func ExtractRefusalMessage(reply string) string {
	line, _, _ := strings.Cut(reply, "\n")
	if i := strings.IndexByte(line, '.'); i >= 0 {
		line = line[:i+1]
	}
	return strings.TrimSpace(line)
}

// RefusalError is returned when the assistant declined the request. Message
// is safe to show to the user.
type RefusalError struct {
	Message string
}

func (e *RefusalError) Error() string {
	return "refused: " + e.Message
}
