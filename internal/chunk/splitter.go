// Package chunk splits long text into overlapping fixed-size windows for
// embedding and storage.
package chunk

import (
	"errors"
	"fmt"
)

// ErrBadOverlap indicates an overlap that makes the window advance
// non-positive. This is a configuration error, never a retry condition.
var ErrBadOverlap = errors.New("chunk overlap must be smaller than chunk size")

// Splitter produces fixed-size overlapping chunks of text.
type Splitter struct {
	size    int
	overlap int
}

// NewSplitter creates a splitter with the given window size and overlap.
// Returns ErrBadOverlap if the resulting advance step would be non-positive.
func NewSplitter(size, overlap int) (*Splitter, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	if overlap < 0 {
		return nil, fmt.Errorf("chunk overlap must be non-negative, got %d", overlap)
	}
	if overlap >= size {
		return nil, fmt.Errorf("%w: size=%d overlap=%d", ErrBadOverlap, size, overlap)
	}
	return &Splitter{size: size, overlap: overlap}, nil
}

// Split slides a window of the configured size across text, advancing by
// size-overlap each step. The final window is clipped to the end of the text.
// Empty input yields a single empty chunk so callers always have something
// to embed.
func (s *Splitter) Split(text string) []string {
	if text == "" {
		return []string{""}
	}
	if len(text) <= s.size {
		return []string{text}
	}

	step := s.size - s.overlap
	chunks := make([]string, 0, 1+(len(text)-s.size+step-1)/step)
	for start := 0; ; start += step {
		end := start + s.size
		if end >= len(text) {
			chunks = append(chunks, text[start:])
			break
		}
		chunks = append(chunks, text[start:end])
	}
	return chunks
}

// Size returns the configured window size.
func (s *Splitter) Size() int { return s.size }

// Overlap returns the configured window overlap.
func (s *Splitter) Overlap() int { return s.overlap }
