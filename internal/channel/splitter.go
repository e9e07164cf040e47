// Package channel turns the learner's character stream into utterances.
package channel

import (
	"errors"
	"fmt"
	"strings"
)

var ErrOverflow = errors.New("utterance too long")

// Splitter buffers fragments until a sentence boundary. An utterance is the
// text up to and including '.', '!' or '?', with surrounding space trimmed.
type Splitter struct {
	max int
	buf strings.Builder
}

// NewSplitter bounds each utterance, and the bytes held while no boundary
// has been seen, to max bytes. max <= 0 disables the bound.
func NewSplitter(max int) *Splitter {
	return &Splitter{max: max}
}

// Feed appends a fragment and returns the utterances it completed. No
// utterance and no buffered remainder exceeds max bytes: text that would is
// dropped, the buffer is reset and ErrOverflow is returned together with the
// utterances completed around it.
func (s *Splitter) Feed(fragment string) ([]string, error) {
	var (
		out      []string
		overflow int
	)
	for len(fragment) > 0 {
		i := strings.IndexAny(fragment, ".!?")
		if i < 0 {
			if s.exceeds(len(fragment)) {
				overflow = s.buf.Len() + len(fragment)
				s.buf.Reset()
				break
			}
			s.buf.WriteString(fragment)
			break
		}
		sentence := fragment[:i+1]
		fragment = fragment[i+1:]
		if s.exceeds(len(sentence)) {
			overflow = s.buf.Len() + len(sentence)
			s.buf.Reset()
			continue
		}
		s.buf.WriteString(sentence)
		if u := strings.TrimSpace(s.buf.String()); u != "" && !isBoundaryOnly(u) {
			out = append(out, u)
		}
		s.buf.Reset()
	}
	if overflow > 0 {
		return out, fmt.Errorf("%w: %d bytes without a sentence end (max %d)", ErrOverflow, overflow, s.max)
	}
	return out, nil
}

func (s *Splitter) exceeds(n int) bool {
	return s.max > 0 && s.buf.Len()+n > s.max
}

// Pending is the buffered text of the unfinished utterance.
func (s *Splitter) Pending() string { return s.buf.String() }

func isBoundaryOnly(u string) bool {
	return strings.Trim(u, ".!? ") == ""
}
