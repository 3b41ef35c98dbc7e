// Copyright 2025 Philipp Hossner
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package compiler

import "strings"

// SegmentKind classifies a piece of template source.
type SegmentKind int

const (
	// Literal text is copied to the output verbatim.
	Literal SegmentKind = iota

	// Logic is code between the open and close tags.
	Logic
)

// String returns the kind name.
func (k SegmentKind) String() string {
	switch k {
	case Literal:
		return "literal"
	case Logic:
		return "logic"
	default:
		return "unknown"
	}
}

// Segment is one piece of split template source.
type Segment struct {
	Kind SegmentKind
	Text string
}

// Split cuts source into literal and logic segments. The source is split on
// every open tag; each chunk is then split once on its first close tag. A
// chunk without a close tag is literal in its entirety, which makes an
// unterminated open tag plain text. Empty literals are dropped. Tags do not
// nest.
func Split(source, openTag, closeTag string) []Segment {
	chunks := strings.Split(source, openTag)
	segments := make([]Segment, 0, 2*len(chunks))

	for i, chunk := range chunks {
		if i == 0 {
			if chunk != "" {
				segments = append(segments, Segment{Kind: Literal, Text: chunk})
			}
			continue
		}

		logic, rest, found := strings.Cut(chunk, closeTag)
		if !found {
			if chunk != "" {
				segments = append(segments, Segment{Kind: Literal, Text: chunk})
			}
			continue
		}

		segments = append(segments, Segment{Kind: Logic, Text: logic})
		if rest != "" {
			segments = append(segments, Segment{Kind: Literal, Text: rest})
		}
	}

	return segments
}
