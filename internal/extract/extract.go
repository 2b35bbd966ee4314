package extract

import "doc-analyzer/internal/analysis"

// Segment is the (type, text) projection of a result block.
type Segment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Segments maps every block of res to a Segment, in order. Blocks without text
// yield a Segment with empty Text.
func Segments(res analysis.Result) []Segment {
	out := make([]Segment, len(res.Blocks))
	for i, b := range res.Blocks {
		out[i] = Segment{Type: b.BlockType, Text: b.Text}
	}
	return out
}

// CountByType tallies segments per block type.
func CountByType(segments []Segment) map[string]int {
	counts := make(map[string]int)
	for _, s := range segments {
		counts[s.Type]++
	}
	return counts
}
