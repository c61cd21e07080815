package vectordb

import "strings"

const (
	defaultChunkSize    = 1024
	defaultChunkOverlap = 100
)

// separators are tried in order when looking for a boundary to break a
// chunk on, so a chunk rarely splits mid-sentence.
var separators = []string{"\n\n", ". ", "! ", "? ", "\n"}

// splitText splits text into overlapping chunks of roughly chunkSize
// characters, preferring to break on a paragraph or sentence boundary
// when one falls in the back half of the window.
func splitText(text string, chunkSize, overlap int) []string {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	if overlap < 0 || overlap >= chunkSize {
		overlap = defaultChunkOverlap
	}
	if len(text) <= chunkSize {
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return nil
		}
		return []string{trimmed}
	}

	var chunks []string
	start := 0
	for start < len(text) {
		end := start + chunkSize
		if end > len(text) {
			end = len(text)
		}

		if end < len(text) {
			end = boundaryBreak(text, start, end, chunkSize)
		}

		chunk := strings.TrimSpace(text[start:end])
		if chunk != "" {
			chunks = append(chunks, chunk)
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
		if start >= len(text) {
			break
		}
	}
	return chunks
}

// boundaryBreak looks for the last separator occurrence inside (start, end)
// that falls no earlier than the midpoint of the window, so the chunk
// doesn't shrink to a sliver. Falls back to the hard end if none is found.
func boundaryBreak(text string, start, end, chunkSize int) int {
	half := start + chunkSize/2
	for _, sep := range separators {
		if pos := strings.LastIndex(text[start:end], sep); pos >= 0 {
			abs := start + pos
			if abs > half {
				return abs + len(sep)
			}
		}
	}
	return end
}
