package ingest

import "unicode"

const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 80
)

// Split cuts text into chunks of at most size runes where consecutive chunks
// share exactly overlap runes. Cuts prefer a paragraph break, then a line
// break, then a word break inside the window; only a window with no
// whitespace at all is cut mid-word. A text shorter than size yields one
// chunk.
func Split(text string, size, overlap int) []string {
	if size <= 0 {
		size = DefaultChunkSize
	}
	if overlap < 0 || overlap >= size {
		overlap = DefaultChunkOverlap
		if overlap >= size {
			overlap = size / 4
		}
	}

	runes := []rune(text)
	if len(runes) <= size {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + size
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		cut := boundaryCut(runes, start, end, overlap)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - overlap
	}
	return chunks
}

// boundaryCut returns the position to cut at, exclusive. The search floor
// keeps cuts past start+overlap so every step makes progress.
func boundaryCut(runes []rune, start, end, overlap int) int {
	floor := start + overlap + 1
	if min := start + (end-start)/2; min > floor {
		floor = min
	}

	// paragraph break
	for i := end - 1; i > floor; i-- {
		if runes[i-1] == '\n' && runes[i] == '\n' {
			return i + 1
		}
	}
	// line break
	for i := end - 1; i >= floor; i-- {
		if runes[i] == '\n' {
			return i + 1
		}
	}
	// word break
	for i := end - 1; i >= floor; i-- {
		if unicode.IsSpace(runes[i]) {
			return i + 1
		}
	}
	return end
}
