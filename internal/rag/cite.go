package rag

import (
	"regexp"
	"strconv"

	"github.com/quorra0/sage/internal/vectorstore"
)

// citationPattern matches bracketed numeric markers like [1] or [12].
var citationPattern = regexp.MustCompile(`\[(\d+)\]`)

// snippetLen caps how much chunk text a citation carries.
const snippetLen = 160

// resolveCitations maps bracketed markers in the answer text to the
// retrieved chunks, 1-based in retrieval order. Citations are returned in
// order of first appearance, each marker once; markers that resolve to no
// retrieved chunk are dropped.
func resolveCitations(text string, hits []vectorstore.Hit) []Citation {
	matches := citationPattern.FindAllStringSubmatch(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[int]bool, len(matches))
	var citations []Citation
	for _, m := range matches {
		idx, err := strconv.Atoi(m[1])
		if err != nil || idx < 1 || idx > len(hits) || seen[idx] {
			continue
		}
		seen[idx] = true

		rec := hits[idx-1].Record
		citations = append(citations, Citation{
			Index:      idx,
			ChunkID:    rec.ChunkID,
			DocumentID: rec.DocumentID,
			Snippet:    snippet(rec.Content),
		})
	}
	return citations
}

// snippet truncates content to snippetLen runes.
func snippet(content string) string {
	runes := []rune(content)
	if len(runes) <= snippetLen {
		return content
	}
	return string(runes[:snippetLen])
}
