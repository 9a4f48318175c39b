package chunker

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/clearline/speclens/internal/models"
)

// Chunker splits document text into section-tagged, overlapping chunks.
type Chunker struct {
	opts Options
}

// New creates a chunker; zero option fields fall back to spec-prose defaults.
func New(opts Options) *Chunker {
	opts.applyDefaults()
	return &Chunker{opts: opts}
}

// Chunk splits text into unembedded chunks for sourceID. Sentence and
// paragraph boundaries are preferred; boundaries that would bisect a
// measurement, citation, or reference code are deferred. Returns nil when no
// sentences can be extracted; callers must treat that as an extraction
// failure. Text shorter than MinSize yields exactly one chunk.
func (c *Chunker) Chunk(sourceID, text string) []models.Chunk {
	collapsed := normalizeWhitespace(text)
	if collapsed == "" {
		return nil
	}
	sections := splitSections(text)
	if len(collapsed) < c.opts.MinSize {
		header := ""
		if len(sections) > 0 {
			header = sections[0].header
		}
		return []models.Chunk{c.newChunk(sourceID, collapsed, 0, header, models.SectionComplete)}
	}

	var out []models.Chunk
	position := 0
	overlapChars := int(c.opts.OverlapRatio * float64(c.opts.OptimalSize))
	for _, sec := range sections {
		sentences := sectionSentences(sec.body)
		if len(sentences) == 0 {
			continue
		}
		texts := c.assemble(sentences)
		secType := models.SectionPartial
		if len(texts) == 1 {
			secType = models.SectionComplete
		}
		for i, t := range texts {
			if i > 0 && overlapChars > 0 {
				// The overlap prefix must not lift the chunk over MaxSize.
				want := overlapChars
				if room := c.opts.MaxSize - len(t) - 1; room < want {
					want = room
				}
				if want > 0 {
					if prefixed := overlapTail(texts[i-1], want) + " " + t; len(prefixed) <= c.opts.MaxSize {
						t = prefixed
					}
				}
			}
			out = append(out, c.newChunk(sourceID, t, position, sec.header, secType))
			position++
		}
	}
	return out
}

func (c *Chunker) newChunk(sourceID, text string, position int, header string, secType models.SectionType) models.Chunk {
	return models.Chunk{
		ID:            fmt.Sprintf("%s_%s", sourceID, uuid.New().String()[:8]),
		SourceID:      sourceID,
		Text:          text,
		Position:      position,
		SectionHeader: header,
		SectionType:   secType,
	}
}

// sectionSentences splits a section body into sentences, honoring paragraph
// breaks (blank lines) as hard boundaries.
func sectionSentences(body string) []string {
	var sentences []string
	for _, para := range strings.Split(body, "\n\n") {
		sentences = append(sentences, splitSentences(para)...)
	}
	return sentences
}

// assemble greedily packs sentences into chunk texts near OptimalSize.
// Sentences longer than MaxSize are word-wrapped; a trailing chunk under
// MinSize is merged back into its predecessor when the result fits MaxSize.
func (c *Chunker) assemble(sentences []string) []string {
	var texts []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			texts = append(texts, cur.String())
			cur.Reset()
		}
	}
	for _, s := range sentences {
		if len(s) > c.opts.MaxSize {
			flush()
			texts = append(texts, wrapOversize(s, c.opts.MaxSize)...)
			continue
		}
		// OptimalSize is a soft target deferred while the buffer is under
		// MinSize; MaxSize is a hard ceiling and always flushes.
		next := cur.Len() + 1 + len(s)
		if cur.Len() > 0 && (next > c.opts.MaxSize ||
			(next > c.opts.OptimalSize && cur.Len() >= c.opts.MinSize)) {
			flush()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(s)
	}
	flush()
	if n := len(texts); n >= 2 && len(texts[n-1]) < c.opts.MinSize {
		merged := texts[n-2] + " " + texts[n-1]
		if len(merged) <= c.opts.MaxSize {
			texts = append(texts[:n-2], merged)
		}
	}
	return texts
}

// overlapTail returns the last ~want characters of text, extended backward to
// a word boundary and past any entity it would otherwise start inside.
func overlapTail(text string, want int) string {
	if len(text) <= want {
		return text
	}
	start := len(text) - want
	for start > 0 && text[start-1] != ' ' {
		start--
	}
	spans := entitySpans(text)
	for start > 0 && insideAny(spans, start) {
		start--
	}
	return strings.TrimSpace(text[start:])
}
