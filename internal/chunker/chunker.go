package chunker

import (
	"errors"
	"math"
	"regexp"
	"strings"

	"github.com/xxxsen/kbase/internal/model"
)

// ErrEmptyInput means normalization produced zero paragraphs. Callers
// must treat this as a hard ingestion failure, never as an empty result.
var ErrEmptyInput = errors.New("no text content to chunk")

const (
	DefaultChunkSize    = 1000
	DefaultChunkOverlap = 200

	// Rough words-to-tokens ratio for latin-script text.
	tokensPerWord = 1.33
)

var (
	multiNewlineRegex = regexp.MustCompile(`\n{3,}`)
	spaceRunRegex     = regexp.MustCompile(`[ \t]{2,}`)
	paragraphSplit    = regexp.MustCompile(`\n\s*\n`)
)

type Chunker struct {
	chunkSize    int
	chunkOverlap int
}

func New(chunkSize, chunkOverlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap < 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	if chunkOverlap >= chunkSize {
		chunkOverlap = chunkSize / 5
	}
	return &Chunker{chunkSize: chunkSize, chunkOverlap: chunkOverlap}
}

func (c *Chunker) ChunkSize() int {
	return c.chunkSize
}

func (c *Chunker) ChunkOverlap() int {
	return c.chunkOverlap
}

// Chunk splits normalized text into bounded, overlapping segments. It is
// a pure function of its inputs: identical text and parameters always
// produce identical chunk boundaries and ids.
func (c *Chunker) Chunk(text, documentID, knowledgeBaseID string) ([]model.DocumentChunk, error) {
	paragraphs := splitParagraphs(Normalize(text))
	if len(paragraphs) == 0 {
		return nil, ErrEmptyInput
	}

	var chunks []model.DocumentChunk
	var buf string
	emit := func(content string) {
		content = strings.TrimSpace(content)
		if content == "" {
			return
		}
		position := len(chunks)
		chunks = append(chunks, model.DocumentChunk{
			ID:              model.ChunkID(documentID, position),
			DocumentID:      documentID,
			KnowledgeBaseID: knowledgeBaseID,
			Content:         content,
			Position:        position,
			TokenCount:      EstimateTokens(content),
		})
	}

	for _, para := range paragraphs {
		if buf == "" {
			buf = para
			continue
		}
		if len(buf)+2+len(para) > c.chunkSize {
			emit(buf)
			buf = overlapTail(buf, c.chunkOverlap) + "\n\n" + para
			continue
		}
		buf = buf + "\n\n" + para
	}
	if strings.TrimSpace(buf) != "" {
		emit(buf)
	}
	if len(chunks) == 0 {
		return nil, ErrEmptyInput
	}
	return chunks, nil
}

// Normalize unifies line endings, collapses excess blank lines and space
// runs, and trims the result.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = multiNewlineRegex.ReplaceAllString(text, "\n\n")
	text = spaceRunRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// EstimateTokens approximates the token count of a chunk:
// ceil(wordCount * 1.33), words split on whitespace.
func EstimateTokens(text string) int {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	return int(math.Ceil(float64(words) * tokensPerWord))
}

func splitParagraphs(text string) []string {
	if text == "" {
		return nil
	}
	raw := paragraphSplit.Split(text, -1)
	paragraphs := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		paragraphs = append(paragraphs, p)
	}
	return paragraphs
}

// overlapTail returns the last n characters of s on rune boundaries.
func overlapTail(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}
