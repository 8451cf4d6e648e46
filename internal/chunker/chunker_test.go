package chunker

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	in := "a  b\r\nc\r\rd\n\n\n\n\ne\t\tf  "
	out := Normalize(in)
	require.Equal(t, "a b\nc\n\nd\n\ne f", out)
}

func TestEstimateTokens(t *testing.T) {
	require.Equal(t, 0, EstimateTokens(""))
	require.Equal(t, int(math.Ceil(1*1.33)), EstimateTokens("hola"))
	require.Equal(t, int(math.Ceil(4*1.33)), EstimateTokens("one two three four"))
}

func TestChunkEmptyInput(t *testing.T) {
	c := New(500, 50)
	_, err := c.Chunk("", "doc-1", "kb-1")
	require.ErrorIs(t, err, ErrEmptyInput)
	_, err = c.Chunk("  \n\n \t ", "doc-1", "kb-1")
	require.ErrorIs(t, err, ErrEmptyInput)
}

func TestChunkSingleParagraph(t *testing.T) {
	c := New(500, 50)
	chunks, err := c.Chunk("just one paragraph", "doc-1", "kb-1")
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	require.Equal(t, "doc-1_chunk_0", chunks[0].ID)
	require.Equal(t, "just one paragraph", chunks[0].Content)
	require.Equal(t, EstimateTokens("just one paragraph"), chunks[0].TokenCount)
}

func buildText(paragraphs, paraLen int) string {
	word := "palabra "
	var para strings.Builder
	for para.Len() < paraLen {
		para.WriteString(word)
	}
	parts := make([]string, 0, paragraphs)
	for i := 0; i < paragraphs; i++ {
		parts = append(parts, strings.TrimSpace(para.String()))
	}
	return strings.Join(parts, "\n\n")
}

func TestChunkOverlapScenario(t *testing.T) {
	// ~1000 chars, size 500, overlap 50 -> at least two chunks whose
	// boundary shares a ~50 char tail/head.
	text := buildText(9, 118)
	require.GreaterOrEqual(t, len(text), 1000)

	c := New(500, 50)
	chunks, err := c.Chunk(text, "doc-1", "kb-1")
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(chunks), 2)

	tail := chunks[0].Content[len(chunks[0].Content)-50:]
	require.True(t, strings.HasPrefix(chunks[1].Content, tail))
}

func TestChunkBounds(t *testing.T) {
	text := buildText(20, 150)
	c := New(400, 40)
	chunks, err := c.Chunk(text, "doc-2", "kb-1")
	require.NoError(t, err)
	for _, chunk := range chunks {
		// a chunk may exceed the target size by at most one paragraph
		// plus the overlap seed
		require.LessOrEqual(t, len(chunk.Content), 400+150+40+4, "chunk %d", chunk.Position)
		require.NotEmpty(t, strings.TrimSpace(chunk.Content))
	}
}

func TestChunkDeterminism(t *testing.T) {
	text := buildText(12, 130)
	c := New(450, 45)
	first, err := c.Chunk(text, "doc-3", "kb-1")
	require.NoError(t, err)
	second, err := c.Chunk(text, "doc-3", "kb-1")
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestChunkNoContentLoss(t *testing.T) {
	text := buildText(8, 200)
	paragraphs := strings.Split(Normalize(text), "\n\n")
	c := New(512, 64)
	chunks, err := c.Chunk(text, "doc-4", "kb-1")
	require.NoError(t, err)
	joined := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		joined = append(joined, chunk.Content)
	}
	all := strings.Join(joined, "\n\n")
	for _, para := range paragraphs {
		require.Contains(t, all, strings.TrimSpace(para))
	}
}

func TestChunkPositionsAndIDs(t *testing.T) {
	text := buildText(10, 180)
	c := New(400, 40)
	chunks, err := c.Chunk(text, "doc-5", "kb-9")
	require.NoError(t, err)
	for i, chunk := range chunks {
		require.Equal(t, i, chunk.Position)
		require.Equal(t, "doc-5", chunk.DocumentID)
		require.Equal(t, "kb-9", chunk.KnowledgeBaseID)
		require.Contains(t, chunk.ID, "doc-5_chunk_")
	}
}

func TestNewClampsOverlap(t *testing.T) {
	c := New(100, 100)
	require.Equal(t, 100, c.ChunkSize())
	require.Equal(t, 20, c.ChunkOverlap())
}
