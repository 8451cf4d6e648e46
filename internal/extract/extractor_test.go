package extract

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetByContentTypeAndExtension(t *testing.T) {
	ex, err := Get("text/plain", "")
	require.NoError(t, err)
	out, err := ex.Extract(context.Background(), []byte("hello"))
	require.NoError(t, err)
	require.Equal(t, "hello", out)

	// charset parameters are ignored
	_, err = Get("text/markdown; charset=utf-8", "")
	require.NoError(t, err)

	// unknown content type falls back to the extension
	_, err = Get("application/octet-stream", "notes.md")
	require.NoError(t, err)

	_, err = Get("application/pdf", "doc.pdf")
	require.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestMarkdownExtract(t *testing.T) {
	src := []byte("# Title\n\nFirst paragraph with *emphasis*.\n\n- one\n- two\n\n```go\nfmt.Println(1)\n```\n")
	ex, err := Get("text/markdown", "")
	require.NoError(t, err)
	out, err := ex.Extract(context.Background(), src)
	require.NoError(t, err)
	require.Contains(t, out, "Title")
	require.Contains(t, out, "First paragraph with emphasis.")
	require.Contains(t, out, "one")
	require.Contains(t, out, "fmt.Println(1)")
	require.NotContains(t, out, "*emphasis*")
}

func TestMarkdownExtractEmpty(t *testing.T) {
	ex, err := Get("text/markdown", "")
	require.NoError(t, err)
	_, err = ex.Extract(context.Background(), []byte("   \n\n  "))
	require.ErrorIs(t, err, ErrExtraction)
}
