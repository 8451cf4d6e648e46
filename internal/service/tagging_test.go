package service

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTagChunkContentSortedPriceTable(t *testing.T) {
	content := "plan basico: $10\nplan medio: $20\nplan premium: $30"
	tags := TagChunkContent(content)
	require.Equal(t, "true", tags["isPriceTable"])
	require.Equal(t, "price_table_sorted", tags["blockType"])
}

func TestTagChunkContentUnsortedPriceTable(t *testing.T) {
	content := "plan medio: $20\nplan basico: $10\nplan premium: $30"
	tags := TagChunkContent(content)
	require.Equal(t, "true", tags["isPriceTable"])
	require.NotContains(t, tags, "blockType")
}

func TestTagChunkContentTableAndList(t *testing.T) {
	table := "nombre | precio\nbasico | bajo\npremium | alto"
	require.Equal(t, "table", TagChunkContent(table)["blockType"])

	list := "- primera opcion\n- segunda opcion\n- tercera opcion"
	require.Equal(t, "list", TagChunkContent(list)["blockType"])
}

func TestTagChunkContentProse(t *testing.T) {
	require.Nil(t, TagChunkContent("un parrafo normal de texto sin estructura"))
	require.Nil(t, TagChunkContent("linea uno\nlinea dos de prosa\ny una tercera linea"))
}
