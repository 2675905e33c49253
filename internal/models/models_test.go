package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRowLeavesAbsentFieldsEmpty(t *testing.T) {
	host := "María"
	r := NewListingRecord("https://www.airbnb.es/rooms/1")
	require.Equal(t, []string{"https://www.airbnb.es/rooms/1", "", ""}, r.Row())

	r.Host = &host
	require.Equal(t, []string{"https://www.airbnb.es/rooms/1", "María", ""}, r.Row())
}

func TestDocumentFind(t *testing.T) {
	d, err := NewDocument("https://www.airbnb.es/s/granada", 2, `<div class="c1l1h97y"></div><div class="c1l1h97y"></div>`)
	require.NoError(t, err)
	require.Equal(t, 2, d.Index)
	require.Equal(t, 2, d.Find(".c1l1h97y").Length())
	require.Equal(t, 1, d.Selection().Find("body").Length())
}
