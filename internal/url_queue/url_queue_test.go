package urlqueue

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeURL(t *testing.T) {
	tests := map[string]string{
		"https://www.airbnb.es/rooms/1#photos": "https://airbnb.es/rooms/1",
		"https://airbnb.es/rooms/1?adults=2":   "https://airbnb.es/rooms/1?adults=2",
		"//www.airbnb.es/rooms/2":              "https://airbnb.es/rooms/2",
	}
	for in, want := range tests {
		require.Equal(t, want, NormalizeURL(in), in)
	}
}

func TestLinkSetKeepsFirstSpelling(t *testing.T) {
	q := NewLinkSet(0)
	require.True(t, q.Add("https://www.airbnb.es/rooms/1"))
	require.False(t, q.Add("https://airbnb.es/rooms/1#reviews"))
	require.True(t, q.Add("https://www.airbnb.es/rooms/2"))

	require.Equal(t, 2, q.Size())
	require.Equal(t, []string{"https://www.airbnb.es/rooms/1", "https://www.airbnb.es/rooms/2"}, q.Links())
}

func TestLinkSetLimit(t *testing.T) {
	q := NewLinkSet(1)
	require.True(t, q.Add("https://airbnb.es/rooms/1"))
	require.False(t, q.Add("https://airbnb.es/rooms/2"))
	require.Equal(t, 1, q.Size())
}

func TestFilter(t *testing.T) {
	f, err := NewFilter([]string{`/rooms/\d+`}, []string{`/rooms/plus/`})
	require.NoError(t, err)
	require.True(t, f.Allows("https://airbnb.es/rooms/42"))
	require.False(t, f.Allows("https://airbnb.es/rooms/plus/42"))
	require.False(t, f.Allows("https://airbnb.es/experiences/42"))

	open, err := NewFilter(nil, nil)
	require.NoError(t, err)
	require.True(t, open.Allows("https://anything.example"))

	_, err = NewFilter([]string{"("}, nil)
	require.Error(t, err)
}

func TestComputeContentHash(t *testing.T) {
	require.Equal(t, "d41d8cd98f00b204e9800998ecf8427e", ComputeContentHash(""))
	require.NotEqual(t, ComputeContentHash("a"), ComputeContentHash("b"))
}
