package db

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"

	"tourism_watch/internal/models"
)

func TestListingUpdate(t *testing.T) {
	update, err := listingUpdate(&models.ListingDocument{
		ID:            "ignored",
		RunID:         "run-1",
		URL:           "https://www.airbnb.es/rooms/7",
		NormalizedURL: "https://airbnb.es/rooms/7",
		Permit:        "VFT/GR/00042",
		ContentHash:   "abc",
		LastScraped:   1714557600,
		ScrapedCount:  4,
	})
	require.NoError(t, err)

	require.Equal(t, bson.M{"scraped_count": 1}, update["$inc"])
	set, ok := update["$set"].(bson.M)
	require.True(t, ok)
	require.Equal(t, bson.M{
		"run_id":         "run-1",
		"url":            "https://www.airbnb.es/rooms/7",
		"normalized_url": "https://airbnb.es/rooms/7",
		"permit":         "VFT/GR/00042",
		"content_hash":   "abc",
		"last_scraped":   int64(1714557600),
	}, set)
	require.Equal(t, bson.M{"host": "", "title": "", "excerpt": ""}, update["$unset"])
}

func TestListingUpdateClearsFieldsLostSinceLastRun(t *testing.T) {
	full, err := listingUpdate(&models.ListingDocument{
		NormalizedURL: "https://airbnb.es/rooms/7",
		Host:          "Lucía",
		Permit:        "VFT/GR/00042",
		Title:         "Casa Alhambra",
		Excerpt:       "Vistas a la Alhambra",
	})
	require.NoError(t, err)
	require.NotContains(t, full, "$unset")

	bare, err := listingUpdate(&models.ListingDocument{NormalizedURL: "https://airbnb.es/rooms/7"})
	require.NoError(t, err)
	require.Equal(t, bson.M{"host": "", "permit": "", "title": "", "excerpt": ""}, bare["$unset"])
	require.NotContains(t, bare["$set"], "host")
	require.NotContains(t, bare["$set"], "permit")
}
