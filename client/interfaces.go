package client

import (
	"context"

	"github.com/researchaccelerator-hub/youtube-video-stats/model"
)

// Client is the full surface of a connected YouTube data client.
type Client interface {
	// Connect establishes a connection to the YouTube API
	Connect(ctx context.Context) error

	// Disconnect closes the connection to the YouTube API
	Disconnect(ctx context.Context) error

	// ResolveUploadsPlaylist returns the uploads playlist of a channel handle
	ResolveUploadsPlaylist(ctx context.Context, handle string) (string, error)

	// CollectVideoIDs returns every video ID in a playlist
	CollectVideoIDs(ctx context.Context, playlistID string) ([]string, error)

	// ExtractDetails returns one record per video the API returns
	ExtractDetails(ctx context.Context, videoIDs []string) ([]model.VideoRecord, error)
}

var _ Client = (*YouTubeDataClient)(nil)
