// Package crawler defines the stages of a channel extraction run.
package crawler

import (
	"context"
	"time"

	"github.com/researchaccelerator-hub/youtube-video-stats/model"
)

// VideoSource reads a channel's uploads from the video platform.
type VideoSource interface {
	// ResolveUploadsPlaylist returns the playlist holding every upload of the channel.
	ResolveUploadsPlaylist(ctx context.Context, handle string) (string, error)

	// CollectVideoIDs returns every video ID in the playlist.
	CollectVideoIDs(ctx context.Context, playlistID string) ([]string, error)

	// ExtractDetails returns one record per known video.
	ExtractDetails(ctx context.Context, videoIDs []string) ([]model.VideoRecord, error)
}

// SnapshotWriter persists the records of a run and returns where they went.
type SnapshotWriter interface {
	Write(records []model.VideoRecord, handle string) (string, error)
}

// Stage names a step of a run in logs and errors.
type Stage string

const (
	StageResolve Stage = "resolve"
	StageCollect Stage = "collect"
	StageExtract Stage = "extract"
	StageWrite   Stage = "write"
)

// RunResult summarizes a successful run.
type RunResult struct {
	RunID         string
	ChannelHandle string
	PlaylistID    string
	VideoIDs      int
	Records       int
	SnapshotPath  string
	StartedAt     time.Time
	Duration      time.Duration
}
