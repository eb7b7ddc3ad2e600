// Package youtube runs the YouTube channel extraction pipeline.
package youtube

import (
	"context"
	"fmt"
	"time"

	"github.com/researchaccelerator-hub/youtube-video-stats/client"
	"github.com/researchaccelerator-hub/youtube-video-stats/common"
	"github.com/researchaccelerator-hub/youtube-video-stats/crawler"
	"github.com/researchaccelerator-hub/youtube-video-stats/snapshot"
	"github.com/rs/zerolog/log"
)

// YouTubeCrawler runs resolve, collect, extract and write in order for one
// channel. Each stage consumes the full output of the one before it.
type YouTubeCrawler struct {
	source crawler.VideoSource
	writer crawler.SnapshotWriter
	cfg    common.Config
	now    func() time.Time
}

// NewYouTubeCrawler creates a new YouTube crawler
func NewYouTubeCrawler(source crawler.VideoSource, writer crawler.SnapshotWriter, cfg common.Config) *YouTubeCrawler {
	return &YouTubeCrawler{
		source: source,
		writer: writer,
		cfg:    cfg,
		now:    time.Now,
	}
}

// Run executes one extraction run. The first failing stage aborts the run and
// nothing is written.
func (c *YouTubeCrawler) Run(ctx context.Context) (*crawler.RunResult, error) {
	if c.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.cfg.RunTimeout)
		defer cancel()
	}

	handle := c.cfg.ChannelHandle
	result := &crawler.RunResult{
		RunID:         common.GenerateRunID(),
		ChannelHandle: handle,
		StartedAt:     c.now(),
	}
	logger := log.With().Str("run_id", result.RunID).Str("channel_handle", handle).Logger()
	logger.Info().Dur("run_timeout", c.cfg.RunTimeout).Msg("Starting extraction run")

	fail := func(stage crawler.Stage, err error) (*crawler.RunResult, error) {
		logger.Error().Err(err).Str("stage", string(stage)).Dur("elapsed", time.Since(result.StartedAt)).Msg("Extraction run failed")
		return nil, fmt.Errorf("%s stage: %w", stage, err)
	}

	playlistID, err := c.source.ResolveUploadsPlaylist(ctx, handle)
	if err != nil {
		return fail(crawler.StageResolve, err)
	}
	result.PlaylistID = playlistID
	logger.Info().Str("stage", string(crawler.StageResolve)).Str("playlist_id", playlistID).Msg("Stage complete")

	videoIDs, err := c.source.CollectVideoIDs(ctx, playlistID)
	if err != nil {
		return fail(crawler.StageCollect, err)
	}
	result.VideoIDs = len(videoIDs)
	logger.Info().Str("stage", string(crawler.StageCollect)).Int("video_count", len(videoIDs)).Msg("Stage complete")

	records, err := c.source.ExtractDetails(ctx, videoIDs)
	if err != nil {
		return fail(crawler.StageExtract, err)
	}
	result.Records = len(records)
	logger.Info().Str("stage", string(crawler.StageExtract)).Int("record_count", len(records)).Msg("Stage complete")

	// The write is not cancellable, so a run that ran out of time stops here.
	if err := ctx.Err(); err != nil {
		return fail(crawler.StageWrite, err)
	}
	path, err := c.writer.Write(records, handle)
	if err != nil {
		return fail(crawler.StageWrite, err)
	}
	result.SnapshotPath = path
	result.Duration = time.Since(result.StartedAt)

	logger.Info().
		Str("playlist_id", result.PlaylistID).
		Int("video_count", result.VideoIDs).
		Int("record_count", result.Records).
		Str("path", path).
		Dur("duration", result.Duration).
		Msg("Extraction run complete")
	return result, nil
}

// Launch connects a YouTube client, runs the pipeline once for cfg and
// disconnects.
func Launch(ctx context.Context, cfg common.Config) (*crawler.RunResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	ytClient, err := client.NewYouTubeDataClient(cfg.APIKey, client.Options{
		Endpoint:          cfg.APIEndpoint,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create YouTube client: %w", err)
	}
	if err := ytClient.Connect(ctx); err != nil {
		return nil, err
	}
	defer func() {
		if err := ytClient.Disconnect(ctx); err != nil {
			log.Error().Err(err).Msg("Error disconnecting YouTube client")
		}
	}()

	store := snapshot.NewStore(cfg.OutputDir)
	return NewYouTubeCrawler(ytClient, store, cfg).Run(ctx)
}
