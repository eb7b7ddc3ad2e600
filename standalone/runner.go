// Package standalone runs a single extraction from the command line.
package standalone

import (
	"context"
	"time"

	"github.com/researchaccelerator-hub/youtube-video-stats/common"
	"github.com/researchaccelerator-hub/youtube-video-stats/crawler"
	"github.com/researchaccelerator-hub/youtube-video-stats/crawler/youtube"
	"github.com/rs/zerolog/log"
)

// LaunchFunc runs the pipeline once for a configuration.
type LaunchFunc func(ctx context.Context, cfg common.Config) (*crawler.RunResult, error)

// StartStandaloneMode runs one extraction for the configured channel and
// returns its error, if any. The caller decides the exit status.
func StartStandaloneMode(ctx context.Context, cfg common.Config) (*crawler.RunResult, error) {
	return launch(ctx, cfg, youtube.Launch)
}

func launch(ctx context.Context, cfg common.Config, run LaunchFunc) (*crawler.RunResult, error) {
	log.Info().
		Str("channel_handle", cfg.ChannelHandle).
		Str("output_dir", cfg.OutputDir).
		Msg("Starting extraction in standalone mode")

	start := time.Now()
	result, err := run(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Dur("elapsed", time.Since(start)).Msg("Extraction failed")
		return nil, err
	}

	log.Info().
		Str("run_id", result.RunID).
		Int("record_count", result.Records).
		Str("path", result.SnapshotPath).
		Msg("Extraction completed")
	return result, nil
}
