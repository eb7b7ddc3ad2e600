package client

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/researchaccelerator-hub/youtube-video-stats/model"
	youtubemodel "github.com/researchaccelerator-hub/youtube-video-stats/model/youtube"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"
)

// Options tunes how YouTubeDataClient talks to the API.
type Options struct {
	// Endpoint replaces the API base URL, e.g. "http://127.0.0.1:8080/".
	Endpoint string
	// Timeout bounds each HTTP request. Zero waits indefinitely.
	Timeout time.Duration
	// RequestsPerSecond paces calls. Zero disables pacing.
	RequestsPerSecond float64
	// Transport is the base round tripper. Defaults to http.DefaultTransport.
	Transport http.RoundTripper
}

// YouTubeDataClient reads channel, playlist and video data from the YouTube Data API v3.
// Calls are made one at a time; the client holds no per-run state.
type YouTubeDataClient struct {
	service    *ytapi.Service
	httpClient *http.Client
	limiter    *rate.Limiter
	apiKey     string
	opts       Options
}

// PlaylistPage is one page of playlistItems.list.
type PlaylistPage struct {
	VideoIDs      []string
	NextPageToken string
	TotalResults  int64
}

// Last reports whether no page follows p.
func (p *PlaylistPage) Last() bool {
	return p.NextPageToken == ""
}

// NewYouTubeDataClient creates a new YouTube data client
func NewYouTubeDataClient(apiKey string, opts Options) (*YouTubeDataClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("YouTube API key is required")
	}
	if opts.RequestsPerSecond < 0 {
		return nil, fmt.Errorf("requests per second must not be negative, got %v", opts.RequestsPerSecond)
	}

	c := &YouTubeDataClient{
		apiKey: apiKey,
		opts:   opts,
	}
	if opts.RequestsPerSecond > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return c, nil
}

// Connect builds the underlying API service.
func (c *YouTubeDataClient) Connect(ctx context.Context) error {
	log.Info().Msg("Connecting to YouTube API")

	base := c.opts.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	// An explicit HTTP client makes the service ignore option.WithAPIKey, so
	// the key is attached by the transport instead.
	httpClient := &http.Client{
		Timeout:   c.opts.Timeout,
		Transport: &transport.APIKey{Key: c.apiKey, Transport: base},
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if c.opts.Endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(c.opts.Endpoint))
	}

	service, err := ytapi.NewService(ctx, svcOpts...)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create YouTube service")
		return fmt.Errorf("failed to create YouTube service: %w", err)
	}

	c.service = service
	c.httpClient = httpClient
	log.Info().Str("endpoint", service.BasePath).Msg("Connected to YouTube API successfully")
	return nil
}

// Disconnect releases the API service.
func (c *YouTubeDataClient) Disconnect(ctx context.Context) error {
	c.service = nil
	c.httpClient = nil
	return nil
}

func (c *YouTubeDataClient) wait(ctx context.Context, op string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return transportError(op, err)
	}
	return nil
}

// ResolveUploadsPlaylist returns the ID of the playlist holding every upload
// of the channel with the given handle.
func (c *YouTubeDataClient) ResolveUploadsPlaylist(ctx context.Context, handle string) (string, error) {
	const op = "channels.list"
	if c.service == nil {
		return "", ErrNotConnected
	}
	if err := c.wait(ctx, op); err != nil {
		return "", err
	}

	log.Info().Str("channel_handle", handle).Msg("Resolving uploads playlist")

	response, err := c.service.Channels.List([]string{"contentDetails"}).
		ForHandle(handle).
		Context(ctx).
		Do()
	if err != nil {
		log.Error().Err(err).Str("channel_handle", handle).Int("status", StatusCode(err)).Bool("quota_exceeded", IsQuotaExceeded(err)).Msg("Failed to get channel from YouTube API")
		return "", transportError(op, err)
	}

	if len(response.Items) == 0 {
		log.Error().Str("channel_handle", handle).Msg("Channel not found on YouTube")
		return "", dataShapeError(op, fmt.Errorf("%w: %s", ErrChannelNotFound, handle))
	}

	details := response.Items[0].ContentDetails
	if details == nil || details.RelatedPlaylists == nil || details.RelatedPlaylists.Uploads == "" {
		return "", dataShapeError(op, fmt.Errorf("channel %s has no uploads playlist", handle))
	}

	uploads := details.RelatedPlaylists.Uploads
	log.Info().Str("channel_handle", handle).Str("playlist_id", uploads).Msg("Resolved uploads playlist")
	return uploads, nil
}

// PlaylistPages returns a lazy sequence over the pages of a playlist. Each
// step issues one playlistItems.list call; the sequence ends after the first
// page without a next page token or at the first error, which is yielded with
// a nil page.
func (c *YouTubeDataClient) PlaylistPages(ctx context.Context, playlistID string) iter.Seq2[*PlaylistPage, error] {
	return func(yield func(*PlaylistPage, error) bool) {
		if c.service == nil {
			yield(nil, ErrNotConnected)
			return
		}

		var pageToken string
		for {
			page, err := c.fetchPlaylistPage(ctx, playlistID, pageToken)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) || page.Last() {
				return
			}
			pageToken = page.NextPageToken
		}
	}
}

func (c *YouTubeDataClient) fetchPlaylistPage(ctx context.Context, playlistID, pageToken string) (*PlaylistPage, error) {
	const op = "playlistItems.list"
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}

	call := c.service.PlaylistItems.List([]string{"contentDetails"}).
		PlaylistId(playlistID).
		MaxResults(MaxBatchSize).
		Context(ctx)
	if pageToken != "" {
		call = call.PageToken(pageToken)
	}

	response, err := call.Do()
	if err != nil {
		log.Error().Err(err).Str("playlist_id", playlistID).Int("status", StatusCode(err)).Bool("quota_exceeded", IsQuotaExceeded(err)).Msg("Failed to get videos from playlist")
		return nil, transportError(op, err)
	}

	page := &PlaylistPage{
		VideoIDs:      make([]string, 0, len(response.Items)),
		NextPageToken: response.NextPageToken,
	}
	if response.PageInfo != nil {
		page.TotalResults = response.PageInfo.TotalResults
	}
	for i, item := range response.Items {
		if item.ContentDetails == nil || item.ContentDetails.VideoId == "" {
			return nil, dataShapeError(op, fmt.Errorf("playlist item %d of playlist %s has no video ID", i, playlistID))
		}
		page.VideoIDs = append(page.VideoIDs, item.ContentDetails.VideoId)
	}
	return page, nil
}

// CollectVideoIDs returns the IDs of every video in the playlist in page
// order. Nothing is returned if any page fails.
func (c *YouTubeDataClient) CollectVideoIDs(ctx context.Context, playlistID string) ([]string, error) {
	videoIDs := make([]string, 0)
	for page, err := range c.PlaylistPages(ctx, playlistID) {
		if err != nil {
			return nil, err
		}
		videoIDs = append(videoIDs, page.VideoIDs...)
		log.Info().
			Str("playlist_id", playlistID).
			Int("collected", len(videoIDs)).
			Int64("total", page.TotalResults).
			Msg("Collected video IDs so far")
	}
	return videoIDs, nil
}

// ExtractDetails fetches snippet, content details and statistics for every ID
// in batches of MaxBatchSize and returns one record per video the API knows.
// IDs missing from a response (deleted or private videos) are skipped. Nothing
// is returned if any batch fails.
func (c *YouTubeDataClient) ExtractDetails(ctx context.Context, videoIDs []string) ([]model.VideoRecord, error) {
	if c.service == nil {
		return nil, ErrNotConnected
	}

	batches := Chunk(videoIDs, MaxBatchSize)
	records := make([]model.VideoRecord, 0, len(videoIDs))
	for i, batch := range batches {
		response, err := c.fetchVideos(ctx, batch)
		if err != nil {
			log.Error().Err(err).Int("batch", i+1).Int("batches", len(batches)).Int("status", StatusCode(err)).Bool("quota_exceeded", IsQuotaExceeded(err)).Msg("Failed to get video details")
			return nil, err
		}
		for _, item := range response.Items {
			records = append(records, item.Record())
		}
		if missing := len(batch) - len(response.Items); missing > 0 {
			log.Warn().Int("batch", i+1).Int("missing", missing).Msg("Some videos were not returned by the API")
		}
		log.Debug().Int("batch", i+1).Int("batches", len(batches)).Int("records", len(records)).Msg("Extracted video batch")
	}

	log.Info().Int("video_count", len(videoIDs)).Int("record_count", len(records)).Msg("Extracted video details")
	return records, nil
}

// fetchVideos calls videos.list directly rather than through the generated
// client so that hidden statistics decode as absent instead of zero.
func (c *YouTubeDataClient) fetchVideos(ctx context.Context, batch []string) (*youtubemodel.VideoListResponse, error) {
	const op = "videos.list"
	if err := c.wait(ctx, op); err != nil {
		return nil, err
	}

	params := url.Values{}
	for _, part := range []string{"contentDetails", "snippet", "statistics"} {
		params.Add("part", part)
	}
	params.Set("id", strings.Join(batch, ","))
	params.Set("alt", "json")
	params.Set("prettyPrint", "false")
	endpoint := googleapi.ResolveRelative(c.service.BasePath, "youtube/v3/videos") + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, transportError(op, err)
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(op, err)
	}
	defer googleapi.CloseBody(res)

	if err := googleapi.CheckResponse(res); err != nil {
		return nil, transportError(op, err)
	}

	var response youtubemodel.VideoListResponse
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, dataShapeError(op, fmt.Errorf("failed to decode response: %w", err))
	}
	return &response, nil
}
