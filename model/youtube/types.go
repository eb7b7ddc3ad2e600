// Package youtube contains the YouTube Data API response shapes the extractor
// decodes itself.
//
// The generated client in google.golang.org/api types statistics as uint64
// with omitempty, which turns a hidden counter into 0. These shapes keep every
// optional field as a pointer so absence survives decoding.
package youtube

import "github.com/researchaccelerator-hub/youtube-video-stats/model"

// VideoListResponse is the body of a videos.list call. A call by ID returns
// every match in one page, so paging fields are not decoded.
type VideoListResponse struct {
	Items []Video `json:"items"`
}

// Video is one item of a videos.list response.
type Video struct {
	ID             string               `json:"id"`
	Snippet        *VideoSnippet        `json:"snippet,omitempty"`
	ContentDetails *VideoContentDetails `json:"contentDetails,omitempty"`
	Statistics     *VideoStatistics     `json:"statistics,omitempty"`
}

// VideoSnippet holds the snippet part of a video.
type VideoSnippet struct {
	Title       *string `json:"title,omitempty"`
	PublishedAt *string `json:"publishedAt,omitempty"`
}

// VideoContentDetails holds the contentDetails part of a video.
type VideoContentDetails struct {
	Duration *string `json:"duration,omitempty"`
}

// VideoStatistics holds the statistics part of a video. Counters the
// uploader hides are left out of the response.
type VideoStatistics struct {
	ViewCount    *string `json:"viewCount,omitempty"`
	LikeCount    *string `json:"likeCount,omitempty"`
	CommentCount *string `json:"commentCount,omitempty"`
}

// Record flattens v into a snapshot record.
func (v Video) Record() model.VideoRecord {
	record := model.VideoRecord{VideoID: v.ID}
	if v.Snippet != nil {
		record.Title = v.Snippet.Title
		record.PublishedAt = v.Snippet.PublishedAt
	}
	if v.ContentDetails != nil {
		record.Duration = v.ContentDetails.Duration
	}
	if v.Statistics != nil {
		record.ViewCount = v.Statistics.ViewCount
		record.LikeCount = v.Statistics.LikeCount
		record.CommentCount = v.Statistics.CommentCount
	}
	return record
}
