package youtube

import (
	"encoding/json"
	"testing"

	"github.com/researchaccelerator-hub/youtube-video-stats/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoRecord(t *testing.T) {
	tests := []struct {
		name string
		body string
		want model.VideoRecord
	}{
		{
			name: "all parts present",
			body: `{
				"id": "abc123",
				"snippet": {"title": "Trailer", "publishedAt": "2024-05-01T16:00:00Z"},
				"contentDetails": {"duration": "PT2M31S"},
				"statistics": {"viewCount": "1500", "likeCount": "42", "commentCount": "0"}
			}`,
			want: model.VideoRecord{
				VideoID:      "abc123",
				Title:        model.StringPtr("Trailer"),
				PublishedAt:  model.StringPtr("2024-05-01T16:00:00Z"),
				Duration:     model.StringPtr("PT2M31S"),
				ViewCount:    model.StringPtr("1500"),
				LikeCount:    model.StringPtr("42"),
				CommentCount: model.StringPtr("0"),
			},
		},
		{
			name: "hidden like count",
			body: `{
				"id": "abc123",
				"snippet": {"title": "Trailer", "publishedAt": "2024-05-01T16:00:00Z"},
				"contentDetails": {"duration": "PT2M31S"},
				"statistics": {"viewCount": "1500", "commentCount": "7"}
			}`,
			want: model.VideoRecord{
				VideoID:      "abc123",
				Title:        model.StringPtr("Trailer"),
				PublishedAt:  model.StringPtr("2024-05-01T16:00:00Z"),
				Duration:     model.StringPtr("PT2M31S"),
				ViewCount:    model.StringPtr("1500"),
				CommentCount: model.StringPtr("7"),
			},
		},
		{
			name: "only id",
			body: `{"id": "bare"}`,
			want: model.VideoRecord{VideoID: "bare"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var video Video
			require.NoError(t, json.Unmarshal([]byte(tt.body), &video))
			assert.Equal(t, tt.want, video.Record())
		})
	}
}

func TestVideoRecord_NullsInJSON(t *testing.T) {
	record := Video{ID: "bare"}.Record()

	data, err := json.Marshal(record)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"video_id": "bare",
		"title": null,
		"publishedAt": null,
		"duration": null,
		"viewCount": null,
		"likeCount": null,
		"commentCount": null
	}`, string(data))
}

func TestVideoListResponse_IgnoresUnusedFields(t *testing.T) {
	body := `{
		"kind": "youtube#videoListResponse",
		"nextPageToken": "CAEQAA",
		"pageInfo": {"totalResults": 1, "resultsPerPage": 1},
		"items": [{
			"id": "abc123",
			"snippet": {"title": "Trailer", "channelId": "UC1", "description": "long"},
			"statistics": {"viewCount": "3", "favoriteCount": "0"}
		}]
	}`

	var response VideoListResponse
	require.NoError(t, json.Unmarshal([]byte(body), &response))
	require.Len(t, response.Items, 1)
	assert.Equal(t, model.VideoRecord{
		VideoID:   "abc123",
		Title:     model.StringPtr("Trailer"),
		ViewCount: model.StringPtr("3"),
	}, response.Items[0].Record())
}
