// Package model contains the records produced by an extraction run.
package model

// VideoRecord is the flat per-video record stored in a snapshot. Optional
// fields are nil when the platform omits them and serialize as JSON null.
// Statistics keep the platform's string encoding.
type VideoRecord struct {
	VideoID      string  `json:"video_id"`
	Title        *string `json:"title"`
	PublishedAt  *string `json:"publishedAt"`
	Duration     *string `json:"duration"`
	ViewCount    *string `json:"viewCount"`
	LikeCount    *string `json:"likeCount"`
	CommentCount *string `json:"commentCount"`
}

// StringPtr returns a pointer to s.
func StringPtr(s string) *string {
	return &s
}

// StringValue returns the value s points to, or "" for nil.
func StringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
