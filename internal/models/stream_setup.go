package models

// StreamSetup is what a successful platform setup writes onto a webinar. Only the id pair of
// the chosen platform is set; the other pair is cleared.
type StreamSetup struct {
	Platform         string
	YouTubeLiveID    string
	YouTubeStreamKey string
	ZoomMeetingID    string
	ZoomPassword     string
	Metadata         []byte
}
