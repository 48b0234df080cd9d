package youtube

import (
	"context"
	"time"

	"go.uber.org/zap"
	yt "google.golang.org/api/youtube/v3"
)

// Session issues API calls under one admin's credentials.
type Session struct {
	svc    *yt.Service
	logger *zap.Logger
}

// CreateBroadcast creates a public, not-made-for-kids broadcast scheduled at start.
func (s *Session) CreateBroadcast(ctx context.Context, title, description string, start time.Time) (*Broadcast, error) {
	b := &yt.LiveBroadcast{
		Snippet: &yt.LiveBroadcastSnippet{
			Title:              title,
			Description:        description,
			ScheduledStartTime: start.UTC().Format(time.RFC3339),
		},
		Status: &yt.LiveBroadcastStatus{
			PrivacyStatus:           "public",
			SelfDeclaredMadeForKids: false,
			ForceSendFields:         []string{"SelfDeclaredMadeForKids"},
		},
	}
	out, err := s.svc.LiveBroadcasts.Insert([]string{"snippet", "status"}, b).Context(ctx).Do()
	if err != nil {
		return nil, requestError("createBroadcast", err)
	}
	return toBroadcast(out), nil
}

// CreateStream creates a 1080p RTMP ingest stream.
func (s *Session) CreateStream(ctx context.Context, title string) (*Stream, error) {
	ls := &yt.LiveStream{
		Snippet: &yt.LiveStreamSnippet{Title: title},
		Cdn: &yt.CdnSettings{
			IngestionType: "rtmp",
			Resolution:    "1080p",
			FrameRate:     "variable",
		},
	}
	out, err := s.svc.LiveStreams.Insert([]string{"snippet", "cdn"}, ls).Context(ctx).Do()
	if err != nil {
		return nil, requestError("createStream", err)
	}
	st := &Stream{ID: out.Id}
	if out.Cdn != nil && out.Cdn.IngestionInfo != nil {
		st.IngestURL = out.Cdn.IngestionInfo.IngestionAddress
		st.StreamKey = out.Cdn.IngestionInfo.StreamName
	}
	return st, nil
}

// Bind associates an existing stream with an existing broadcast.
func (s *Session) Bind(ctx context.Context, broadcastID, streamID string) error {
	_, err := s.svc.LiveBroadcasts.Bind(broadcastID, []string{"id", "contentDetails"}).
		StreamId(streamID).Context(ctx).Do()
	if err != nil {
		return requestError("bind", err)
	}
	return nil
}

// Transition asks the platform to move a broadcast to status. Invalid transitions are
// rejected by the platform and returned as-is.
func (s *Session) Transition(ctx context.Context, broadcastID string, status BroadcastStatus) (*Broadcast, error) {
	out, err := s.svc.LiveBroadcasts.Transition(string(status), broadcastID, []string{"status"}).Context(ctx).Do()
	if err != nil {
		return nil, requestError("transition", err)
	}
	return toBroadcast(out), nil
}

// DeleteBroadcast removes a broadcast.
func (s *Session) DeleteBroadcast(ctx context.Context, broadcastID string) error {
	if err := s.svc.LiveBroadcasts.Delete(broadcastID).Context(ctx).Do(); err != nil {
		return requestError("deleteBroadcast", err)
	}
	return nil
}

// DeleteStream removes an ingest stream.
func (s *Session) DeleteStream(ctx context.Context, streamID string) error {
	if err := s.svc.LiveStreams.Delete(streamID).Context(ctx).Do(); err != nil {
		return requestError("deleteStream", err)
	}
	return nil
}

// StartLiveStream runs createBroadcast, createStream and bind in order. The first failure
// aborts the sequence; anything already created is deleted on a best-effort basis and the
// ids are logged so an operator can clean up if that also fails.
func (s *Session) StartLiveStream(ctx context.Context, title, description string, start time.Time) (*LiveStream, error) {
	broadcast, err := s.CreateBroadcast(ctx, title, description, start)
	if err != nil {
		return nil, err
	}
	stream, err := s.CreateStream(ctx, title)
	if err != nil {
		s.cleanup(ctx, broadcast.ID, "")
		return nil, err
	}
	if err := s.Bind(ctx, broadcast.ID, stream.ID); err != nil {
		s.cleanup(ctx, broadcast.ID, stream.ID)
		return nil, err
	}
	return &LiveStream{
		BroadcastID: broadcast.ID,
		StreamID:    stream.ID,
		WatchURL:    broadcast.WatchURL,
		StreamKey:   stream.StreamKey,
		RTMPURL:     stream.IngestURL,
	}, nil
}

// cleanup ignores cancellation of ctx and is bounded by cleanupTimeout instead.
func (s *Session) cleanup(ctx context.Context, broadcastID, streamID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	s.logger.Warn("youtube setup aborted, removing partial resources",
		zap.String("broadcast_id", broadcastID),
		zap.String("stream_id", streamID),
	)
	if broadcastID != "" {
		if err := s.DeleteBroadcast(ctx, broadcastID); err != nil {
			s.logger.Error("orphaned youtube broadcast", zap.String("broadcast_id", broadcastID), zap.Error(err))
		}
	}
	if streamID != "" {
		if err := s.DeleteStream(ctx, streamID); err != nil {
			s.logger.Error("orphaned youtube stream", zap.String("stream_id", streamID), zap.Error(err))
		}
	}
}

const cleanupTimeout = 15 * time.Second

func toBroadcast(b *yt.LiveBroadcast) *Broadcast {
	out := &Broadcast{ID: b.Id, WatchURL: watchURLPrefix + b.Id}
	if b.Status != nil {
		out.LifeCycleStatus = b.Status.LifeCycleStatus
	}
	return out
}
