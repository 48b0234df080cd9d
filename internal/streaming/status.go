package streaming

import (
	"errors"
	"fmt"

	"github.com/Israel70964/YadnusConsultant2/internal/models"
)

// ErrInvalidTransition is returned when a start or end would move a webinar out of order.
var ErrInvalidTransition = errors.New("invalid streaming status transition")

// CanStart reports whether a stream in status s may be started. Starting an already live
// stream is allowed so the platform's own rejection reaches the caller.
func CanStart(s models.StreamingStatus) bool {
	return s == models.StreamingScheduled || s == models.StreamingLive
}

// CanEnd reports whether a stream in status s may be ended.
func CanEnd(s models.StreamingStatus) bool {
	return s == models.StreamingLive
}

// checkTransition returns ErrInvalidTransition, annotated with the current status, when
// allowed is false. An unset status counts as scheduled.
func checkTransition(action string, current models.StreamingStatus, allowed func(models.StreamingStatus) bool) error {
	if current == "" {
		current = models.StreamingScheduled
	}
	if allowed(current) {
		return nil
	}
	return fmt.Errorf("%w: cannot %s a stream that is %s", ErrInvalidTransition, action, current)
}
