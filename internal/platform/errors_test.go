package platform

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePlatform(t *testing.T) {
	assert.Equal(t, YouTube, ParsePlatform("youtube"))
	assert.Equal(t, Zoom, ParsePlatform(" Zoom "))
	assert.Equal(t, None, ParsePlatform(""))
	assert.Equal(t, None, ParsePlatform("twitch"))
}

func TestAsRequestErrorThroughWrapping(t *testing.T) {
	base := &PlatformRequestError{Platform: YouTube, Operation: "bind", StatusCode: 404, Message: "Broadcast not found"}
	wrapped := fmt.Errorf("YouTube Live setup failed: %w", base)

	got, ok := AsRequestError(wrapped)
	require.True(t, ok)
	assert.Equal(t, 404, got.StatusCode)
	assert.Equal(t, "youtube bind: Broadcast not found (status 404)", got.Error())

	_, ok = AsRequestError(errors.New("dial tcp: timeout"))
	assert.False(t, ok)
}

func TestIsMissingCredentials(t *testing.T) {
	err := fmt.Errorf("setup: %w", &MissingCredentialsError{Platform: YouTube})
	assert.True(t, IsMissingCredentials(err))
	assert.False(t, IsMissingCredentials(errors.New("other")))
}
