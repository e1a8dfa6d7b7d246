package redisstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLayout(t *testing.T) {
	assert.Equal(t, "stormwatch:settings:sess-1", settingsKey("sess-1"))
	assert.Equal(t, "stormwatch:dismissed:sess-1", dismissedKey("sess-1"))
	assert.NotEqual(t, settingsKey("a"), dismissedKey("a"))
}
