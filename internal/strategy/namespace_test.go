package strategy

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNamespacedKey(t *testing.T) {
	t.Run("default strategy omits its segment", func(t *testing.T) {
		key := NamespacedKey("medcache:", Default, "user123")
		assert.Equal(t, "medcache:user123", key)
	})

	t.Run("named strategy adds its segment", func(t *testing.T) {
		key := NamespacedKey("medcache:", Transcription, "audioHash123")
		assert.Equal(t, "medcache:transcription:audioHash123", key)
	})

	t.Run("distinct strategies never collide", func(t *testing.T) {
		a := NamespacedKey("medcache:", Transcription, "k")
		b := NamespacedKey("medcache:", MedicalData, "k")
		assert.NotEqual(t, a, b)
	})

	t.Run("default keys stay outside named namespaces", func(t *testing.T) {
		key := NamespacedKey("medcache:", Default, "k")
		assert.False(t, strings.HasPrefix(key, Prefix("medcache:", Transcription)))
	})
}

func TestPrefix(t *testing.T) {
	assert.Equal(t, "medcache:transcription:", Prefix("medcache:", Transcription))
	assert.Equal(t, "medcache:", Prefix("medcache:", Default))

	t.Run("strategy keys share the strategy prefix", func(t *testing.T) {
		key := NamespacedKey("medcache:", VoiceCommands, "user42")
		assert.True(t, strings.HasPrefix(key, Prefix("medcache:", VoiceCommands)))
	})
}
