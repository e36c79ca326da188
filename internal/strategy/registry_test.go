package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medcache/internal/errors"
)

func TestRegistry_IsEnabled(t *testing.T) {
	registry := NewRegistry(map[string]Policy{
		Transcription: {Enabled: true, TTL: time.Hour},
		PatientData:   {Enabled: false, TTL: time.Minute},
	})

	t.Run("enabled strategy", func(t *testing.T) {
		assert.True(t, registry.IsEnabled(Transcription))
	})

	t.Run("disabled strategy", func(t *testing.T) {
		assert.False(t, registry.IsEnabled(PatientData))
		assert.True(t, registry.Known(PatientData))
	})

	t.Run("unknown strategy", func(t *testing.T) {
		assert.False(t, registry.IsEnabled("nonexistent"))
		assert.False(t, registry.Known("nonexistent"))
	})
}

func TestRegistry_PolicyFor(t *testing.T) {
	registry := NewRegistry(DefaultPolicies())

	t.Run("known strategy", func(t *testing.T) {
		policy, err := registry.PolicyFor(Transcription)
		require.NoError(t, err)
		assert.Equal(t, time.Hour, policy.TTL)
		assert.True(t, policy.HasTransform(TransformCompress))
		assert.False(t, policy.HasTransform(TransformEncrypt))
	})

	t.Run("unknown strategy is not found", func(t *testing.T) {
		_, err := registry.PolicyFor("nonexistent")
		require.Error(t, err)
		assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
	})
}

func TestRegistry_Enabled(t *testing.T) {
	registry := NewRegistry(map[string]Policy{
		"b": {Enabled: true},
		"a": {Enabled: true},
		"c": {Enabled: false},
	})

	assert.Equal(t, []string{"a", "b"}, registry.Enabled())
}

func TestDefaultPolicies(t *testing.T) {
	policies := DefaultPolicies()

	assert.True(t, policies[Default].Enabled)
	assert.Zero(t, policies[Default].TTL)
	assert.True(t, policies[MedicalData].HasTransform(TransformEncrypt))
	assert.True(t, policies[PatientData].HasTransform(TransformAnonymize))
	assert.True(t, policies[VoiceCommands].HasTransform(TransformPersonalize))
	assert.True(t, policies[ClinicalSummary].HasTransform(TransformCompress))
}
