package cache

import (
	"context"
	"time"

	"medcache/internal/strategy"
)

// Strategy-specific convenience operations. Each checks its strategy's
// enablement through the regular gate, applies the strategy's declared
// transform (symmetrically for reversible transforms, write-only for lossy
// ones), and delegates to Get/Set with a strategy-prefixed sub-key.

// CacheTranscription stores a transcription result under its audio hash,
// compressed. A zero ttl uses the transcription strategy's TTL.
func (m *Manager) CacheTranscription(ctx context.Context, audioHash, text string, ttl time.Duration) bool {
	return m.Set(ctx, "transcription:"+audioHash, text, strategy.Transcription, &Options{
		TTL:      ttl,
		Compress: true,
	})
}

// GetTranscription retrieves a previously cached transcription
func (m *Manager) GetTranscription(ctx context.Context, audioHash string) (string, bool) {
	var text string
	found := m.GetInto(ctx, "transcription:"+audioHash, strategy.Transcription, &text, &Options{
		Compress: true,
	})
	return text, found
}

// CacheMedicalData stores a derived medical-data blob, encrypted
func (m *Manager) CacheMedicalData(ctx context.Context, dataKey string, data interface{}) bool {
	return m.Set(ctx, "medical:"+dataKey, data, strategy.MedicalData, &Options{
		Encrypt: true,
	})
}

// GetMedicalData retrieves a medical-data blob into dest
func (m *Manager) GetMedicalData(ctx context.Context, dataKey string, dest interface{}) bool {
	return m.GetInto(ctx, "medical:"+dataKey, strategy.MedicalData, dest, &Options{
		Encrypt: true,
	})
}

// CachePatientData stores per-patient data. The patientData strategy's
// anonymize transform runs unconditionally at write time; there is no way
// back on read.
func (m *Manager) CachePatientData(ctx context.Context, patientID string, data interface{}) bool {
	return m.Set(ctx, "patient:"+patientID, data, strategy.PatientData, nil)
}

// GetPatientData retrieves the anonymized patient data
func (m *Manager) GetPatientData(ctx context.Context, patientID string) (interface{}, bool) {
	return m.Get(ctx, "patient:"+patientID, strategy.PatientData, nil)
}

// CacheVoiceCommands stores a user's voice command set with owner context
// attached to each command at write time
func (m *Manager) CacheVoiceCommands(ctx context.Context, userID string, commands []string) bool {
	return m.Set(ctx, "voice:"+userID, commands, strategy.VoiceCommands, &Options{
		OwnerID: userID,
	})
}

// GetVoiceCommands retrieves the personalized command set
func (m *Manager) GetVoiceCommands(ctx context.Context, userID string) ([]map[string]interface{}, bool) {
	var commands []map[string]interface{}
	found := m.GetInto(ctx, "voice:"+userID, strategy.VoiceCommands, &commands, nil)
	return commands, found
}

// CacheClinicalSummary stores a generated clinical summary, compressed
func (m *Manager) CacheClinicalSummary(ctx context.Context, recordID, summary string) bool {
	return m.Set(ctx, "summary:"+recordID, summary, strategy.ClinicalSummary, &Options{
		Compress: true,
	})
}

// GetClinicalSummary retrieves a previously cached clinical summary
func (m *Manager) GetClinicalSummary(ctx context.Context, recordID string) (string, bool) {
	var summary string
	found := m.GetInto(ctx, "summary:"+recordID, strategy.ClinicalSummary, &summary, &Options{
		Compress: true,
	})
	return summary, found
}
