// Package strategy defines the named cache policies and the key namespace
// they live under. A strategy bundles an enablement flag, a TTL, and the
// transform flags applied at the tier boundary.
package strategy

import (
	"sort"
	"time"

	"medcache/internal/errors"
)

// Well-known strategy names
const (
	Default         = "default"
	Transcription   = "transcription"
	MedicalData     = "medicalData"
	PatientData     = "patientData"
	VoiceCommands   = "voiceCommands"
	ClinicalSummary = "clinicalSummary"
)

// Transform flag names recognized by the transform pipeline
const (
	TransformCompress    = "compress"
	TransformEncrypt     = "encrypt"
	TransformAnonymize   = "anonymize"
	TransformPersonalize = "personalize"
)

// Policy is an immutable per-strategy record. A zero TTL defers to the
// distributed tier's default TTL.
type Policy struct {
	Enabled    bool            `json:"enabled"`
	TTL        time.Duration   `json:"ttl"`
	Transforms map[string]bool `json:"transforms,omitempty"`
}

// HasTransform reports whether the policy declares the named transform flag
func (p Policy) HasTransform(name string) bool {
	return p.Transforms[name]
}

// DefaultPolicies returns the built-in strategy table. The embedding
// application may override enablement and TTL per strategy at construction
// time.
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		Default: {
			Enabled: true,
		},
		Transcription: {
			Enabled:    true,
			TTL:        time.Hour,
			Transforms: map[string]bool{TransformCompress: true},
		},
		MedicalData: {
			Enabled:    true,
			TTL:        30 * time.Minute,
			Transforms: map[string]bool{TransformEncrypt: true},
		},
		PatientData: {
			Enabled:    true,
			TTL:        15 * time.Minute,
			Transforms: map[string]bool{TransformAnonymize: true},
		},
		VoiceCommands: {
			Enabled:    true,
			TTL:        24 * time.Hour,
			Transforms: map[string]bool{TransformPersonalize: true},
		},
		ClinicalSummary: {
			Enabled:    true,
			TTL:        2 * time.Hour,
			Transforms: map[string]bool{TransformCompress: true},
		},
	}
}

// Registry is a static table of named policies. It is a pure lookup with no
// side effects; the set of enabled strategies is computed once at
// construction and held for the process lifetime.
type Registry struct {
	policies map[string]Policy
	enabled  map[string]struct{}
}

// NewRegistry builds a registry from the given policy table
func NewRegistry(policies map[string]Policy) *Registry {
	r := &Registry{
		policies: make(map[string]Policy, len(policies)),
		enabled:  make(map[string]struct{}),
	}
	for name, policy := range policies {
		r.policies[name] = policy
		if policy.Enabled {
			r.enabled[name] = struct{}{}
		}
	}
	return r
}

// IsEnabled reports whether the strategy exists and passed initialization
func (r *Registry) IsEnabled(name string) bool {
	_, ok := r.enabled[name]
	return ok
}

// Known reports whether the strategy exists at all, enabled or not
func (r *Registry) Known(name string) bool {
	_, ok := r.policies[name]
	return ok
}

// PolicyFor returns the policy for a strategy, or a not-found error for an
// unknown name. An unknown strategy is a distinct outcome from a disabled one.
func (r *Registry) PolicyFor(name string) (Policy, error) {
	policy, ok := r.policies[name]
	if !ok {
		return Policy{}, errors.NotFoundError("strategy").WithContext("strategy", name)
	}
	return policy, nil
}

// Names returns the sorted names of all registered strategies
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.policies))
	for name := range r.policies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Enabled returns the sorted names of all enabled strategies
func (r *Registry) Enabled() []string {
	names := make([]string, 0, len(r.enabled))
	for name := range r.enabled {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
