package transform

import (
	"encoding/json"
	"regexp"
	"strings"

	"medcache/internal/errors"
)

// Fixed masks substituted for PII-shaped fields
const (
	EmailMask   = "***@***.***"
	PhoneMask   = "***-***-****"
	AddressMask = "[REDACTED]"
)

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Anonymizer is the lossy, one-directional PII transform. Encode redacts
// email-, phone-, and address-shaped string fields anywhere in the value
// while leaving all other fields unchanged; Decode is the identity because
// there is no way back.
type Anonymizer struct{}

// Name returns the transform flag this implements
func (Anonymizer) Name() string { return "anonymize" }

// Encode masks PII fields in the JSON payload
func (Anonymizer) Encode(data []byte) ([]byte, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, errors.SerializationError("anonymize: invalid JSON payload", err)
	}

	out, err := json.Marshal(anonymizeValue(value, ""))
	if err != nil {
		return nil, errors.SerializationError("anonymize: failed to re-encode payload", err)
	}
	return out, nil
}

// Decode is the identity; anonymization cannot be undone
func (Anonymizer) Decode(data []byte) ([]byte, error) {
	return data, nil
}

func anonymizeValue(value interface{}, fieldName string) interface{} {
	switch v := value.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(v))
		for key, child := range v {
			out[key] = anonymizeValue(child, key)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, child := range v {
			out[i] = anonymizeValue(child, fieldName)
		}
		return out
	case string:
		return maskString(v, fieldName)
	default:
		return v
	}
}

// maskString redacts a string when either its field name or its value is
// PII-shaped. Phone and address detection is name-based only: value-shape
// matching for those would also catch dates and record identifiers.
func maskString(value, fieldName string) string {
	name := strings.ToLower(fieldName)

	if strings.Contains(name, "email") || emailPattern.MatchString(value) {
		return EmailMask
	}
	if strings.Contains(name, "phone") || strings.Contains(name, "mobile") || strings.Contains(name, "tel") {
		return PhoneMask
	}
	if strings.Contains(name, "address") {
		return AddressMask
	}
	return value
}
