package transform

import (
	"encoding/json"

	"medcache/internal/errors"
)

// Personalizer is the one-directional transform that attaches the calling
// user's identity to each element of a list value at write time. Object
// elements gain "ownerId" and "personalized" fields in place; scalar
// elements are wrapped into {"value": ..., "ownerId": ..., "personalized": true}.
// Non-list values pass through unchanged. Decode is the identity.
type Personalizer struct {
	OwnerID string
}

// NewPersonalizer creates a personalizer for the given owner
func NewPersonalizer(ownerID string) *Personalizer {
	return &Personalizer{OwnerID: ownerID}
}

// Name returns the transform flag this implements
func (p *Personalizer) Name() string { return "personalize" }

// Encode attaches owner context to each list element
func (p *Personalizer) Encode(data []byte) ([]byte, error) {
	var value interface{}
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, errors.SerializationError("personalize: invalid JSON payload", err)
	}

	list, ok := value.([]interface{})
	if !ok {
		return data, nil
	}

	for i, element := range list {
		if object, ok := element.(map[string]interface{}); ok {
			object["ownerId"] = p.OwnerID
			object["personalized"] = true
			continue
		}
		list[i] = map[string]interface{}{
			"value":        element,
			"ownerId":      p.OwnerID,
			"personalized": true,
		}
	}

	out, err := json.Marshal(list)
	if err != nil {
		return nil, errors.SerializationError("personalize: failed to re-encode payload", err)
	}
	return out, nil
}

// Decode is the identity; owner context stays attached
func (p *Personalizer) Decode(data []byte) ([]byte, error) {
	return data, nil
}
