// Package transform implements the per-strategy encode/decode hooks applied
// at the tier boundary. Transforms operate on the JSON-serialized value:
// encode runs after the value leaves the caller and before it enters either
// tier, decode runs after the value leaves a tier and before it is returned.
//
// Compress and encrypt are lossless round trips. Anonymize and personalize
// are one-directional write-time transforms whose Decode is the identity.
package transform

// Transform is a single encode/decode hook
type Transform interface {
	Name() string
	Encode(data []byte) ([]byte, error)
	Decode(data []byte) ([]byte, error)
}

// Chain applies transforms in order on encode and in reverse order on decode
type Chain []Transform

// Encode runs every transform's Encode, first to last
func (c Chain) Encode(data []byte) ([]byte, error) {
	var err error
	for _, t := range c {
		data, err = t.Encode(data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

// Decode runs every transform's Decode, last to first
func (c Chain) Decode(data []byte) ([]byte, error) {
	var err error
	for i := len(c) - 1; i >= 0; i-- {
		data, err = c[i].Decode(data)
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}
