package derive

import "context"

// Artifact is one derived output before upload. Thumbnails carry Bytes and a
// blob key Name; classification labels are inline records with nil Bytes.
type Artifact struct {
	Kind        string
	Name        string
	ContentType string
	Bytes       []byte
	Label       string
	Confidence  float64
}

// Deriver produces derived artifacts from source bytes. It may fail
// transiently; retry cadence belongs to the queue, not to implementations.
type Deriver interface {
	Derive(ctx context.Context, src []byte, contentType string) ([]Artifact, error)
}

// Multi runs each deriver in order. The first failure aborts the whole
// derivation so the queue's retry budget governs all stages together.
type Multi []Deriver

func (m Multi) Derive(ctx context.Context, src []byte, contentType string) ([]Artifact, error) {
	var out []Artifact
	for _, d := range m {
		arts, err := d.Derive(ctx, src, contentType)
		if err != nil {
			return nil, err
		}
		out = append(out, arts...)
	}
	return out, nil
}
