package artifact

import (
	"bytes"
	"encoding/json"

	"github.com/spf13/cast"

	"github.com/teranos/exopredict/errors"
	"github.com/teranos/exopredict/model"
)

// LabelDecoder maps integral class ids to class names: id i decodes to the
// i-th encoder class.
type LabelDecoder struct {
	classes []string
}

// NewLabelDecoder returns a decoder over the given class names.
func NewLabelDecoder(classes []string) *LabelDecoder {
	return &LabelDecoder{classes: append([]string(nil), classes...)}
}

// DecodeLabelEncoder parses a label encoder document: either an array of
// class names or an object with a "classes" array. Numeric names are kept
// in their literal form.
func DecodeLabelEncoder(data []byte) (*LabelDecoder, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "decode label encoder")
	}

	var list []any
	switch v := raw.(type) {
	case []any:
		list = v
	case map[string]any:
		classes, ok := v["classes"].([]any)
		if !ok {
			return nil, errors.New("label encoder object has no classes array")
		}
		list = classes
	default:
		return nil, errors.New("label encoder must be an array or an object with classes")
	}

	names := make([]string, len(list))
	for i, item := range list {
		name, err := cast.ToStringE(item)
		if err != nil || item == nil {
			return nil, errors.Newf("label encoder class %d is not a scalar", i)
		}
		names[i] = name
	}
	return &LabelDecoder{classes: names}, nil
}

// Classes returns the encoder's class names in id order.
func (d *LabelDecoder) Classes() []string { return d.classes }

// Decode maps one class id to its name. Non-integral or out-of-range classes
// fail with ErrDecodeFailure.
func (d *LabelDecoder) Decode(c model.Class) (string, error) {
	id, ok := c.Int()
	if !ok {
		return "", errors.Wrapf(errors.ErrDecodeFailure, "class %q is not an integer id", c.String())
	}
	if id < 0 || id >= int64(len(d.classes)) {
		return "", errors.Wrapf(errors.ErrDecodeFailure, "class id %d outside [0, %d)", id, len(d.classes))
	}
	return d.classes[id], nil
}

// DecodeAll decodes every class, failing on the first that does not decode.
func (d *LabelDecoder) DecodeAll(classes []model.Class) ([]string, error) {
	out := make([]string, len(classes))
	for i, c := range classes {
		name, err := d.Decode(c)
		if err != nil {
			return nil, err
		}
		out[i] = name
	}
	return out, nil
}
