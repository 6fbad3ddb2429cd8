package model

import (
	"encoding/json"
	"math"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/teranos/exopredict/errors"
)

// Class is one target value of a classifier. Label-encoded targets are
// integral; classifiers trained on raw labels carry strings (or, rarely,
// non-integral numbers) and those are kept verbatim.
type Class struct {
	value any // int64, float64 or string
}

// IntClass returns an integral class id.
func IntClass(id int64) Class { return Class{value: id} }

// StringClass returns a class named by a string label.
func StringClass(name string) Class { return Class{value: name} }

// Int returns the class as an integer id when it is integral.
func (c Class) Int() (int64, bool) {
	id, ok := c.value.(int64)
	return id, ok
}

// Value returns the raw class value.
func (c Class) Value() any { return c.value }

// String renders the class the way it is written in batch output.
func (c Class) String() string {
	switch v := c.value.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	default:
		return ""
	}
}

// MarshalJSON writes the raw class value.
func (c Class) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.value)
}

// UnmarshalJSON accepts a JSON number or string.
func (c *Class) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch v := raw.(type) {
	case float64:
		*c = classFromFloat(v)
	case string:
		*c = StringClass(v)
	default:
		return errors.Newf("class must be a number or string, got %s", string(data))
	}
	return nil
}

// UnmarshalYAML accepts a scalar node, honoring explicit !!str tags.
func (c *Class) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.ScalarNode {
		return errors.Newf("class must be a scalar (line %d)", node.Line)
	}
	if node.ShortTag() == "!!str" {
		*c = StringClass(node.Value)
		return nil
	}
	if id, err := strconv.ParseInt(node.Value, 10, 64); err == nil {
		*c = IntClass(id)
		return nil
	}
	if f, err := strconv.ParseFloat(node.Value, 64); err == nil {
		*c = classFromFloat(f)
		return nil
	}
	*c = StringClass(node.Value)
	return nil
}

func classFromFloat(f float64) Class {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return IntClass(int64(f))
	}
	return Class{value: f}
}
