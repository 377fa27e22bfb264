package ffmpeg

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Param is one key=value pair of a nested option value.
type Param struct {
	Key   string
	Value string
}

// Option is one output option. When Params is non-nil the option value is
// the parameter list joined as "k1=v1:k2=v2", otherwise Value is used.
type Option struct {
	Name   string
	Value  string
	Params []Param
}

// Render returns the single argument token for the option value.
func (o Option) Render() string {
	if o.Params == nil {
		return o.Value
	}
	pairs := make([]string, len(o.Params))
	for i, p := range o.Params {
		pairs[i] = p.Key + "=" + p.Value
	}
	return strings.Join(pairs, ":")
}

// Options is an ordered option list. In JSON it is an object whose key
// order is preserved, with scalar or one-level object values:
//
//	{"c": "libx264", "crf": 23, "x264-params": {"keyint": 48, "bframes": 2}}
type Options []Option

// Get returns the first option with the given name.
func (o Options) Get(name string) (Option, bool) {
	for _, opt := range o {
		if opt.Name == name {
			return opt, true
		}
	}
	return Option{}, false
}

// UnmarshalJSON decodes an object keeping document key order.
func (o *Options) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return fmt.Errorf("options: %w", err)
	}

	var out Options
	for dec.More() {
		name, err := objectKey(dec)
		if err != nil {
			return fmt.Errorf("options: %w", err)
		}

		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("options: %s: %w", name, err)
		}

		if d, ok := tok.(json.Delim); ok && d == '{' {
			params, err := decodeParams(dec)
			if err != nil {
				return fmt.Errorf("options: %s: %w", name, err)
			}
			out = append(out, Option{Name: name, Params: params})
			continue
		}

		value, err := scalarString(tok)
		if err != nil {
			return fmt.Errorf("options: %s: %w", name, err)
		}
		out = append(out, Option{Name: name, Value: value})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return fmt.Errorf("options: %w", err)
	}
	*o = out
	return nil
}

// MarshalJSON writes the options back as an ordered object. Scalar values
// are written as strings.
func (o Options) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		writeJSONString(&buf, opt.Name)
		buf.WriteByte(':')
		if opt.Params == nil {
			writeJSONString(&buf, opt.Value)
			continue
		}
		buf.WriteByte('{')
		for j, p := range opt.Params {
			if j > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(&buf, p.Key)
			buf.WriteByte(':')
			writeJSONString(&buf, p.Value)
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// decodeParams reads the members of an object whose opening brace was
// already consumed.
func decodeParams(dec *json.Decoder) ([]Param, error) {
	params := []Param{}
	for dec.More() {
		key, err := objectKey(dec)
		if err != nil {
			return nil, err
		}
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		value, err := scalarString(tok)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		params = append(params, Param{Key: key, Value: value})
	}
	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}
	return params, nil
}

func objectKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("unexpected token %v", tok)
	}
	return key, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected %q, got %v", want, tok)
	}
	return nil
}

var errUnsupportedValue = errors.New("value must be a string, number or boolean")

func scalarString(tok json.Token) (string, error) {
	switch v := tok.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		if v {
			return "true", nil
		}
		return "false", nil
	default:
		return "", errUnsupportedValue
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	b, _ := json.Marshal(s)
	buf.Write(b)
}
