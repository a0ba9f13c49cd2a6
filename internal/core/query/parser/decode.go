package parser

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// member is one key of a decoded JSON object.
type member struct {
	Key   string
	Value interface{}
}

// object is a JSON object that remembers key order. A repeated key keeps
// its first position and its last value.
type object []member

func (o object) get(key string) (interface{}, bool) {
	for _, m := range o {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}

var errTooDeep = errors.New("document nesting too deep")

// decodeOrdered decodes a JSON document into objects, []interface{},
// string, bool, nil, int64 and float64, refusing documents nested deeper
// than maxNesting containers.
func decodeOrdered(data []byte, maxNesting int) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeValue(dec, 0, maxNesting)
	if err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, fmt.Errorf("unexpected data after top-level value")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder, depth, maxNesting int) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		if depth >= maxNesting {
			return nil, errTooDeep
		}
		if t == '{' {
			return decodeObject(dec, depth+1, maxNesting)
		}
		return decodeArray(dec, depth+1, maxNesting)
	case json.Number:
		return normalizeNumber(t)
	default:
		return t, nil
	}
}

func decodeObject(dec *json.Decoder, depth, maxNesting int) (object, error) {
	obj := object{}
	index := map[string]int{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("object key %v is not a string", tok)
		}
		v, err := decodeValue(dec, depth, maxNesting)
		if err != nil {
			return nil, err
		}
		if i, seen := index[key]; seen {
			obj[i].Value = v
			continue
		}
		index[key] = len(obj)
		obj = append(obj, member{Key: key, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return obj, nil
}

func decodeArray(dec *json.Decoder, depth, maxNesting int) ([]interface{}, error) {
	arr := []interface{}{}
	for dec.More() {
		v, err := decodeValue(dec, depth, maxNesting)
		if err != nil {
			return nil, err
		}
		arr = append(arr, v)
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return arr, nil
}

// normalizeNumber keeps integral numbers exact.
func normalizeNumber(n json.Number) (interface{}, error) {
	if i, err := n.Int64(); err == nil {
		return i, nil
	}
	f, err := n.Float64()
	if err != nil {
		return nil, fmt.Errorf("number %s out of range", n)
	}
	return f, nil
}
