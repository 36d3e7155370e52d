// Package push decodes backend push notifications into lamp state requests.
//
// A notification body is a JSON object whose "data" field holds another JSON
// object, normally rendered as a string:
//
//	{"data":"{\"alert\":\"on\"}"}
//
// The inner object's "alert" field carries the requested state label.
package push

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/smazurov/lampnode/internal/device"
)

// ErrMalformed is returned when a payload does not have the expected shape.
var ErrMalformed = errors.New("malformed push payload")

// Parse decodes a notification body. A well-formed payload with a label that
// is not a lamp state returns an event with Recognized false and no error.
func Parse(raw []byte) (device.PushEvent, error) {
	outer, err := decodeObject(raw)
	if err != nil {
		return device.PushEvent{}, fmt.Errorf("%w: body: %w", ErrMalformed, err)
	}

	data, ok := outer["data"]
	if !ok {
		return device.PushEvent{}, fmt.Errorf("%w: missing data field", ErrMalformed)
	}

	inner, err := decodeData(data)
	if err != nil {
		return device.PushEvent{}, fmt.Errorf("%w: data: %w", ErrMalformed, err)
	}

	alert, ok := inner["alert"]
	if !ok {
		return device.PushEvent{}, fmt.Errorf("%w: missing alert field", ErrMalformed)
	}

	var label string
	if err := json.Unmarshal(alert, &label); err != nil {
		return device.PushEvent{}, fmt.Errorf("%w: alert is not a string", ErrMalformed)
	}

	state, recognized := device.ParseState(label)
	return device.PushEvent{Label: label, State: state, Recognized: recognized}, nil
}

func decodeObject(raw []byte) (map[string]json.RawMessage, error) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("not an object")
	}
	return obj, nil
}

// decodeData accepts the nested object either as a JSON-encoded string or
// inline.
func decodeData(data json.RawMessage) (map[string]json.RawMessage, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var encoded string
		if err := json.Unmarshal(trimmed, &encoded); err != nil {
			return nil, err
		}
		return decodeObject([]byte(encoded))
	}
	return decodeObject(trimmed)
}

// Encode renders a notification body for label in the backend's shape.
// Used by the push CLI command and tests.
func Encode(label string) ([]byte, error) {
	inner, err := json.Marshal(map[string]string{"alert": label})
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]string{"data": string(inner)})
}
