package prediction

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/relvacode/iso8601"
)

// Number accepts a JSON number or a string holding one
type Number float64

// UnmarshalJSON implements json.Unmarshaler
func (n *Number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var raw string
	if len(data) > 0 && data[0] == '"' {
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
	} else {
		raw = string(data)
	}

	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%q is not a number", raw)
	}

	*n = Number(v)
	return nil
}

// Request is the body of a prediction request
type Request struct {
	Temperature *Number `json:"temperature"`
	Load        *Number `json:"load"`
	Speed       *Number `json:"speed"`
	Timestamp   string  `json:"timestamp,omitempty"`
}

// ParseRequest decodes a prediction request body. Missing or non-numeric readings
// and unparseable timestamps are rejected with ErrInvalidInput; a missing
// timestamp defaults to now.
func ParseRequest(body []byte, now time.Time) (Input, error) {
	var req Request
	if err := json.Unmarshal(body, &req); err != nil {
		return Input{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return req.Input(now)
}

// Input checks the request and converts it
func (r Request) Input(now time.Time) (Input, error) {
	fields := []struct {
		name  string
		value *Number
	}{
		{"temperature", r.Temperature},
		{"load", r.Load},
		{"speed", r.Speed},
	}
	for _, field := range fields {
		if field.value == nil {
			return Input{}, fmt.Errorf("%w: %s is required", ErrInvalidInput, field.name)
		}
	}

	timestamp := now.UTC()
	if ts := strings.TrimSpace(r.Timestamp); ts != "" {
		parsed, err := iso8601.ParseString(ts)
		if err != nil {
			return Input{}, fmt.Errorf("%w: timestamp: %v", ErrInvalidInput, err)
		}
		timestamp = parsed.UTC()
	}

	return Input{
		Temperature: float64(*r.Temperature),
		Load:        float64(*r.Load),
		Speed:       float64(*r.Speed),
		Timestamp:   timestamp,
	}, nil
}
