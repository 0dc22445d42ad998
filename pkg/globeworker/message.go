package globeworker

import (
	"encoding/json"
	"errors"
	"fmt"
)

// JobKind names an inbound job. String returns its wire name.
type JobKind int

const (
	JobProcessData JobKind = iota
	JobNumbersOfRings
)

func (k JobKind) String() string {
	switch k {
	case JobProcessData:
		return "processData"
	case JobNumbersOfRings:
		return "numbersOfRings"
	}
	return fmt.Sprintf("JobKind(%d)", int(k))
}

// ResultKind names an outbound result. String returns its wire name.
type ResultKind int

const (
	ResultPoints ResultKind = iota
	ResultRings
)

func (k ResultKind) String() string {
	switch k {
	case ResultPoints:
		return "data"
	case ResultRings:
		return "rings"
	}
	return fmt.Sprintf("ResultKind(%d)", int(k))
}

// Request is a job for the worker. Only the payload matching Kind is read.
type Request struct {
	Kind  JobKind
	Arcs  []ArcRecord
	Rings RingRange
}

// Response is the worker's answer to exactly one Request. Err is only set for ring
// sampling failures.
type Response struct {
	Kind   ResultKind
	Points []RenderPoint
	Rings  []int
	Err    error
}

// ProcessData asks for the de-duplicated render points of arcs.
func ProcessData(arcs []ArcRecord) Request {
	return Request{Kind: JobProcessData, Arcs: arcs}
}

// NumbersOfRings asks for a ring index sample drawn from r.
func NumbersOfRings(r RingRange) Request {
	return Request{Kind: JobNumbersOfRings, Rings: r}
}

// Message is the JSON envelope used on the wire: {"type": ..., "data": ...}.
type Message struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// ErrUnknownMessage is returned for an envelope whose type is not a known job.
var ErrUnknownMessage = errors.New("unknown message type")

// DecodeRequest parses an inbound envelope ("processData" or "numbersOfRings").
func DecodeRequest(raw []byte) (Request, error) {
	var msg Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return Request{}, fmt.Errorf("decoding envelope: %w", err)
	}

	switch msg.Type {
	case JobProcessData.String():
		var arcs []ArcRecord
		if err := json.Unmarshal(msg.Data, &arcs); err != nil {
			return Request{}, fmt.Errorf("decoding %s payload: %w", msg.Type, err)
		}
		return ProcessData(arcs), nil
	case JobNumbersOfRings.String():
		var r RingRange
		if err := json.Unmarshal(msg.Data, &r); err != nil {
			return Request{}, fmt.Errorf("decoding %s payload: %w", msg.Type, err)
		}
		return NumbersOfRings(r), nil
	}
	return Request{}, fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
}

// EncodeRequest is the inverse of DecodeRequest.
func EncodeRequest(req Request) ([]byte, error) {
	var payload any
	switch req.Kind {
	case JobProcessData:
		payload = req.Arcs
	case JobNumbersOfRings:
		payload = req.Rings
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, req.Kind)
	}
	return encodeEnvelope(req.Kind.String(), payload)
}

// EncodeResponse renders an outbound envelope ("data" or "rings"). Failed responses
// have no wire form.
func EncodeResponse(resp Response) ([]byte, error) {
	if resp.Err != nil {
		return nil, resp.Err
	}
	switch resp.Kind {
	case ResultPoints:
		points := resp.Points
		if points == nil {
			points = []RenderPoint{}
		}
		return encodeEnvelope(resp.Kind.String(), points)
	case ResultRings:
		rings := resp.Rings
		if rings == nil {
			rings = []int{}
		}
		return encodeEnvelope(resp.Kind.String(), rings)
	}
	return nil, fmt.Errorf("%w: %s", ErrUnknownMessage, resp.Kind)
}

func encodeEnvelope(kind string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: kind, Data: data})
}
