package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformed is returned when decrypted bytes are not a valid message.
var ErrMalformed = errors.New("protocol: malformed message")

// Args is the loosely typed argument bag of a Request. Keys are case-sensitive.
type Args map[string]Value

// Has reports whether key is present, even if its value is null.
func (a Args) Has(key string) bool {
	_, ok := a[key]
	return ok
}

// String returns the string stored under key.
func (a Args) String(key string) (string, bool) {
	v, ok := a[key]
	if !ok {
		return "", false
	}
	return v.AsString()
}

// Int returns the integer stored under key. Decimal strings are accepted too,
// since interactive clients send every argument as text.
func (a Args) Int(key string) (int64, bool) {
	v, ok := a[key]
	if !ok {
		return 0, false
	}
	if i, ok := v.AsInt(); ok {
		return i, true
	}
	if s, ok := v.AsString(); ok {
		i, err := strconv.ParseInt(s, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// Clone returns a shallow copy, safe to add keys to.
func (a Args) Clone() Args {
	out := make(Args, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	return out
}

type Request struct {
	Action string `json:"Action"`
	Data   Args   `json:"Data"`
}

type Response struct {
	Success bool   `json:"Success"`
	Message string `json:"Message"`
	Result  *Value `json:"Result"`
}

// OK builds a successful response. result may be nil.
func OK(message string, result *Value) Response {
	return Response{Success: true, Message: message, Result: result}
}

// Fail builds a failure response.
func Fail(message string) Response {
	return Response{Success: false, Message: message}
}

// ResultValue returns the result, or null when absent.
func (r Response) ResultValue() Value {
	if r.Result == nil {
		return NullValue()
	}
	return *r.Result
}

func MarshalRequest(r Request) ([]byte, error) {
	if r.Data == nil {
		r.Data = Args{}
	}
	return json.Marshal(r)
}

// UnmarshalRequest decodes a request. A missing Action is malformed; a
// missing Data decodes as empty Args.
func UnmarshalRequest(b []byte) (Request, error) {
	var r Request
	if err := json.Unmarshal(b, &r); err != nil {
		return Request{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if r.Action == "" {
		return Request{}, fmt.Errorf("%w: missing action", ErrMalformed)
	}
	if r.Data == nil {
		r.Data = Args{}
	}
	return r, nil
}

func MarshalResponse(r Response) ([]byte, error) {
	return json.Marshal(r)
}

func UnmarshalResponse(b []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(b, &r); err != nil {
		return Response{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return r, nil
}
