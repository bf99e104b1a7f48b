// (c) 2023, Ava Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package types

import (
	"fmt"
)

// Attribute is a key/value pair of an Event.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Event is a typed, ordered list of attributes. Order is significant.
type Event struct {
	Type       string      `json:"type"`
	Attributes []Attribute `json:"attributes"`
}

// NewEvent returns an event of type [typ] without attributes.
func NewEvent(typ string) Event {
	return Event{Type: typ}
}

// Add appends an attribute and returns the event.
func (e Event) Add(key, value string) Event {
	e.Attributes = append(append([]Attribute(nil), e.Attributes...), Attribute{Key: key, Value: value})
	return e
}

// Attr returns the value of the first attribute named [key].
func (e Event) Attr(key string) (string, bool) {
	for _, a := range e.Attributes {
		if a.Key == key {
			return a.Value, true
		}
	}
	return "", false
}

// ReplyOn decides when the issuer of a SubMsg is told about its outcome.
type ReplyOn uint8

const (
	ReplyNever ReplyOn = iota
	ReplySuccess
	ReplyError
	ReplyAlways
)

// Triggers reports whether a submessage with this policy calls back its
// issuer given whether it [succeeded].
func (r ReplyOn) Triggers(succeeded bool) bool {
	switch r {
	case ReplyAlways:
		return true
	case ReplySuccess:
		return succeeded
	case ReplyError:
		return !succeeded
	default:
		return false
	}
}

func (r ReplyOn) String() string {
	switch r {
	case ReplyNever:
		return "never"
	case ReplySuccess:
		return "success"
	case ReplyError:
		return "error"
	case ReplyAlways:
		return "always"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(r))
	}
}

// SubMsg is a follow-up operation emitted by a contract. [ID] is only
// meaningful to the contract that emitted it.
type SubMsg struct {
	ID       uint64
	Msg      Msg
	GasLimit *uint64
	ReplyOn  ReplyOn
}

// NewSubMsg returns a submessage that never replies.
func NewSubMsg(msg Msg) SubMsg {
	return SubMsg{Msg: msg, ReplyOn: ReplyNever}
}

// ReplyOnSuccess, ReplyOnError and ReplyAlwaysTo build submessages with the
// matching reply policy.
func ReplyOnSuccess(id uint64, msg Msg) SubMsg {
	return SubMsg{ID: id, Msg: msg, ReplyOn: ReplySuccess}
}

func ReplyOnError(id uint64, msg Msg) SubMsg {
	return SubMsg{ID: id, Msg: msg, ReplyOn: ReplyError}
}

func ReplyAlwaysTo(id uint64, msg Msg) SubMsg {
	return SubMsg{ID: id, Msg: msg, ReplyOn: ReplyAlways}
}

// Response is what a contract entry point returns.
type Response struct {
	Messages   []SubMsg
	Attributes []Attribute
	Events     []Event
	Data       []byte
}

// NewResponse returns an empty response.
func NewResponse() Response { return Response{} }

func (r Response) AddAttribute(key, value string) Response {
	r.Attributes = append(append([]Attribute(nil), r.Attributes...), Attribute{Key: key, Value: value})
	return r
}

// AddMessage appends a submessage that never replies.
func (r Response) AddMessage(msg Msg) Response {
	return r.AddSubMessage(NewSubMsg(msg))
}

func (r Response) AddSubMessage(msg SubMsg) Response {
	r.Messages = append(append([]SubMsg(nil), r.Messages...), msg)
	return r
}

func (r Response) AddEvent(e Event) Response {
	r.Events = append(append([]Event(nil), r.Events...), e)
	return r
}

func (r Response) SetData(data []byte) Response {
	r.Data = data
	return r
}

// AppResponse is the aggregated result of an operation once every
// submessage has been resolved.
type AppResponse struct {
	Events []Event `json:"events"`
	Data   []byte  `json:"data,omitempty"`
}

// FindEvents returns every event of type [typ], in order.
func (r AppResponse) FindEvents(typ string) []Event {
	var out []Event
	for _, e := range r.Events {
		if e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}

// SubMsgResponse is the successful outcome of a submessage.
type SubMsgResponse struct {
	Events []Event `json:"events"`
	Data   []byte  `json:"data,omitempty"`
}

// SubMsgResult carries either [Ok] or the error string [Err].
type SubMsgResult struct {
	Ok  *SubMsgResponse `json:"ok,omitempty"`
	Err string          `json:"error,omitempty"`
}

// IsOk reports whether the submessage succeeded.
func (r SubMsgResult) IsOk() bool { return r.Ok != nil }

// Reply is delivered to the reply entry point of the contract that issued
// submessage [ID].
type Reply struct {
	ID     uint64       `json:"id"`
	Result SubMsgResult `json:"result"`
}
