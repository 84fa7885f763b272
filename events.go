package billdesk

import (
	"errors"

	"github.com/bytedance/sonic"
)

type ServerEventType string

// The server events the agent reacts to. Anything else arriving on the data
// channel is decoded into a RawParam and ignored by the dispatch loop.
const (
	ServerEventTypeError                                            ServerEventType = "error"
	ServerEventTypeSessionCreated                                   ServerEventType = "session.created"
	ServerEventTypeSessionUpdated                                   ServerEventType = "session.updated"
	ServerEventTypeConversationItemInputAudioTranscriptionCompleted ServerEventType = "conversation.item.input_audio_transcription.completed"
	ServerEventTypeResponseOutputAudioTranscriptDone                ServerEventType = "response.output_audio_transcript.done"
	ServerEventTypeResponseFunctionCallArgumentsDone                ServerEventType = "response.function_call_arguments.done"
	ServerEventTypeResponseDone                                     ServerEventType = "response.done"
)

type ClientEventType string

const (
	ClientEventTypeSessionUpdate          ClientEventType = "session.update"
	ClientEventTypeConversationItemCreate ClientEventType = "conversation.item.create"
	ClientEventTypeResponseCreate         ClientEventType = "response.create"
)

// EventParam is the typed body of a server event.
type EventParam interface {
	New(map[string]any) error
	Json() map[string]any
}

// ServerEvent is one event received from the realtime session.
type ServerEvent struct {
	EventId string
	Type    ServerEventType
	Param   EventParam
}

func (e *ServerEvent) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := sonic.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["event_id"].(string); ok {
		e.EventId = v
		delete(raw, "event_id")
	} else {
		return errors.New("missing event_id")
	}
	if v, ok := raw["type"].(string); ok {
		e.Type = ServerEventType(v)
		delete(raw, "type")
	} else {
		return errors.New("missing type")
	}
	switch e.Type {
	case ServerEventTypeError:
		e.Param = new(ErrorParam)
	case ServerEventTypeSessionCreated, ServerEventTypeSessionUpdated:
		e.Param = new(SessionParam)
	case ServerEventTypeConversationItemInputAudioTranscriptionCompleted:
		e.Param = new(InputTranscriptionCompletedParam)
	case ServerEventTypeResponseOutputAudioTranscriptDone:
		e.Param = new(OutputTranscriptDoneParam)
	case ServerEventTypeResponseFunctionCallArgumentsDone:
		e.Param = new(FunctionCallArgumentsDoneParam)
	case ServerEventTypeResponseDone:
		e.Param = new(ResponseDoneParam)
	default:
		e.Param = new(RawParam)
	}
	return e.Param.New(raw)
}

func (e *ServerEvent) MarshalJSON() ([]byte, error) {
	if e.EventId == "" {
		return nil, errors.New("EventId is empty")
	}
	if e.Type == "" {
		return nil, errors.New("Type is empty")
	}
	if e.Param == nil {
		return nil, errors.New("Param is nil")
	}
	resp := map[string]any{}
	for k, v := range e.Param.Json() {
		resp[k] = v
	}
	resp["event_id"] = e.EventId
	resp["type"] = e.Type
	return sonic.Marshal(resp)
}

// ErrorParam carries the error body of an "error" event. The official shape
// nests the fields under "error"; some relays flatten them.
type ErrorParam struct {
	ErrType string
	Code    string
	Message string
}

func (p *ErrorParam) New(m map[string]any) error {
	src := m
	if nested, ok := m["error"].(map[string]any); ok {
		src = nested
	}
	if v, ok := src["type"].(string); ok {
		p.ErrType = v
	} else {
		return errors.New("missing error type")
	}
	if v, ok := src["code"].(string); ok {
		p.Code = v
	}
	if v, ok := src["message"].(string); ok {
		p.Message = v
	} else {
		return errors.New("missing error message")
	}
	return nil
}

func (p *ErrorParam) Json() map[string]any {
	return map[string]any{
		"error": map[string]any{
			"type":    p.ErrType,
			"code":    p.Code,
			"message": p.Message,
		},
	}
}

// SessionParam covers session.created and session.updated.
type SessionParam struct {
	Session map[string]any
}

func (p *SessionParam) New(m map[string]any) error {
	if v, ok := m["session"].(map[string]any); ok {
		p.Session = v
		return nil
	}
	return errors.New("missing session")
}

func (p *SessionParam) Json() map[string]any {
	return map[string]any{"session": p.Session}
}

// InputTranscriptionCompletedParam is the final transcript of one user turn.
type InputTranscriptionCompletedParam struct {
	ItemId     string
	Transcript string
}

func (p *InputTranscriptionCompletedParam) New(m map[string]any) error {
	if v, ok := m["item_id"].(string); ok {
		p.ItemId = v
	} else {
		return errors.New("missing item_id")
	}
	if v, ok := m["transcript"].(string); ok {
		p.Transcript = v
	} else {
		return errors.New("missing transcript")
	}
	return nil
}

func (p *InputTranscriptionCompletedParam) Json() map[string]any {
	return map[string]any{
		"item_id":    p.ItemId,
		"transcript": p.Transcript,
	}
}

// OutputTranscriptDoneParam is the final transcript of one assistant turn.
type OutputTranscriptDoneParam struct {
	ItemId     string
	Transcript string
}

func (p *OutputTranscriptDoneParam) New(m map[string]any) error {
	if v, ok := m["item_id"].(string); ok {
		p.ItemId = v
	} else {
		return errors.New("missing item_id")
	}
	if v, ok := m["transcript"].(string); ok {
		p.Transcript = v
	} else {
		return errors.New("missing transcript")
	}
	return nil
}

func (p *OutputTranscriptDoneParam) Json() map[string]any {
	return map[string]any{
		"item_id":    p.ItemId,
		"transcript": p.Transcript,
	}
}

// FunctionCallArgumentsDoneParam signals one completed tool call from the
// model. Arguments is the raw JSON argument string.
type FunctionCallArgumentsDoneParam struct {
	ItemId    string
	CallId    string
	Name      string
	Arguments string
}

func (p *FunctionCallArgumentsDoneParam) New(m map[string]any) error {
	if v, ok := m["item_id"].(string); ok {
		p.ItemId = v
	}
	if v, ok := m["call_id"].(string); ok {
		p.CallId = v
	} else {
		return errors.New("missing call_id")
	}
	if v, ok := m["name"].(string); ok {
		p.Name = v
	} else {
		return errors.New("missing name")
	}
	if v, ok := m["arguments"].(string); ok {
		p.Arguments = v
	} else {
		return errors.New("missing arguments")
	}
	return nil
}

func (p *FunctionCallArgumentsDoneParam) Json() map[string]any {
	return map[string]any{
		"item_id":   p.ItemId,
		"call_id":   p.CallId,
		"name":      p.Name,
		"arguments": p.Arguments,
	}
}

// ResponseDoneParam marks the end of a model response.
type ResponseDoneParam struct {
	Response map[string]any
}

func (p *ResponseDoneParam) New(m map[string]any) error {
	if v, ok := m["response"].(map[string]any); ok {
		p.Response = v
		return nil
	}
	return errors.New("missing response")
}

func (p *ResponseDoneParam) Json() map[string]any {
	return map[string]any{"response": p.Response}
}

// RawParam keeps the undecoded body of event types the agent does not react
// to, so logging still sees the full payload.
type RawParam struct {
	Fields map[string]any
}

func (p *RawParam) New(m map[string]any) error {
	p.Fields = m
	return nil
}

func (p *RawParam) Json() map[string]any {
	return p.Fields
}

// Client event builders. The realtime API accepts these as plain JSON
// objects on the data channel.

func NewSessionUpdate(session map[string]any) map[string]any {
	return map[string]any{
		"type":    string(ClientEventTypeSessionUpdate),
		"session": session,
	}
}

func NewFunctionCallOutput(callId, output string) map[string]any {
	return map[string]any{
		"type": string(ClientEventTypeConversationItemCreate),
		"item": map[string]any{
			"type":    "function_call_output",
			"call_id": callId,
			"output":  output,
		},
	}
}

func NewResponseCreate(instructions string) map[string]any {
	event := map[string]any{
		"type": string(ClientEventTypeResponseCreate),
	}
	if instructions != "" {
		event["response"] = map[string]any{
			"instructions": instructions,
		}
	}
	return event
}
