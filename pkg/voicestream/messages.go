package voicestream

// wireMessage is the superset of fields across all inbound JSON messages,
// routed by Type.
type wireMessage struct {
	Type             string `json:"type"`
	Text             string `json:"text"`
	IsFinal          bool   `json:"is_final"`
	Language         string `json:"language"`
	RequiresResponse bool   `json:"requires_response"`
	Question         string `json:"question"`
	Code             string `json:"code"`
	Message          string `json:"message"`
}

// TranscriptData is the payload of EventTranscript.
type TranscriptData struct {
	Text             string
	IsFinal          bool
	Language         string
	RequiresResponse bool
}

// AssistantMessageData is the payload of EventAssistantMessage.
type AssistantMessageData struct {
	Text string
}

// LlmRequiredData is the payload of EventLlmRequired: the server wants the
// caller to produce the LLM answer for Question (clinic mode).
type LlmRequiredData struct {
	Question string
}

// DiagnosticData is the payload of EventDiagnostic.
type DiagnosticData struct {
	Code    string
	Message string
}

// DisconnectedData is the payload of EventDisconnected.
type DisconnectedData struct {
	Reason string
}
