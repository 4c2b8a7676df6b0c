package types

// ServerEventType defines the kind of event emitted toward the client.
type ServerEventType string

const (
	EventAgentResponse ServerEventType = "agent_response" // EventAgentResponse carries spoken narration for the user.
	EventRiskUpdate    ServerEventType = "risk_update"    // EventRiskUpdate reports a change in the effective risk level.
	EventBrowserUpdate ServerEventType = "browser_update" // EventBrowserUpdate reports the browser's current URL.
	EventStatus        ServerEventType = "status"         // EventStatus carries progress and diagnostic information.
	EventVoiceState    ServerEventType = "voice_state"    // EventVoiceState carries the narration output profile.
)

// VoiceState is the output profile consumed by the voice collaborator.
type VoiceState struct {
	// Pace is the speech speed scalar; 1.0 is normal, lower is slower.
	Pace float64 `json:"pace"`

	// Intensity is the delivery intensity ("calm", "attentive",
	// "concerned", "urgent").
	Intensity string `json:"intensity"`

	// Phase is the narration-phase tag (LISTENING, ACK, WORKING,
	// SAFETY_CHECK, RESULT).
	Phase string `json:"phase"`
}

// ServerEvent is a single event on the client-facing surface. Besides logs,
// these events are the only state the core exposes outward.
type ServerEvent struct {
	// Type indicates the kind of event.
	Type ServerEventType `json:"type"`

	// Text holds narration or status text, when applicable.
	Text string `json:"text,omitempty"`

	// RiskLevel is set on risk_update events.
	RiskLevel string `json:"risk_level,omitempty"`

	// URL is set on browser_update events.
	URL string `json:"url,omitempty"`

	// Voice is set on voice_state events.
	Voice *VoiceState `json:"voice,omitempty"`

	// Metadata holds optional additional information about the event.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewAgentResponseEvent creates an agent narration event.
func NewAgentResponseEvent(text string) *ServerEvent {
	return &ServerEvent{
		Type:     EventAgentResponse,
		Text:     text,
		Metadata: make(map[string]any),
	}
}

// NewRiskUpdateEvent creates a risk level update event.
func NewRiskUpdateEvent(level RiskLevel) *ServerEvent {
	return &ServerEvent{
		Type:      EventRiskUpdate,
		RiskLevel: level.String(),
		Metadata:  make(map[string]any),
	}
}

// NewBrowserUpdateEvent creates a browser URL update event.
func NewBrowserUpdateEvent(url string) *ServerEvent {
	return &ServerEvent{
		Type:     EventBrowserUpdate,
		URL:      url,
		Metadata: make(map[string]any),
	}
}

// NewStatusEvent creates a status event.
func NewStatusEvent(text string) *ServerEvent {
	return &ServerEvent{
		Type:     EventStatus,
		Text:     text,
		Metadata: make(map[string]any),
	}
}

// NewVoiceStateEvent creates a voice profile event.
func NewVoiceStateEvent(voice VoiceState) *ServerEvent {
	return &ServerEvent{
		Type:     EventVoiceState,
		Voice:    &voice,
		Metadata: make(map[string]any),
	}
}

// WithMetadata adds a metadata entry and returns the event for chaining.
func (e *ServerEvent) WithMetadata(key string, value any) *ServerEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]any)
	}
	e.Metadata[key] = value
	return e
}
