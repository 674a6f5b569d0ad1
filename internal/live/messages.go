package live

import (
	"strings"

	"github.com/alexpernaoficial/Alex-Perna/internal/media"
)

// Client messages (BidiGenerateContentClientMessage)

type setupMessage struct {
	Setup setupConfig `json:"setup"`
}

type setupConfig struct {
	Model                    string           `json:"model"`
	GenerationConfig         generationConfig `json:"generationConfig"`
	SystemInstruction        *content         `json:"systemInstruction,omitempty"`
	InputAudioTranscription  *struct{}        `json:"inputAudioTranscription,omitempty"`
	OutputAudioTranscription *struct{}        `json:"outputAudioTranscription,omitempty"`
}

type generationConfig struct {
	ResponseModalities []string      `json:"responseModalities"`
	SpeechConfig       *speechConfig `json:"speechConfig,omitempty"`
}

type speechConfig struct {
	VoiceConfig voiceConfig `json:"voiceConfig"`
}

type voiceConfig struct {
	PrebuiltVoiceConfig prebuiltVoiceConfig `json:"prebuiltVoiceConfig"`
}

type prebuiltVoiceConfig struct {
	VoiceName string `json:"voiceName"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type realtimeInputMessage struct {
	RealtimeInput realtimeInput `json:"realtimeInput"`
}

type realtimeInput struct {
	MediaChunks []media.Frame `json:"mediaChunks"`
}

type clientContentMessage struct {
	ClientContent clientContent `json:"clientContent"`
}

type clientContent struct {
	Turns        []content `json:"turns"`
	TurnComplete bool      `json:"turnComplete"`
}

// Server messages (BidiGenerateContentServerMessage)

type serverMessage struct {
	SetupComplete *struct{}      `json:"setupComplete,omitempty"`
	ServerContent *serverContent `json:"serverContent,omitempty"`
	Error         *apiError      `json:"error,omitempty"`
}

type serverContent struct {
	ModelTurn           *modelTurn     `json:"modelTurn,omitempty"`
	TurnComplete        bool           `json:"turnComplete,omitempty"`
	Interrupted         bool           `json:"interrupted,omitempty"`
	InputTranscription  *transcription `json:"inputTranscription,omitempty"`
	OutputTranscription *transcription `json:"outputTranscription,omitempty"`
}

type transcription struct {
	Text string `json:"text,omitempty"`
}

type modelTurn struct {
	Parts []part `json:"parts,omitempty"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

func newSetupMessage(model string, setup Setup) setupMessage {
	if !strings.HasPrefix(model, "models/") {
		model = "models/" + model
	}

	cfg := setupConfig{
		Model: model,
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"AUDIO"},
		},
		InputAudioTranscription:  &struct{}{},
		OutputAudioTranscription: &struct{}{},
	}
	if setup.Voice != "" {
		cfg.GenerationConfig.SpeechConfig = &speechConfig{
			VoiceConfig: voiceConfig{PrebuiltVoiceConfig: prebuiltVoiceConfig{VoiceName: setup.Voice}},
		}
	}
	if setup.SystemInstruction != "" {
		cfg.SystemInstruction = &content{Parts: []part{{Text: setup.SystemInstruction}}}
	}
	return setupMessage{Setup: cfg}
}

// eventsFor flattens one server message into events, in the order the
// coordinator should see them.
func (m *serverMessage) eventsFor(nextSeq func() uint64) []Event {
	var events []Event

	if m.SetupComplete != nil {
		events = append(events, OpenedEvent{})
	}

	sc := m.ServerContent
	if sc == nil {
		return events
	}

	if sc.InputTranscription != nil && sc.InputTranscription.Text != "" {
		events = append(events, TranscriptEvent{Role: RoleUser, Text: sc.InputTranscription.Text})
	}
	if sc.OutputTranscription != nil && sc.OutputTranscription.Text != "" {
		events = append(events, TranscriptEvent{Role: RoleModel, Text: sc.OutputTranscription.Text})
	}
	if sc.ModelTurn != nil {
		for _, p := range sc.ModelTurn.Parts {
			if p.InlineData != nil && p.InlineData.Data != "" && strings.HasPrefix(p.InlineData.MimeType, "audio/") {
				events = append(events, AudioEvent{Seq: nextSeq(), MIMEType: p.InlineData.MimeType, Data: p.InlineData.Data})
			}
			if p.Text != "" {
				events = append(events, TextEvent{Text: p.Text})
			}
		}
	}
	if sc.Interrupted {
		events = append(events, InterruptedEvent{})
	}
	if sc.TurnComplete {
		events = append(events, TurnCompleteEvent{})
	}
	return events
}
