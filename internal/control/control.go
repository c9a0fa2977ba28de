// Package control implements ControlPlane: parsing of text control
// messages arriving on any session.
package control

import "encoding/json"

// Message is the decoded shape of every recognized control message kind.
// Only the fields relevant to Kind are populated.
type Message struct {
	Kind string `json:"type"`

	// hello
	Client  string `json:"client,omitempty"`
	Version int    `json:"version,omitempty"`

	// pointer
	U       float32 `json:"u,omitempty"`
	V       float32 `json:"v,omitempty"`
	Pressed bool    `json:"pressed,omitempty"`
	Down    bool    `json:"down,omitempty"`
	Up      bool    `json:"up,omitempty"`
	Button  int     `json:"button,omitempty"`
}

const (
	KindHello           = "hello"
	KindRequestKeyframe = "request_keyframe"
	KindPointer         = "pointer"
	KindStatus          = "status"
)

// Parse decodes a text control message. Malformed JSON returns an error;
// callers must drop the message silently rather than disconnect the
// session.
func Parse(raw []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(raw, &m); err != nil {
		return Message{}, err
	}
	return m, nil
}

// Status builds a server-to-client status message.
func Status(text string) []byte {
	b, _ := json.Marshal(struct {
		Kind string `json:"type"`
		Text string `json:"text"`
	}{Kind: KindStatus, Text: text})
	return b
}
