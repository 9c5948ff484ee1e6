package push

import (
	"github.com/tcsec/vulncases/schema"
)

// RawPusher is a type that can push raw JSON messages to an external
// receiver.
type RawPusher interface {
	PushRaw(r *RawMessage) error
}

const (
	RawMessageTypeTestCase = "testcase-created"
	RawMessageTypeText     = "testcase-text"
)

type RawMessage struct {
	Content any    `json:"content"`
	Type    string `json:"type"`
}

type TextMessage struct {
	Message string `json:"message"`
}

func NewRawTestCaseMessage(tc *schema.TestCase) *RawMessage {
	return &RawMessage{
		Content: tc,
		Type:    RawMessageTypeTestCase,
	}
}

func NewRawTextMessage(m string) *RawMessage {
	return &RawMessage{
		Content: &TextMessage{Message: m},
		Type:    RawMessageTypeText,
	}
}
