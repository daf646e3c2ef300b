package queue

import (
	"encoding/json"
	"testing"
)

func TestOutboundMessageJSON(t *testing.T) {
	msg := OutboundMessage{
		ChatID: 123456789,
		Text:   "🎲 *Random joke!*",
	}

	data, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("Failed to marshal OutboundMessage: %v", err)
	}

	var parsed OutboundMessage
	if err := json.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("Failed to unmarshal OutboundMessage: %v", err)
	}

	if parsed.ChatID != msg.ChatID {
		t.Errorf("ChatID = %v, want %v", parsed.ChatID, msg.ChatID)
	}
	if parsed.Text != msg.Text {
		t.Errorf("Text = %v, want %v", parsed.Text, msg.Text)
	}
}

func TestSubjectNames(t *testing.T) {
	if OutboundSubject != "jester.telegram.send" {
		t.Errorf("Unexpected outbound subject: %s", OutboundSubject)
	}
	if ConsumerGroup != "jester-bot" {
		t.Errorf("Unexpected consumer group: %s", ConsumerGroup)
	}
}
