package queue

import "encoding/json"

// MessageVersion is the current MirrorMessage schema version.
const MessageVersion = 1

// MirrorMessage asks the worker to re-mirror one kit's documents.
type MirrorMessage struct {
	UserID     string `json:"userId"`
	KitID      string `json:"kitId"`
	EnqueuedAt string `json:"enqueuedAt"`
	Version    int    `json:"version"`
}

// EncodeMessage returns the JSON representation of a message.
func EncodeMessage(msg MirrorMessage) ([]byte, error) {
	return json.Marshal(msg)
}

// DecodeMessage parses a JSON payload into a MirrorMessage.
func DecodeMessage(payload []byte) (MirrorMessage, error) {
	var msg MirrorMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return MirrorMessage{}, err
	}
	return msg, nil
}
