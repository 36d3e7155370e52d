package nats

import (
	"encoding/json"
	"fmt"
)

// Subject prefixes for NATS topics.
const (
	SubjectPushPrefix  = "lampnode.push"
	SubjectStatePrefix = "lampnode.state"
)

// SubjectPush returns the subject push notifications for an installation
// arrive on.
func SubjectPush(installationID string) string {
	return fmt.Sprintf("%s.%s", SubjectPushPrefix, installationID)
}

// SubjectState returns the subject committed lamp states are announced on.
func SubjectState(installationID string) string {
	return fmt.Sprintf("%s.%s", SubjectStatePrefix, installationID)
}

// StateMessage announces a committed lamp state.
type StateMessage struct {
	InstallationID string `json:"installation_id"`
	Timestamp      string `json:"timestamp"`
	From           string `json:"from"`
	State          string `json:"state"`
	Source         string `json:"source"` // button, push
}

// Marshal serializes the message to JSON.
func (m StateMessage) Marshal() ([]byte, error) {
	return json.Marshal(m)
}

// UnmarshalState deserializes a StateMessage from JSON.
func UnmarshalState(data []byte) (StateMessage, error) {
	var m StateMessage
	err := json.Unmarshal(data, &m)
	return m, err
}
