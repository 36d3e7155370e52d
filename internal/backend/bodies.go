package backend

import (
	"encoding/json"
	"fmt"

	"github.com/smazurov/lampnode/internal/device"
	"github.com/smazurov/lampnode/internal/identity"
)

// Pointer is a backend reference to another object.
type Pointer struct {
	Type      string `json:"__type"`
	ClassName string `json:"className"`
	ObjectID  string `json:"objectId"`
}

// newPointer returns nil for an unresolved id so the field is left out.
func newPointer(className string, id identity.ObjectID) *Pointer {
	if id.IsZero() {
		return nil
	}
	return &Pointer{Type: "Pointer", ClassName: className, ObjectID: id.String()}
}

type installationUpdate struct {
	DeviceName    string   `json:"deviceName"`
	DeviceSubtype string   `json:"deviceSubtype"`
	Model         *Pointer `json:"model,omitempty"`
	Owner         *Pointer `json:"owner,omitempty"`
}

// StateValue is the value column of an Event object.
type StateValue struct {
	State device.State `json:"state"`
}

// ACLEntry grants access to one user.
type ACLEntry struct {
	Read  bool `json:"read"`
	Write bool `json:"write"`
}

// StateEvent is the body of a persisted state change.
type StateEvent struct {
	InstallationID string              `json:"installationId"`
	Value          StateValue          `json:"value"`
	Alarm          bool                `json:"alarm"`
	ACL            map[string]ACLEntry `json:"ACL"`
}

func newStateEvent(installationID, userID string, state device.State) StateEvent {
	return StateEvent{
		InstallationID: installationID,
		Value:          StateValue{State: state},
		Alarm:          true,
		ACL: map[string]ACLEntry{
			userID: {Read: true, Write: true},
		},
	}
}

type objectRef struct {
	ObjectID string `json:"objectId"`
}

type queryResults struct {
	Results []objectRef `json:"results"`
}

func resultsObjectID(body []byte) (string, error) {
	var res queryResults
	if err := json.Unmarshal(body, &res); err != nil {
		return "", fmt.Errorf("failed to decode query results: %w", err)
	}
	if len(res.Results) == 0 || res.Results[0].ObjectID == "" {
		return "", ErrNotFound
	}
	return res.Results[0].ObjectID, nil
}

func topLevelObjectID(body []byte) (string, error) {
	var ref objectRef
	if err := json.Unmarshal(body, &ref); err != nil {
		return "", fmt.Errorf("failed to decode object: %w", err)
	}
	if ref.ObjectID == "" {
		return "", ErrNotFound
	}
	return ref.ObjectID, nil
}
