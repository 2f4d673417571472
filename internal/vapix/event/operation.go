package event

import "encoding/json"

// Operation is the lifecycle tag of a notification.
type Operation int

const (
	OperationUnknown Operation = iota
	OperationInitialized
	OperationChanged
	OperationRemoved
)

var operationNames = map[Operation]string{
	OperationUnknown:     "Unknown",
	OperationInitialized: "Initialized",
	OperationChanged:     "Changed",
	OperationRemoved:     "Removed",
}

// Wire tokens seen in the PropertyOperation attribute. ONVIF uses "Deleted".
var operationTokens = map[string]Operation{
	"Initialized": OperationInitialized,
	"Changed":     OperationChanged,
	"Deleted":     OperationRemoved,
	"Removed":     OperationRemoved,
}

// ParseOperation maps a wire token to an Operation. Unrecognized tokens,
// including the empty string, map to OperationUnknown.
func ParseOperation(token string) Operation {
	if op, ok := operationTokens[token]; ok {
		return op
	}
	return OperationUnknown
}

func (o Operation) String() string {
	if s, ok := operationNames[o]; ok {
		return s
	}
	return operationNames[OperationUnknown]
}

func (o Operation) MarshalJSON() ([]byte, error) {
	return json.Marshal(o.String())
}

func (o *Operation) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*o = ParseOperation(s)
	return nil
}
