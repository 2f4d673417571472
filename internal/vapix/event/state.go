package event

// StateRule selects how a raw data value maps to a state and a tripped flag.
type StateRule int

const (
	// RawNumeric is tripped for any non-empty value other than "0", so
	// negative health codes count as tripped.
	RawNumeric StateRule = iota
	// OnOffToken is tripped on "ON".
	OnOffToken
	// ActiveInactiveToken is tripped on "active".
	ActiveInactiveToken
	// PresetIsOne is tripped on "1" only.
	PresetIsOne
)

var stateRuleNames = map[StateRule]string{
	RawNumeric:          "raw_numeric",
	OnOffToken:          "on_off",
	ActiveInactiveToken: "active_inactive",
	PresetIsOne:         "preset_is_one",
}

func (r StateRule) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

func (r StateRule) String() string {
	if s, ok := stateRuleNames[r]; ok {
		return s
	}
	return stateRuleNames[RawNumeric]
}

// Interpret returns the normalized state and tripped flag for raw under rule.
// The state keeps the device vocabulary unchanged. Unknown rules fall back to
// RawNumeric.
func Interpret(rule StateRule, raw string) (string, bool) {
	if raw == "" {
		return "", false
	}
	switch rule {
	case OnOffToken:
		return raw, raw == "ON"
	case ActiveInactiveToken:
		return raw, raw == "active"
	case PresetIsOne:
		return raw, raw == "1"
	default:
		return raw, raw != "0"
	}
}
