package httpapi

import (
	"encoding/json"
	"fmt"
	"strings"
)

// sensitiveFields lists the keys spec.md §7 requires redacted wherever a
// request body reaches a log line, matched case-insensitively.
var sensitiveFields = map[string]bool{
	"password": true,
	"token":    true,
	"secret":   true,
	"apikey":   true,
	"api_key":  true,
}

const redactedPlaceholder = "[REDACTED]"

// redactBody returns a loggable rendering of a raw request body with any
// sensitive field values replaced. Only standard library is used here: this
// is a format-agnostic tree walk over decoded JSON, not a domain concern any
// of the pack's third-party libraries address.
func redactBody(raw []byte) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return fmt.Sprintf("<non-JSON body, %d bytes>", len(raw))
	}
	redactValue(v)
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("<unloggable body, %d bytes>", len(raw))
	}
	return string(out)
}

func redactValue(v any) {
	switch t := v.(type) {
	case map[string]any:
		for k, val := range t {
			if sensitiveFields[strings.ToLower(k)] {
				t[k] = redactedPlaceholder
				continue
			}
			redactValue(val)
		}
	case []any:
		for _, e := range t {
			redactValue(e)
		}
	}
}
