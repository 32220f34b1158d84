package resources

import (
	"fmt"
	"net/mail"
	"strconv"
	"strings"
)

// Validate checks payload against the resource's form fields and returns one message per
// offending field. Partial payloads (updates) skip required checks when partial is set.
func (resource Resource) Validate(payload map[string]any, partial bool) map[string]string {
	problems := map[string]string{}
	for _, field := range resource.Fields {
		value, present := payload[field.Name]
		text := strings.TrimSpace(stringify(value))

		if text == "" {
			if field.Required && (!partial || present) {
				problems[field.Name] = fmt.Sprintf("%s is required", field.Name)
			}
			continue
		}

		switch field.Kind {
		case Email:
			if addr, err := mail.ParseAddress(text); err != nil || addr.Address != text {
				problems[field.Name] = fmt.Sprintf("%s must be a valid email address", field.Name)
			}
		case Number:
			if _, isNumber := value.(float64); !isNumber {
				if _, err := strconv.ParseFloat(text, 64); err != nil {
					problems[field.Name] = fmt.Sprintf("%s must be a number", field.Name)
				}
			}
		}
	}
	return problems
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}
