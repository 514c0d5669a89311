// Package pass defines what a pass QR code carries and how scanned text is
// turned back into a lookup.
package pass

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"eventpass/internal/model"
)

var (
	ErrEmptyPayload      = errors.New("empty pass payload")
	ErrInvalidManualPass = errors.New("invalid manual pass: missing required fields")
)

type Kind int

const (
	ByRegistrationID Kind = iota + 1
	ManualSnapshot
)

func (k Kind) String() string {
	switch k {
	case ByRegistrationID:
		return "registration"
	case ManualSnapshot:
		return "manual"
	}
	return "unknown"
}

// Payload is the decoded form of a scanned pass. Exactly one of
// RegistrationID and Manual is set, according to Kind.
type Payload struct {
	Kind           Kind
	RegistrationID string
	Manual         *model.ManualPass
	Raw            string
}

// Ticket is the JSON object embedded in a registration pass.
type Ticket struct {
	RegistrationID string `json:"registrationId"`
	StudentName    string `json:"studentName"`
	StudentEmail   string `json:"studentEmail"`
	RollNumber     string `json:"rollNumber"`
	EventID        string `json:"eventId"`
	EventName      string `json:"eventName,omitempty"`
}

func Encode(reg *model.Registration, event *model.Event) (string, error) {
	b, err := json.Marshal(Ticket{
		RegistrationID: reg.ID,
		StudentName:    reg.StudentName,
		StudentEmail:   reg.StudentEmail,
		RollNumber:     reg.RollNumber,
		EventID:        reg.EventID,
		EventName:      event.Name,
	})
	if err != nil {
		return "", fmt.Errorf("encode pass: %w", err)
	}
	return string(b), nil
}

// EncodeManual flattens a manual pass snapshot, extra fields included.
func EncodeManual(m *model.ManualPass) (string, error) {
	if m.StudentName == "" || m.StudentEmail == "" || m.EventName == "" {
		return "", ErrInvalidManualPass
	}
	obj := make(map[string]string, len(m.Extra)+5)
	for k, v := range m.Extra {
		obj[k] = v
	}
	obj["studentName"] = m.StudentName
	obj["studentEmail"] = m.StudentEmail
	obj["eventName"] = m.EventName
	obj["eventVenue"] = m.EventVenue
	if !m.EventDate.IsZero() {
		obj["eventDate"] = m.EventDate.Format(time.RFC3339)
	}
	b, err := json.Marshal(obj)
	if err != nil {
		return "", fmt.Errorf("encode manual pass: %w", err)
	}
	return string(b), nil
}

var manualKeys = map[string]struct{}{
	"studentName": {}, "studentEmail": {}, "eventName": {}, "eventDate": {}, "eventVenue": {},
}

// Decode resolves scanned text. JSON carrying registrationId resolves by id,
// JSON carrying a manual snapshot resolves as a manual pass, and anything that
// is not a JSON object is taken verbatim as a registration id.
func Decode(raw string) (Payload, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return Payload{}, ErrEmptyPayload
	}

	var obj map[string]any
	if err := json.Unmarshal([]byte(text), &obj); err != nil || obj == nil {
		return Payload{Kind: ByRegistrationID, RegistrationID: text, Raw: raw}, nil
	}

	if v, ok := obj["registrationId"]; ok {
		id := scalar(v)
		if id == "" {
			return Payload{}, ErrEmptyPayload
		}
		return Payload{Kind: ByRegistrationID, RegistrationID: id, Raw: raw}, nil
	}

	m := &model.ManualPass{
		StudentName:  scalar(obj["studentName"]),
		StudentEmail: scalar(obj["studentEmail"]),
		EventName:    scalar(obj["eventName"]),
		EventVenue:   scalar(obj["eventVenue"]),
	}
	if m.StudentName == "" || m.StudentEmail == "" || m.EventName == "" {
		return Payload{}, ErrInvalidManualPass
	}
	m.EventDate = parseDate(scalar(obj["eventDate"]))
	for k, v := range obj {
		if _, known := manualKeys[k]; known {
			continue
		}
		if m.Extra == nil {
			m.Extra = make(map[string]string)
		}
		m.Extra[k] = scalar(v)
	}
	return Payload{Kind: ManualSnapshot, Manual: m, Raw: raw}, nil
}

// ExtraKeys returns the manual pass extra field names in stable order.
func ExtraKeys(m *model.ManualPass) []string {
	keys := make([]string, 0, len(m.Extra))
	for k := range m.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func scalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		b, _ := json.Marshal(t)
		return string(b)
	}
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
