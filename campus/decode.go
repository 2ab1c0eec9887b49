package campus

import (
	"encoding/json"

	"github.com/cockroachdb/errors"
)

// ErrMissingField is returned when a payload object lacks a required key.
// A key holding null counts as missing.
var ErrMissingField = errors.New("missing required field")

// decodeRequired unmarshals data into v after checking that every key in
// required is present and not null.
func decodeRequired(data []byte, v any, required ...string) error {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return err
	}
	for _, key := range required {
		raw, ok := fields[key]
		if !ok || string(raw) == "null" {
			return errors.Wrapf(ErrMissingField, "%q", key)
		}
	}
	return json.Unmarshal(data, v)
}

func (v *Visibility) UnmarshalJSON(data []byte) error {
	type Alias Visibility
	return decodeRequired(data, (*Alias)(v), "perspectives")
}

func (d *GuidesData) UnmarshalJSON(data []byte) error {
	type Alias GuidesData
	return decodeRequired(data, (*Alias)(d), "guides")
}

func (g *Guide) UnmarshalJSON(data []byte) error {
	type Alias Guide
	return decodeRequired(data, (*Alias)(g), "id", "title", "department", "description", "icon", "color", "visibility")
}

func (a *GuideAlert) UnmarshalJSON(data []byte) error {
	type Alias GuideAlert
	return decodeRequired(data, (*Alias)(a), "type", "message")
}

func (s *GuideSection) UnmarshalJSON(data []byte) error {
	type Alias GuideSection
	return decodeRequired(data, (*Alias)(s), "id", "title", "order", "content")
}

func (e *GuideEvent) UnmarshalJSON(data []byte) error {
	type Alias GuideEvent
	return decodeRequired(data, (*Alias)(e), "id", "title", "category", "startDate")
}

func (l *Location) UnmarshalJSON(data []byte) error {
	type Alias Location
	return decodeRequired(data, (*Alias)(l), "id", "name", "latitude", "longitude")
}

func (t *GuideTodo) UnmarshalJSON(data []byte) error {
	type Alias GuideTodo
	return decodeRequired(data, (*Alias)(t), "id", "title")
}

func (f *GuideFAQ) UnmarshalJSON(data []byte) error {
	type Alias GuideFAQ
	return decodeRequired(data, (*Alias)(f), "id", "question", "answer")
}

func (c *GuideContact) UnmarshalJSON(data []byte) error {
	type Alias GuideContact
	return decodeRequired(data, (*Alias)(c), "id", "name")
}

func (l *GuideLink) UnmarshalJSON(data []byte) error {
	type Alias GuideLink
	return decodeRequired(data, (*Alias)(l), "id", "title", "url")
}

func (u *GuideUpdate) UnmarshalJSON(data []byte) error {
	type Alias GuideUpdate
	return decodeRequired(data, (*Alias)(u), "id", "title", "message", "timestamp", "type")
}

func (d *ResourcesData) UnmarshalJSON(data []byte) error {
	type Alias ResourcesData
	return decodeRequired(data, (*Alias)(d), "resources")
}

func (r *Resource) UnmarshalJSON(data []byte) error {
	type Alias Resource
	return decodeRequired(data, (*Alias)(r), "id", "name", "description", "icon", "category", "type", "destination", "visibility")
}

func (c *InfoContent) UnmarshalJSON(data []byte) error {
	type Alias InfoContent
	return decodeRequired(data, (*Alias)(c), "title", "body")
}

func (b *ActionButton) UnmarshalJSON(data []byte) error {
	type Alias ActionButton
	return decodeRequired(data, (*Alias)(b), "title", "url")
}

func (l *LocationInfo) UnmarshalJSON(data []byte) error {
	type Alias LocationInfo
	return decodeRequired(data, (*Alias)(l), "address")
}

func (d *AccountData) UnmarshalJSON(data []byte) error {
	type Alias AccountData
	return decodeRequired(data, (*Alias)(d), "sections")
}

func (s *AccountSection) UnmarshalJSON(data []byte) error {
	type Alias AccountSection
	return decodeRequired(data, (*Alias)(s), "id", "title", "items")
}

func (i *AccountItem) UnmarshalJSON(data []byte) error {
	type Alias AccountItem
	return decodeRequired(data, (*Alias)(i), "id", "title", "icon", "type")
}
