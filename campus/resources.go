package campus

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// ResourcesData is the payload of resources.json.
type ResourcesData struct {
	Resources   []Resource `json:"resources"`
	LastUpdated string     `json:"lastUpdated,omitempty"`
}

// ResourceType selects how the app opens a resource.
type ResourceType string

const (
	ExternalLink ResourceType = "externalLink"
	SheetCover   ResourceType = "sheetCover"
	CustomView   ResourceType = "customView"
	DeepLink     ResourceType = "deepLink"
)

var resourceTypes = []ResourceType{ExternalLink, SheetCover, CustomView, DeepLink}

type Resource struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Icon        string       `json:"icon"`
	Category    string       `json:"category"`
	Type        ResourceType `json:"type"`
	Destination Destination  `json:"destination"`
	Visibility  Visibility   `json:"visibility"`
	ContactInfo *ContactInfo `json:"contactInfo,omitempty"`
	Featured    bool         `json:"featured,omitempty"`
}

// Destination is where a resource leads: an in-app view, a URL or an
// inline info card.
type Destination struct {
	ViewIdentifier string       `json:"viewIdentifier,omitempty"`
	URL            string       `json:"url,omitempty"`
	Content        *InfoContent `json:"content,omitempty"`
}

type InfoContent struct {
	Title        string        `json:"title"`
	Body         string        `json:"body"`
	ImageURL     string        `json:"imageUrl,omitempty"`
	ActionButton *ActionButton `json:"actionButton,omitempty"`
}

type ActionButton struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type ContactInfo struct {
	Phone    string        `json:"phone,omitempty"`
	Email    string        `json:"email,omitempty"`
	Location *LocationInfo `json:"location,omitempty"`
}

type LocationInfo struct {
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
}

func (d ResourcesData) Validate() error {
	if d.Resources == nil {
		return errors.Wrap(ErrMissingField, `"resources"`)
	}
	seen := make(map[string]bool, len(d.Resources))
	for i, r := range d.Resources {
		if r.ID == "" || r.Name == "" {
			return errors.Newf("resource %d: id and name are required", i)
		}
		if seen[r.ID] {
			return errors.Newf("resource %q: duplicate id", r.ID)
		}
		seen[r.ID] = true
		if !slices.Contains(resourceTypes, r.Type) {
			return errors.Newf("resource %q: unknown type %q", r.ID, r.Type)
		}
		if err := r.Visibility.Validate(); err != nil {
			return errors.Wrapf(err, "resource %q", r.ID)
		}
	}
	return nil
}

// VisibleResources returns the resources shown to p, in payload order.
func (d ResourcesData) VisibleResources(p Perspective) []Resource {
	out := make([]Resource, 0, len(d.Resources))
	for _, r := range d.Resources {
		if r.Visibility.IsVisible(p) {
			out = append(out, r)
		}
	}
	return out
}

// ByCategory groups resources by category, keeping payload order within
// each group.
func (d ResourcesData) ByCategory() map[string][]Resource {
	out := make(map[string][]Resource)
	for _, r := range d.Resources {
		out[r.Category] = append(out[r.Category], r)
	}
	return out
}
