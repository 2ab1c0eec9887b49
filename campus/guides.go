package campus

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// GuidesData is the payload of guides.json.
type GuidesData struct {
	Guides      []Guide `json:"guides"`
	LastUpdated string  `json:"lastUpdated,omitempty"`
}

// Guide is a themed collection of information, such as move-in week.
type Guide struct {
	ID             string         `json:"id"`
	Title          string         `json:"title"`
	Department     string         `json:"department"`
	Description    string         `json:"description"`
	HeaderImageURL string         `json:"headerImageUrl,omitempty"`
	Icon           string         `json:"icon"`
	Color          string         `json:"color"`
	Visibility     Visibility     `json:"visibility"`
	Featured       bool           `json:"featured,omitempty"`
	Alert          *GuideAlert    `json:"alert,omitempty"`
	Sections       []GuideSection `json:"sections,omitempty"`
	Events         []GuideEvent   `json:"events,omitempty"`
	Locations      []Location     `json:"locations,omitempty"`
	Todos          []GuideTodo    `json:"todos,omitempty"`
	FAQs           []GuideFAQ     `json:"faqs,omitempty"`
	Contacts       []GuideContact `json:"contacts,omitempty"`
	Links          []GuideLink    `json:"links,omitempty"`
	Updates        []GuideUpdate  `json:"updates,omitempty"`
}

type GuideAlert struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type GuideSection struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	Order   int    `json:"order"`
	Content string `json:"content"`
}

type GuideEvent struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Category    string `json:"category"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate,omitempty"`
	Location    string `json:"location,omitempty"`
	LocationID  string `json:"locationId,omitempty"`
	Required    bool   `json:"isRequired,omitempty"`
}

// Location is a point on the campus map.
type Location struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Address     string  `json:"address,omitempty"`
	Category    string  `json:"category,omitempty"`
	Icon        string  `json:"icon,omitempty"`
}

type GuideTodo struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	DueDate     string `json:"dueDate,omitempty"`
	Priority    string `json:"priority,omitempty"`
	Category    string `json:"category,omitempty"`
	LinkedURL   string `json:"linkedUrl,omitempty"`
}

type GuideFAQ struct {
	ID       string `json:"id"`
	Question string `json:"question"`
	Answer   string `json:"answer"`
	Category string `json:"category,omitempty"`
}

type GuideContact struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Role  string `json:"role,omitempty"`
	Phone string `json:"phone,omitempty"`
	Email string `json:"email,omitempty"`
}

type GuideLink struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	URL         string `json:"url"`
	Icon        string `json:"icon,omitempty"`
	Description string `json:"description,omitempty"`
}

type GuideUpdate struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
	Type      string `json:"type"`
}

var alertTypes = []string{"info", "action", "deadline", "success", "new"}

var updateTypes = []string{"info", "change", "urgent", "cancellation"}

var eventCategories = []string{"academic", "social", "orientation", "sports", "club", "workshop", "dining", "other"}

var locationCategories = []string{"building", "dining", "parking", "venue", "dorm", "shuttle", "library", "recreation", "other"}

var todoPriorities = []string{"low", "medium", "high"}

// Validate checks the fields the app cannot render without.
func (d GuidesData) Validate() error {
	if d.Guides == nil {
		return errors.Wrap(ErrMissingField, `"guides"`)
	}
	seen := make(map[string]bool, len(d.Guides))
	for i, g := range d.Guides {
		if g.ID == "" || g.Title == "" {
			return errors.Newf("guide %d: id and title are required", i)
		}
		if seen[g.ID] {
			return errors.Newf("guide %q: duplicate id", g.ID)
		}
		seen[g.ID] = true
		if err := g.Visibility.Validate(); err != nil {
			return errors.Wrapf(err, "guide %q", g.ID)
		}
		if g.Alert != nil && !slices.Contains(alertTypes, g.Alert.Type) {
			return errors.Newf("guide %q: unknown alert type %q", g.ID, g.Alert.Type)
		}
		for _, u := range g.Updates {
			if !slices.Contains(updateTypes, u.Type) {
				return errors.Newf("guide %q: unknown update type %q", g.ID, u.Type)
			}
		}
		for _, e := range g.Events {
			if !slices.Contains(eventCategories, e.Category) {
				return errors.Newf("guide %q event %q: unknown category %q", g.ID, e.ID, e.Category)
			}
		}
		for _, l := range g.Locations {
			if l.Category != "" && !slices.Contains(locationCategories, l.Category) {
				return errors.Newf("guide %q location %q: unknown category %q", g.ID, l.ID, l.Category)
			}
		}
		for _, t := range g.Todos {
			if t.Priority != "" && !slices.Contains(todoPriorities, t.Priority) {
				return errors.Newf("guide %q todo %q: unknown priority %q", g.ID, t.ID, t.Priority)
			}
		}
	}
	return nil
}

// VisibleGuides returns the guides shown to p, in payload order. The result
// is never nil so it encodes as an array.
func (d GuidesData) VisibleGuides(p Perspective) []Guide {
	out := make([]Guide, 0, len(d.Guides))
	for _, g := range d.Guides {
		if g.Visibility.IsVisible(p) {
			out = append(out, g)
		}
	}
	return out
}

// Featured returns the featured guides.
func (d GuidesData) Featured() []Guide {
	var out []Guide
	for _, g := range d.Guides {
		if g.Featured {
			out = append(out, g)
		}
	}
	return out
}
