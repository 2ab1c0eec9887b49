package campus

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// AccountData is the payload of account.json: the sections of the
// account screen.
type AccountData struct {
	Sections    []AccountSection `json:"sections"`
	LastUpdated string           `json:"lastUpdated,omitempty"`
}

type AccountSection struct {
	ID    string        `json:"id"`
	Title string        `json:"title"`
	Items []AccountItem `json:"items"`
}

type AccountItemType string

const (
	NavigationLinkItem AccountItemType = "navigationLink"
	ExternalLinkItem   AccountItemType = "externalLink"
	EmailItem          AccountItemType = "email"
	StaticItem         AccountItemType = "static"
)

var accountItemTypes = []AccountItemType{NavigationLinkItem, ExternalLinkItem, EmailItem, StaticItem}

type AccountItem struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Subtitle    string          `json:"subtitle,omitempty"`
	Icon        string          `json:"icon"`
	IconColor   string          `json:"iconColor,omitempty"`
	Type        AccountItemType `json:"type"`
	Destination *Destination    `json:"destination,omitempty"`
}

func (d AccountData) Validate() error {
	if d.Sections == nil {
		return errors.Wrap(ErrMissingField, `"sections"`)
	}
	for i, s := range d.Sections {
		if s.ID == "" || s.Title == "" {
			return errors.Newf("section %d: id and title are required", i)
		}
		for j, item := range s.Items {
			if item.ID == "" || item.Title == "" {
				return errors.Newf("section %q item %d: id and title are required", s.ID, j)
			}
			if !slices.Contains(accountItemTypes, item.Type) {
				return errors.Newf("section %q item %q: unknown type %q", s.ID, item.ID, item.Type)
			}
		}
	}
	return nil
}

// Item finds an item by id across all sections.
func (d AccountData) Item(id string) (AccountItem, bool) {
	for _, s := range d.Sections {
		for _, item := range s.Items {
			if item.ID == id {
				return item, true
			}
		}
	}
	return AccountItem{}, false
}
