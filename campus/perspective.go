package campus

import (
	"slices"

	"github.com/cockroachdb/errors"
)

// Perspective is the audience a user browses the campus content as.
type Perspective string

const (
	Guest        Perspective = "guest"
	Student      Perspective = "student"
	Graduate     Perspective = "graduate"
	Parent       Perspective = "parent"
	FacultyStaff Perspective = "facultyStaff"
)

// Perspectives lists every perspective in display order.
var Perspectives = []Perspective{Guest, Student, Graduate, Parent, FacultyStaff}

var ErrUnknownPerspective = errors.New("unknown perspective")

// ParsePerspective parses s.
func ParsePerspective(s string) (Perspective, error) {
	p := Perspective(s)
	if !slices.Contains(Perspectives, p) {
		return "", errors.Wrapf(ErrUnknownPerspective, "%q", s)
	}
	return p, nil
}

// Visibility lists the perspectives an item is shown to.
type Visibility struct {
	Perspectives []Perspective `json:"perspectives"`
}

// VisibleToAll is shown to every perspective.
var VisibleToAll = Visibility{Perspectives: Perspectives}

// IsVisible reports whether the item is shown to p.
func (v Visibility) IsVisible(p Perspective) bool {
	return slices.Contains(v.Perspectives, p)
}

func (v Visibility) Validate() error {
	for _, p := range v.Perspectives {
		if !slices.Contains(Perspectives, p) {
			return errors.Wrapf(ErrUnknownPerspective, "%q", string(p))
		}
	}
	return nil
}
