package accessgroup

import "strconv"

// Selector addresses a group by numeric id or by label. Purely
// numeric input selects by id, anything else by label; the two cannot
// collide because labels never start with a digit.
type Selector struct {
	id    int64
	label string
	byID  bool
}

// ParseSelector builds a selector from path input.
func ParseSelector(identifier string) Selector {
	if id, err := strconv.ParseInt(identifier, 10, 64); err == nil {
		return ByID(id)
	}
	return ByLabel(identifier)
}

// ByID selects a group by numeric id.
func ByID(id int64) Selector {
	return Selector{id: id, byID: true}
}

// ByLabel selects a group by label.
func ByLabel(label string) Selector {
	return Selector{label: label}
}

// IsID reports whether the selector addresses by id.
func (s Selector) IsID() bool { return s.byID }

// ID returns the numeric id; valid only when IsID.
func (s Selector) ID() int64 { return s.id }

// Label returns the label; valid only when !IsID.
func (s Selector) Label() string { return s.label }

// String renders the selector for logs and error messages.
func (s Selector) String() string {
	if s.byID {
		return strconv.FormatInt(s.id, 10)
	}
	return s.label
}
