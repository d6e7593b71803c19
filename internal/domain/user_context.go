package domain

// UserContext carries the caller-supplied attributes discount conditions are
// evaluated against. Known attributes have typed fields; anything else goes in
// Attributes and is addressed by a dotted path.
type UserContext struct {
	Age             *int
	HasPWDID        *bool
	UserType        string
	MembershipLevel string
	TotalBookings   *int
	Attributes      map[string]Value
}

// Attribute walks Attributes along the given path segments.
func (u UserContext) Attribute(path ...string) (Value, bool) {
	if len(path) == 0 || u.Attributes == nil {
		return Value{}, false
	}
	current, ok := u.Attributes[path[0]]
	if !ok {
		return Value{}, false
	}
	for _, segment := range path[1:] {
		current, ok = current.Field(segment)
		if !ok {
			return Value{}, false
		}
	}
	return current, true
}
