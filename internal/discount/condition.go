package discount

import (
	"strings"

	"parkspot-backend/internal/domain"
)

// Field names a built-in user attribute. Any other condition field is read
// as a dotted path into UserContext.Attributes.
type Field string

const (
	FieldAge             Field = "age"
	FieldHasPWDID        Field = "hasPWDId"
	FieldUserType        Field = "userType"
	FieldMembershipLevel Field = "membershipLevel"
	FieldTotalBookings   Field = "totalBookings"
)

type accessor func(domain.UserContext) (domain.Value, bool)

var accessors = map[Field]accessor{
	FieldAge: func(u domain.UserContext) (domain.Value, bool) {
		if u.Age == nil {
			return domain.Value{}, false
		}
		return domain.IntValue(int64(*u.Age)), true
	},
	FieldHasPWDID: func(u domain.UserContext) (domain.Value, bool) {
		if u.HasPWDID == nil {
			return domain.Value{}, false
		}
		return domain.BoolValue(*u.HasPWDID), true
	},
	FieldUserType: func(u domain.UserContext) (domain.Value, bool) {
		if u.UserType == "" {
			return domain.Value{}, false
		}
		return domain.StringValue(u.UserType), true
	},
	FieldMembershipLevel: func(u domain.UserContext) (domain.Value, bool) {
		if u.MembershipLevel == "" {
			return domain.Value{}, false
		}
		return domain.StringValue(u.MembershipLevel), true
	},
	FieldTotalBookings: func(u domain.UserContext) (domain.Value, bool) {
		if u.TotalBookings == nil {
			return domain.Value{}, false
		}
		return domain.IntValue(int64(*u.TotalBookings)), true
	},
}

// fieldKinds is the value kind each built-in field produces.
var fieldKinds = map[Field]domain.ValueKind{
	FieldAge:             domain.KindNumber,
	FieldHasPWDID:        domain.KindBool,
	FieldUserType:        domain.KindString,
	FieldMembershipLevel: domain.KindString,
	FieldTotalBookings:   domain.KindNumber,
}

func IsBuiltinField(name string) bool {
	_, ok := accessors[Field(name)]
	return ok
}

func resolveField(user domain.UserContext, path string) (domain.Value, bool) {
	if get, ok := accessors[Field(path)]; ok {
		return get(user)
	}
	segments, ok := splitPath(path)
	if !ok {
		return domain.Value{}, false
	}
	return user.Attribute(segments...)
}

func splitPath(path string) ([]string, bool) {
	segments := strings.Split(path, ".")
	for _, s := range segments {
		if s == "" {
			return nil, false
		}
	}
	return segments, true
}

// Evaluate reports whether a single condition holds. Missing fields, type
// mismatches and unknown operators all evaluate to false.
func Evaluate(cond domain.DiscountCondition, user domain.UserContext) bool {
	actual, ok := resolveField(user, cond.Field)
	if !ok {
		return false
	}

	switch cond.Operator {
	case domain.OperatorEquals:
		return actual.Equal(cond.Value)
	case domain.OperatorNotEquals:
		return !actual.Equal(cond.Value)
	case domain.OperatorGreaterThan, domain.OperatorGreaterThanOrEqual,
		domain.OperatorLessThan, domain.OperatorLessThanOrEqual:
		left, ok := actual.AsNumber()
		if !ok {
			return false
		}
		right, ok := cond.Value.AsNumber()
		if !ok {
			return false
		}
		cmp := left.Cmp(right)
		switch cond.Operator {
		case domain.OperatorGreaterThan:
			return cmp > 0
		case domain.OperatorGreaterThanOrEqual:
			return cmp >= 0
		case domain.OperatorLessThan:
			return cmp < 0
		default:
			return cmp <= 0
		}
	case domain.OperatorContains, domain.OperatorNotContains:
		haystack, ok := actual.AsString()
		if !ok {
			return false
		}
		needle, ok := cond.Value.AsString()
		if !ok {
			return false
		}
		found := strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
		if cond.Operator == domain.OperatorContains {
			return found
		}
		return !found
	default:
		return false
	}
}

// Matches reports whether every condition of the rule holds. A rule without
// conditions matches everyone.
func Matches(rule domain.DiscountRule, user domain.UserContext) bool {
	for _, cond := range rule.Conditions {
		if !Evaluate(cond, user) {
			return false
		}
	}
	return true
}
