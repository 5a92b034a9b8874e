package factory

// Ready-made Check predicates for common numeric constraints. Each accepts
// any numeric kind; the OrNil variants additionally accept nil, for options
// whose default is an explicit Literal{nil}.

// IsPositive accepts strictly positive numeric values.
func IsPositive(value any) bool {
	f, ok := asFloat(value)
	return ok && f > 0
}

// IsPositiveOrNil accepts nil or strictly positive numeric values.
func IsPositiveOrNil(value any) bool {
	if value == nil {
		return true
	}
	return IsPositive(value)
}

// IsNonNegative accepts numeric values greater than or equal to zero.
func IsNonNegative(value any) bool {
	f, ok := asFloat(value)
	return ok && f >= 0
}

// IsNonNegativeOrNil accepts nil or numeric values greater than or equal to
// zero.
func IsNonNegativeOrNil(value any) bool {
	if value == nil {
		return true
	}
	return IsNonNegative(value)
}
