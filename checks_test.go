package factory

import "testing"

func TestNumericChecks(t *testing.T) {
	cases := []struct {
		name  string
		check Check
		value any
		want  bool
	}{
		{"positive int", IsPositive, 1, true},
		{"positive float", IsPositive, 0.5, true},
		{"positive zero", IsPositive, 0, false},
		{"positive negative", IsPositive, -1, false},
		{"positive string", IsPositive, "1", false},
		{"positive nil", IsPositive, nil, false},
		{"positive-or-nil nil", IsPositiveOrNil, nil, true},
		{"positive-or-nil zero", IsPositiveOrNil, 0, false},
		{"non-negative zero", IsNonNegative, 0, true},
		{"non-negative int64", IsNonNegative, int64(3), true},
		{"non-negative negative", IsNonNegative, -0.1, false},
		{"non-negative-or-nil nil", IsNonNegativeOrNil, nil, true},
		{"non-negative-or-nil negative", IsNonNegativeOrNil, -1, false},
	}
	for _, tc := range cases {
		if got := tc.check(tc.value); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
