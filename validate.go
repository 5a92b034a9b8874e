package factory

import (
	"fmt"
	"reflect"
)

// checkValue applies the option's constraints to a candidate value. It runs
// on every resolution and on eager Set validation; the caller decides whether
// a passing value is cached.
func checkValue(value any, opt *optionSpec, path string) error {
	if len(opt.meta.Types) > 0 && !typeAllowed(value, opt.meta.Types) {
		detail := fmt.Sprintf("got %T, want one of %s", value, typeNames(opt.meta.Types))
		return validationError(ErrTypeMismatch, path, value, detail)
	}
	if len(opt.meta.Allowed) > 0 {
		found := false
		for _, allowed := range opt.meta.Allowed {
			if valueEqual(value, allowed) {
				found = true
				break
			}
		}
		if !found {
			detail := fmt.Sprintf("allowed values are %v", opt.meta.Allowed)
			return validationError(ErrNotAllowed, path, value, detail)
		}
	}
	for i, check := range opt.meta.CheckAll {
		if !check(value) {
			detail := fmt.Sprintf("check_all predicate %d rejected the value", i)
			return validationError(ErrCheckAllFailed, path, value, detail)
		}
	}
	if len(opt.meta.CheckAny) > 0 {
		passed := false
		for _, check := range opt.meta.CheckAny {
			if check(value) {
				passed = true
				break
			}
		}
		if !passed {
			detail := fmt.Sprintf("all %d check_any predicates rejected the value", len(opt.meta.CheckAny))
			return validationError(ErrCheckAnyFailed, path, value, detail)
		}
	}
	return nil
}

func typeAllowed(value any, types []reflect.Type) bool {
	vt := reflect.TypeOf(value)
	if vt == nil {
		return false
	}
	for _, t := range types {
		if vt == t || vt.AssignableTo(t) {
			return true
		}
		if t.Kind() == reflect.Interface && vt.Implements(t) {
			return true
		}
	}
	return false
}

// valueEqual compares a candidate against an allowed value, normalizing
// numeric kinds so that the int64 and float64 values produced by rule engines
// match int allowed sets.
func valueEqual(a, b any) bool {
	if reflect.DeepEqual(a, b) {
		return true
	}
	fa, aok := asFloat(a)
	fb, bok := asFloat(b)
	return aok && bok && fa == fb
}

func asFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int8:
		return float64(t), true
	case int16:
		return float64(t), true
	case int32:
		return float64(t), true
	case int64:
		return float64(t), true
	case uint:
		return float64(t), true
	case uint8:
		return float64(t), true
	case uint16:
		return float64(t), true
	case uint32:
		return float64(t), true
	case uint64:
		return float64(t), true
	case float32:
		return float64(t), true
	case float64:
		return t, true
	default:
		return 0, false
	}
}
