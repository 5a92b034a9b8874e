package factory

import (
	"fmt"
	"reflect"
	"time"

	"github.com/mitchellh/mapstructure"
)

// DecodeTagName is the struct tag consulted when mapping option names onto
// struct fields.
const DecodeTagName = "factory"

// Decode resolves the subtree with defaults and maps it onto target, which
// must be a non-nil struct pointer. Field mapping follows the "factory" tag,
// falling back to case-insensitive name matching; string values convert to
// durations, RFC3339 times, and comma-separated slices.
func (n *Options) Decode(target any) error {
	rv := reflect.ValueOf(target)
	if rv.Kind() != reflect.Ptr || rv.IsNil() {
		return fmt.Errorf("factory: decode target must be non-nil pointer, got %T", target)
	}

	values, err := n.ToMap(true)
	if err != nil {
		return err
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		TagName:          DecodeTagName,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return fmt.Errorf("factory: decoder creation failed: %w", err)
	}

	if err := decoder.Decode(values); err != nil {
		return fmt.Errorf("factory: decode failed for %q: %w", n.path, err)
	}
	return nil
}
