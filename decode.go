package vaultier

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
)

// decode copies a KV v2 payload into out, which must be a non-nil pointer.
//
// Fields are matched using their `json` tags (falling back to the field name,
// case-insensitively), so types written for encoding/json work unchanged.
// Fields of embedded structs are promoted, as encoding/json does. Every
// top-level field of a struct target is required unless its tag has
// ",omitempty" - a payload missing a required key is an error, as is a value
// of the wrong type. Durations ("30s") and RFC 3339 timestamps decode from
// strings.
func decode(data map[string]any, out any) error {
	md := &mapstructure.Metadata{}

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			numberToStringHookFunc(),
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		),
		Metadata: md,
		Result:   out,
		Squash:   true,
		TagName:  "json",
	})
	if err != nil {
		return err
	}

	if err := dec.Decode(data); err != nil {
		return err
	}

	if missing := missingFields(out, md.Unset); len(missing) > 0 {
		return fmt.Errorf("missing required field(s): %s", strings.Join(missing, ", "))
	}

	return nil
}

var numberType = reflect.TypeOf(json.Number(""))

// numberToStringHookFunc rejects JSON numbers bound for string fields.
// json.Number is itself a string kind, so mapstructure would otherwise copy
// the digits straight in.
func numberToStringHookFunc() mapstructure.DecodeHookFuncType {
	return func(from, to reflect.Type, data any) (any, error) {
		if from != numberType || to.Kind() != reflect.String || to == numberType {
			return data, nil
		}

		return nil, fmt.Errorf("cannot decode number %s into %s", data, to)
	}
}

// missingFields filters the keys mapstructure could not set down to the ones
// belonging to required top-level fields of out's struct type.
func missingFields(out any, unset []string) []string {
	if len(unset) == 0 {
		return nil
	}

	t := reflect.TypeOf(out)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}

	if t == nil || t.Kind() != reflect.Struct {
		return nil
	}

	optional := optionalFields(t)

	missing := []string{}

	for _, key := range unset {
		top, _, _ := strings.Cut(key, ".")
		if optional[top] {
			continue
		}

		missing = append(missing, key)
	}

	sort.Strings(missing)

	return missing
}

func optionalFields(t reflect.Type) map[string]bool {
	optional := map[string]bool{}
	collectOptional(t, optional)

	return optional
}

func collectOptional(t reflect.Type, optional map[string]bool) {
	for i := range t.NumField() {
		f := t.Field(i)

		if ft := embeddedStruct(f); ft != nil {
			collectOptional(ft, optional)

			continue
		}

		name, opts, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" {
			name = f.Name
		}

		if !f.IsExported() || name == "-" || strings.Contains(opts, "omitempty") {
			optional[name] = true
		}
	}
}

// embeddedStruct returns the type of an embedded struct value, whose fields
// are decoded as if declared in the enclosing struct. Embedded pointers are
// nil in a fresh target, so they decode as ordinary named fields.
func embeddedStruct(f reflect.StructField) reflect.Type {
	if !f.Anonymous || f.Type.Kind() != reflect.Struct {
		return nil
	}

	return f.Type
}
