package config

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// lookupFunc resolves an environment variable; os.LookupEnv in production
type lookupFunc func(key string) (string, bool)

var durationType = reflect.TypeOf(time.Duration(0))

// applyEnv overrides every field carrying an `env` tag whose variable is set.
// Nested structs are walked recursively.
func applyEnv(target interface{}, lookup lookupFunc) error {
	val := reflect.ValueOf(target)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}
	if val.Kind() != reflect.Struct {
		return nil
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		meta := typ.Field(i)

		if field.Kind() == reflect.Struct {
			if err := applyEnv(field.Addr().Interface(), lookup); err != nil {
				return err
			}
			continue
		}

		key := meta.Tag.Get("env")
		if key == "" {
			continue
		}
		raw, ok := lookup(key)
		if !ok {
			continue
		}
		if err := assign(field, raw); err != nil {
			return fmt.Errorf("failed to set field %s from env var %s: %w", meta.Name, key, err)
		}
	}
	return nil
}

// assign parses raw into field according to the field's kind
func assign(field reflect.Value, raw string) error {
	if !field.CanSet() {
		return fmt.Errorf("field cannot be set")
	}

	switch {
	case field.Type() == durationType:
		d, err := time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("invalid duration format: %w", err)
		}
		field.SetInt(int64(d))

	case field.Kind() == reflect.String:
		field.SetString(raw)

	case field.Kind() >= reflect.Int && field.Kind() <= reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid integer format: %w", err)
		}
		field.SetInt(n)

	case field.Kind() == reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return fmt.Errorf("invalid boolean format: %w", err)
		}
		field.SetBool(b)

	case field.Kind() == reflect.Float32 || field.Kind() == reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(raw), field.Type().Bits())
		if err != nil {
			return fmt.Errorf("invalid float format: %w", err)
		}
		field.SetFloat(f)

	case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.String:
		field.Set(reflect.ValueOf(splitList(raw)))

	default:
		return fmt.Errorf("unsupported field type: %s", field.Type())
	}
	return nil
}

// splitList parses a comma separated list, dropping blank items
func splitList(raw string) []string {
	items := []string{}
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
