package config

import (
	"fmt"
	"reflect"
	"sort"
	"strings"
)

// detectUnknownFields compares the raw document with the known struct
// fields and returns one warning per unknown key.
func detectUnknownFields(raw map[string]any) []string {
	var warnings []string
	walkUnknown(raw, reflect.TypeOf(Config{}), "", &warnings)
	sort.Strings(warnings)
	return warnings
}

func walkUnknown(raw map[string]any, t reflect.Type, path string, warnings *[]string) {
	known := getFields(t)
	for key, value := range raw {
		if key == "$schema" {
			continue // $schema is explicitly allowed and ignored
		}
		field, ok := known[key]
		if !ok {
			if path == "" {
				*warnings = append(*warnings, fmt.Sprintf("unknown field %q at root level (ignored)", key))
			} else {
				*warnings = append(*warnings, fmt.Sprintf("unknown field %q in %s (ignored)", key, path))
			}
			continue
		}
		child := join(path, key)
		ft := field.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		switch ft.Kind() {
		case reflect.Struct:
			if m, ok := value.(map[string]any); ok {
				walkUnknown(m, ft, child, warnings)
			}
		case reflect.Slice:
			if ft.Elem().Kind() != reflect.Struct {
				continue
			}
			items, ok := value.([]any)
			if !ok {
				continue
			}
			for i, item := range items {
				if m, ok := item.(map[string]any); ok {
					walkUnknown(m, ft.Elem(), fmt.Sprintf("%s[%d]", child, i), warnings)
				}
			}
		}
	}
}

// getFields returns the known keys of a struct type, by yaml tag.
func getFields(t reflect.Type) map[string]reflect.StructField {
	fields := make(map[string]reflect.StructField)
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("yaml")
		if tag == "" || tag == "-" {
			continue
		}
		name := strings.Split(tag, ",")[0]
		if name != "" {
			fields[name] = field
		}
	}
	return fields
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
