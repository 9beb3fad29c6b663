package config

import (
	"encoding/json"
	"fmt"
	"reflect"
	"slices"
	"strconv"
	"strings"
)

// Settings are addressed by dot-notation paths built from the json tags of
// Config, e.g. "transcoder.workers" or "telegram.allowChats".

// Setting is one leaf value of the config.
type Setting struct {
	Path  string
	Value any
}

var int64ListType = reflect.TypeOf(FlexInt64List(nil))

// GetByPath returns the value at path. A section path returns the whole section.
func GetByPath(cfg *Config, path string) (any, error) {
	v, err := lookup(cfg, path)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// SetByPath parses value according to the type of the field at path and
// stores it. Lists take a single id or a comma-separated list; an empty
// string clears the list.
func SetByPath(cfg *Config, path, value string) error {
	v, err := lookup(cfg, path)
	if err != nil {
		return err
	}
	if v.Kind() == reflect.Struct {
		return fmt.Errorf("%s is a section, set one of its keys", path)
	}
	parsed, err := parseFor(v.Type(), value)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	v.Set(parsed)
	return nil
}

// ListPaths returns every leaf setting sorted by path.
func ListPaths(cfg *Config) []Setting {
	var out []Setting
	collect("", reflect.ValueOf(cfg).Elem(), &out)
	slices.SortFunc(out, func(a, b Setting) int { return strings.Compare(a.Path, b.Path) })
	return out
}

// FormatValue renders a setting value the way config files spell it.
func FormatValue(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}

func collect(prefix string, v reflect.Value, out *[]Setting) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		path := jsonName(t.Field(i))
		if prefix != "" {
			path = prefix + "." + path
		}
		field := v.Field(i)
		if field.Kind() == reflect.Struct {
			collect(path, field, out)
			continue
		}
		*out = append(*out, Setting{Path: path, Value: field.Interface()})
	}
}

func lookup(cfg *Config, path string) (reflect.Value, error) {
	if path == "" {
		return reflect.Value{}, fmt.Errorf("empty path")
	}
	current := reflect.ValueOf(cfg).Elem()
	for _, key := range strings.Split(path, ".") {
		if current.Kind() != reflect.Struct {
			return reflect.Value{}, fmt.Errorf("cannot traverse into %s at %s", current.Type(), key)
		}
		field, ok := fieldByTag(current, key)
		if !ok {
			return reflect.Value{}, fmt.Errorf("key not found: %s", path)
		}
		current = field
	}
	return current, nil
}

func fieldByTag(v reflect.Value, key string) (reflect.Value, bool) {
	t := v.Type()
	for i := 0; i < t.NumField(); i++ {
		if jsonName(t.Field(i)) == key {
			return v.Field(i), true
		}
	}
	return reflect.Value{}, false
}

func jsonName(f reflect.StructField) string {
	name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
	if name == "" {
		return f.Name
	}
	return name
}

func parseFor(t reflect.Type, s string) (reflect.Value, error) {
	if t == int64ListType {
		ids, err := parseIDList(s)
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(ids), nil
	}
	switch t.Kind() {
	case reflect.String:
		return reflect.ValueOf(s).Convert(t), nil
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return reflect.Value{}, fmt.Errorf("want true or false, got %q", s)
		}
		return reflect.ValueOf(b), nil
	case reflect.Int, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, t.Bits())
		if err != nil {
			return reflect.Value{}, fmt.Errorf("want an integer, got %q", s)
		}
		return reflect.ValueOf(n).Convert(t), nil
	}
	return reflect.Value{}, fmt.Errorf("unsupported type %s", t)
}

func parseIDList(s string) (FlexInt64List, error) {
	var ids FlexInt64List
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q", part)
		}
		ids = append(ids, n)
	}
	return ids, nil
}

// Sanitize returns a copy of the config with the bot token masked.
func Sanitize(cfg *Config) *Config {
	masked := *cfg
	masked.Telegram.AllowChats = slices.Clone(cfg.Telegram.AllowChats)
	if masked.Telegram.Token != "" {
		masked.Telegram.Token = maskString(masked.Telegram.Token)
	}
	return &masked
}

// maskString keeps the first and last four characters.
func maskString(s string) string {
	if len(s) <= 8 {
		return "***"
	}
	return s[:4] + "****" + s[len(s)-4:]
}
