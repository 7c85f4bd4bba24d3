// Package transform is the post-submission stage: it turns the flat values of
// a form, whose dotted identifiers the runtime treats as opaque labels, into
// nested payloads and typed structs.
package transform

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
)

const maxIndex = 1 << 16

// Expand nests values by splitting identifiers on dots. Numeric segments
// address slice elements: "tags.0" becomes {"tags": ["..."]}. Identifiers
// that overlap, such as "owner" and "owner.email", are reported as errors.
func Expand(values map[string]any) (map[string]any, error) {
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	root := make(map[string]any, len(values))
	for _, key := range keys {
		segments := strings.Split(key, ".")
		for _, segment := range segments {
			if segment == "" {
				return nil, fmt.Errorf("transform: invalid path %q", key)
			}
		}
		if _, err := setPath(root, segments, values[key], key); err != nil {
			return nil, err
		}
	}
	return root, nil
}

// Flatten is the inverse of Expand: nested maps and slices become dotted
// identifiers. Empty containers are kept as leaves.
func Flatten(nested map[string]any) map[string]any {
	out := make(map[string]any)
	for key, value := range nested {
		flatten(key, value, out)
	}
	return out
}

func flatten(prefix string, value any, out map[string]any) {
	switch v := value.(type) {
	case map[string]any:
		if len(v) == 0 {
			out[prefix] = v
			return
		}
		for key, child := range v {
			flatten(prefix+"."+key, child, out)
		}
	case []any:
		if len(v) == 0 {
			out[prefix] = v
			return
		}
		for idx, child := range v {
			flatten(prefix+"."+strconv.Itoa(idx), child, out)
		}
	default:
		out[prefix] = v
	}
}

// Get reads a dotted path from a nested payload.
func Get(root map[string]any, path string) (any, bool) {
	if root == nil || path == "" {
		return nil, false
	}
	current := any(root)
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case map[string]any:
			next, ok := node[segment]
			if !ok {
				return nil, false
			}
			current = next
		case []any:
			idx, err := strconv.Atoi(segment)
			if err != nil || idx < 0 || idx >= len(node) {
				return nil, false
			}
			current = node[idx]
		default:
			return nil, false
		}
	}
	return current, true
}

func setPath(node any, segments []string, value any, path string) (any, error) {
	if len(segments) == 0 {
		if node != nil {
			return nil, fmt.Errorf("transform: path %q overlaps another field", path)
		}
		return value, nil
	}

	segment := segments[0]
	if idx, err := strconv.Atoi(segment); err == nil {
		if idx < 0 || idx > maxIndex {
			return nil, fmt.Errorf("transform: index %d out of range in %q", idx, path)
		}
		var list []any
		switch existing := node.(type) {
		case nil:
		case []any:
			list = existing
		default:
			return nil, fmt.Errorf("transform: path %q overlaps another field", path)
		}
		if len(list) <= idx {
			list = append(list, make([]any, idx+1-len(list))...)
		}
		child, err := setPath(list[idx], segments[1:], value, path)
		if err != nil {
			return nil, err
		}
		list[idx] = child
		return list, nil
	}

	var object map[string]any
	switch existing := node.(type) {
	case nil:
		object = make(map[string]any)
	case map[string]any:
		object = existing
	default:
		return nil, fmt.Errorf("transform: path %q overlaps another field", path)
	}
	child, err := setPath(object[segment], segments[1:], value, path)
	if err != nil {
		return nil, err
	}
	object[segment] = child
	return object, nil
}

// DecodeOption customises Decode.
type DecodeOption func(*mapstructure.DecoderConfig)

// WithTagName selects the struct tag used for field names. Defaults to json.
func WithTagName(tag string) DecodeOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.TagName = tag
	}
}

// WithStrict reports values that have no matching struct field.
func WithStrict() DecodeOption {
	return func(cfg *mapstructure.DecoderConfig) {
		cfg.ErrorUnused = true
	}
}

// Decode expands values and decodes the result into target, which must be a
// pointer. Strings are converted to numbers and booleans where the target
// field asks for them.
func Decode(values map[string]any, target any, opts ...DecodeOption) error {
	nested, err := Expand(values)
	if err != nil {
		return err
	}
	cfg := &mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           target,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(cfg)
		}
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return fmt.Errorf("transform: new decoder: %w", err)
	}
	if err := decoder.Decode(nested); err != nil {
		return fmt.Errorf("transform: decode: %w", err)
	}
	return nil
}
