package validation

import (
	"context"
	"encoding/json"
	"fmt"
	"net/mail"
	"reflect"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/goliatone/go-formflow/pkg/form"
	"github.com/goliatone/go-formflow/pkg/model"
)

// Func adapts a synchronous check into a form.Validator. check returns the
// error message, or "" when the value is valid.
func Func(check func(value any) string) form.Validator {
	return form.ValidatorFunc(func(_ context.Context, _ form.Context, fieldID string, value any) (model.FormError, error) {
		if check == nil {
			return nil, nil
		}
		if msg := check(value); msg != "" {
			return model.NewFieldError(fieldID, msg), nil
		}
		return nil, nil
	})
}

// Required rejects nil, blank strings and empty collections.
func Required(message string) form.Validator {
	message = orDefault(message, "is required")
	return Func(func(value any) string {
		if isEmpty(value) {
			return message
		}
		return ""
	})
}

// MinLength rejects strings (counted in runes) and collections shorter than n.
func MinLength(n int, message string) form.Validator {
	message = orDefault(message, fmt.Sprintf("must be at least %d characters", n))
	return Func(func(value any) string {
		size, ok := length(value)
		if !ok || size == 0 {
			return ""
		}
		if size < n {
			return message
		}
		return ""
	})
}

// MaxLength rejects strings (counted in runes) and collections longer than n.
func MaxLength(n int, message string) form.Validator {
	message = orDefault(message, fmt.Sprintf("must be at most %d characters", n))
	return Func(func(value any) string {
		size, ok := length(value)
		if !ok {
			return ""
		}
		if size > n {
			return message
		}
		return ""
	})
}

// Pattern rejects string values that do not match expr.
func Pattern(expr, message string) (form.Validator, error) {
	re, err := regexp.Compile(expr)
	if err != nil {
		return nil, fmt.Errorf("validation: compile pattern %q: %w", expr, err)
	}
	message = orDefault(message, "does not match required pattern")
	return Func(func(value any) string {
		text, ok := value.(string)
		if !ok || text == "" {
			return ""
		}
		if !re.MatchString(text) {
			return message
		}
		return ""
	}), nil
}

// MustPattern is Pattern that panics on an invalid expression.
func MustPattern(expr, message string) form.Validator {
	v, err := Pattern(expr, message)
	if err != nil {
		panic(err)
	}
	return v
}

// OneOf rejects values whose string form is not in allowed.
func OneOf(allowed []string, message string) form.Validator {
	set := make(map[string]struct{}, len(allowed))
	for _, item := range allowed {
		set[item] = struct{}{}
	}
	message = orDefault(message, "must be one of: "+strings.Join(allowed, ", "))
	return Func(func(value any) string {
		if isEmpty(value) {
			return ""
		}
		if _, ok := set[fmt.Sprint(value)]; !ok {
			return message
		}
		return ""
	})
}

// Bounds describes an inclusive numeric range. Nil ends are open.
type Bounds struct {
	Min          *float64
	Max          *float64
	ExclusiveMin bool
	ExclusiveMax bool
}

// Range rejects numbers outside bounds and values that are not numeric.
func Range(bounds Bounds, message string) form.Validator {
	return Func(func(value any) string {
		if isEmpty(value) {
			return ""
		}
		number, ok := toFloat(value)
		if !ok {
			return fmt.Sprintf("expected number, got %T", value)
		}
		if bounds.Min != nil && (number < *bounds.Min || (bounds.ExclusiveMin && number == *bounds.Min)) {
			if bounds.ExclusiveMin {
				return orDefault(message, "must be greater than "+formatFloat(*bounds.Min))
			}
			return orDefault(message, "must be at least "+formatFloat(*bounds.Min))
		}
		if bounds.Max != nil && (number > *bounds.Max || (bounds.ExclusiveMax && number == *bounds.Max)) {
			if bounds.ExclusiveMax {
				return orDefault(message, "must be less than "+formatFloat(*bounds.Max))
			}
			return orDefault(message, "must be at most "+formatFloat(*bounds.Max))
		}
		return ""
	})
}

// Email rejects strings that are not a bare RFC 5322 address.
func Email(message string) form.Validator {
	message = orDefault(message, "must be a valid email address")
	return Func(func(value any) string {
		text, ok := value.(string)
		if !ok || strings.TrimSpace(text) == "" {
			return ""
		}
		addr, err := mail.ParseAddress(text)
		if err != nil || addr.Address != strings.TrimSpace(text) {
			return message
		}
		return ""
	})
}

func orDefault(message, fallback string) string {
	if strings.TrimSpace(message) == "" {
		return fallback
	}
	return message
}

func formatFloat(value float64) string {
	return strconv.FormatFloat(value, 'f', -1, 64)
}

func isEmpty(value any) bool {
	if value == nil {
		return true
	}
	if text, ok := value.(string); ok {
		return strings.TrimSpace(text) == ""
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

func length(value any) (int, bool) {
	if value == nil {
		return 0, false
	}
	if text, ok := value.(string); ok {
		return utf8.RuneCountInString(text), true
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len(), true
	}
	return 0, false
}

func toFloat(value any) (float64, bool) {
	switch n := value.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	}
	return 0, false
}
