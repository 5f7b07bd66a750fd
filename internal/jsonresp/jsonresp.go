// Package jsonresp turns raw model output into validated Go values.
//
// Models frequently wrap JSON in markdown fences or surround it with prose.
// Parse removes the fences, optionally rejects anything that is not framed as
// a bare JSON document, decodes and finally validates the result. Decode and
// validation failures are reported through distinct sentinel errors.
package jsonresp

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	// ErrNotPureJSON is returned when RequireJSON is set and the text is not framed as JSON
	ErrNotPureJSON = errors.New("Invalid JSON response from LLM: expected pure JSON content.")
	// ErrInvalidJSON wraps decode failures
	ErrInvalidJSON = errors.New("Invalid JSON response from LLM")
	// ErrValidation wraps schema failures of a decoded value
	ErrValidation = errors.New("Validation failed for LLM JSON")
)

var (
	fenceStart   = regexp.MustCompile("^```([a-zA-Z]+)?\\s*")
	fenceEnd     = regexp.MustCompile("\\s*```$")
	fenceOpening = regexp.MustCompile("^```[a-zA-Z]*\\s*")
)

// Defaulter is implemented by values that fill optional fields after decoding
type Defaulter interface {
	ApplyDefaults()
}

// Options controls Parse
type Options struct {
	StripFences bool
	RequireJSON bool
	// Validator checks struct tags after decoding. Nil skips validation.
	Validator *validator.Validate
	// Unmarshal replaces json.Unmarshal
	Unmarshal func(data []byte, v any) error
}

// Strict strips fences and requires a bare JSON document
func Strict(v *validator.Validate) Options {
	return Options{StripFences: true, RequireJSON: true, Validator: v}
}

// StripFences removes a leading ``` or ```lang fence and a trailing ``` fence.
// Text is only changed when both fences are present.
func StripFences(raw string) string {
	cleaned := strings.TrimSpace(raw)
	if fenceStart.MatchString(cleaned) && fenceEnd.MatchString(cleaned) {
		cleaned = fenceOpening.ReplaceAllString(cleaned, "")
		cleaned = fenceEnd.ReplaceAllString(cleaned, "")
		cleaned = strings.TrimSpace(cleaned)
	}
	return cleaned
}

// LooksLikeJSON reports whether s starts with { or [ and ends with } or ]
func LooksLikeJSON(s string) bool {
	startsJSON := strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")
	endsJSON := strings.HasSuffix(s, "}") || strings.HasSuffix(s, "]")
	return startsJSON && endsJSON
}

// Parse decodes raw into a T following opts
func Parse[T any](raw string, opts Options) (T, error) {
	var out T

	cleaned := strings.TrimSpace(raw)
	if opts.StripFences {
		cleaned = StripFences(cleaned)
	}

	if opts.RequireJSON && !LooksLikeJSON(cleaned) {
		return out, ErrNotPureJSON
	}

	unmarshal := opts.Unmarshal
	if unmarshal == nil {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal([]byte(cleaned), &out); err != nil {
		return out, fmt.Errorf("%w: %s", ErrInvalidJSON, err.Error())
	}

	if d, ok := any(&out).(Defaulter); ok {
		d.ApplyDefaults()
	}

	if opts.Validator != nil && isStruct(out) {
		if err := opts.Validator.Struct(out); err != nil {
			return out, fmt.Errorf("%w: %s", ErrValidation, FormatValidation(err))
		}
	}

	return out, nil
}

// FormatValidation renders validator errors as "path is rule" pairs
func FormatValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		path := fe.Namespace()
		if i := strings.IndexByte(path, '.'); i >= 0 {
			path = path[i+1:]
		}
		parts = append(parts, fmt.Sprintf("%s is %s", path, fe.Tag()))
	}
	return strings.Join(parts, "; ")
}

func isStruct(v any) bool {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return false
		}
		rv = rv.Elem()
	}
	return rv.Kind() == reflect.Struct
}
