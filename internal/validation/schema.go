package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Kind is the JSON type a schema node accepts.
type Kind string

const (
	KindObject  Kind = "object"
	KindArray   Kind = "array"
	KindString  Kind = "string"
	KindNumber  Kind = "number"
	KindInteger Kind = "integer"
	KindBoolean Kind = "boolean"
)

// Format is a named string format check.
type Format string

const (
	FormatEmail     Format = "email"
	FormatURI       Format = "uri"
	FormatTimestamp Format = "timestamp"
)

// Schema describes the accepted shape of a decoded JSON or YAML document.
// Zero-valued constraints are not checked.
type Schema struct {
	Kind Kind

	// Object constraints. Properties are checked in declaration order.
	Properties      []Property
	AllowAdditional bool

	// Array constraints.
	Items    *Schema
	MinItems int

	// String constraints. Lengths count runes.
	MinLength int
	MaxLength int
	Pattern   *regexp.Regexp
	Format    Format
	Enum      []string

	// Number constraints.
	Minimum          *float64
	ExclusiveMinimum *float64
}

// Property is a named member of an object schema.
type Property struct {
	Name     string
	Schema   *Schema
	Optional bool
}

// Result is the outcome of validating one document.
type Result struct {
	Valid  bool
	Errors []ValidationError
}

// Messages renders each error as "field message".
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Errors))
	for _, e := range r.Errors {
		out = append(out, e.String())
	}
	return out
}

// Validator checks a generic document against a schema.
type Validator interface {
	Validate(schema *Schema, doc any) Result
}

// SchemaValidator walks a Schema and reports every violation it finds.
type SchemaValidator struct{}

// NewSchemaValidator creates a structural validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{}
}

// Validate checks doc against schema. Errors carry JSON-pointer style field paths.
func (v *SchemaValidator) Validate(schema *Schema, doc any) Result {
	var c Collector
	validateNode(&c, "", schema, doc)
	return Result{Valid: !c.HasErrors(), Errors: c.Errors()}
}

// emailPattern matches the permissive address form most JSON Schema validators accept.
var emailPattern = regexp.MustCompile(`(?i)^[a-z0-9.!#$%&'*+/=?^_` + "`" + `{|}~-]+@[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*$`)

func fieldPath(path string) string {
	if path == "" {
		return "/"
	}
	return path
}

func childPath(path, name string) string {
	name = strings.ReplaceAll(name, "~", "~0")
	name = strings.ReplaceAll(name, "/", "~1")
	return path + "/" + name
}

func typeError(path string, kind Kind) *ValidationError {
	article := "a"
	if kind == KindObject || kind == KindArray || kind == KindInteger {
		article = "an"
	}
	return &ValidationError{
		Field:   fieldPath(path),
		Message: fmt.Sprintf("must be %s %s", article, kind),
	}
}

func validateNode(c *Collector, path string, s *Schema, value any) {
	if s == nil {
		return
	}
	field := fieldPath(path)

	switch s.Kind {
	case KindObject:
		obj, ok := asObject(value)
		if !ok {
			c.Add(typeError(path, s.Kind))
			return
		}
		validateObject(c, path, s, obj)

	case KindArray:
		arr, ok := value.([]any)
		if !ok {
			c.Add(typeError(path, s.Kind))
			return
		}
		if len(arr) < s.MinItems {
			c.Add(&ValidationError{Field: field, Message: fmt.Sprintf("must contain at least %d items", s.MinItems)})
		}
		for i, item := range arr {
			validateNode(c, childPath(path, strconv.Itoa(i)), s.Items, item)
		}

	case KindString:
		str, ok := value.(string)
		if !ok {
			c.Add(typeError(path, s.Kind))
			return
		}
		c.Add(ValidateNoNullBytes(field, str))
		if s.MinLength > 0 {
			c.Add(ValidateMinLength(field, str, s.MinLength))
		}
		if s.MaxLength > 0 {
			c.Add(ValidateMaxLength(field, str, s.MaxLength))
		}
		if s.Pattern != nil && !s.Pattern.MatchString(str) {
			c.Add(&ValidationError{Field: field, Message: fmt.Sprintf("must match pattern %q", s.Pattern.String())})
		}
		if s.Format != "" {
			c.Add(validateFormat(field, str, s.Format))
		}
		if len(s.Enum) > 0 {
			c.Add(ValidateEnum(field, str, s.Enum))
		}

	case KindNumber, KindInteger:
		n, ok := asNumber(value)
		if !ok {
			c.Add(typeError(path, s.Kind))
			return
		}
		if s.Kind == KindInteger && n != math.Trunc(n) {
			c.Add(typeError(path, s.Kind))
			return
		}
		if s.Minimum != nil {
			c.Add(ValidateMinimum(field, n, *s.Minimum))
		}
		if s.ExclusiveMinimum != nil {
			c.Add(ValidateExclusiveMinimum(field, n, *s.ExclusiveMinimum))
		}

	case KindBoolean:
		if _, ok := value.(bool); !ok {
			c.Add(typeError(path, s.Kind))
		}
	}
}

func validateObject(c *Collector, path string, s *Schema, obj map[string]any) {
	known := make(map[string]struct{}, len(s.Properties))
	for _, p := range s.Properties {
		known[p.Name] = struct{}{}
		if _, ok := obj[p.Name]; !ok && !p.Optional {
			c.Add(&ValidationError{
				Field:   fieldPath(path),
				Message: fmt.Sprintf("must have required property '%s'", p.Name),
			})
		}
	}

	if !s.AllowAdditional {
		var extra []string
		for k := range obj {
			if _, ok := known[k]; !ok {
				extra = append(extra, k)
			}
		}
		slices.Sort(extra)
		for _, k := range extra {
			c.Add(&ValidationError{
				Field:   childPath(path, k),
				Message: "is not an allowed property",
			})
		}
	}

	for _, p := range s.Properties {
		if v, ok := obj[p.Name]; ok {
			validateNode(c, childPath(path, p.Name), p.Schema, v)
		}
	}
}

func validateFormat(field, value string, format Format) *ValidationError {
	switch format {
	case FormatEmail:
		if !emailPattern.MatchString(value) {
			return &ValidationError{Field: field, Message: "must be a valid email address"}
		}
	case FormatURI:
		u, err := url.Parse(value)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return &ValidationError{Field: field, Message: "must be a valid URI"}
		}
	case FormatTimestamp:
		if _, err := time.Parse(time.RFC3339, value); err == nil {
			return nil
		}
		if _, err := time.Parse(time.DateOnly, value); err == nil {
			return nil
		}
		return &ValidationError{Field: field, Message: "must be a valid date or RFC 3339 timestamp"}
	}
	return nil
}

func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

func asNumber(v any) (float64, bool) {
	var n float64
	switch x := v.(type) {
	case float64:
		n = x
	case float32:
		n = float64(x)
	case int:
		n = float64(x)
	case int64:
		n = float64(x)
	case uint64:
		n = float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return 0, false
		}
		n = f
	default:
		return 0, false
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
