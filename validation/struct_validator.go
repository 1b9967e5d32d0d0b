package validation

import (
	stderrors "errors"
	"reflect"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"

	"github.com/kbukum/dikit/errors"
)

var structValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(fieldName)
	return v
})

// fieldName names a field after its mapstructure key, then its json key,
// then its Go name in snake case, so errors read like config paths.
func fieldName(fld reflect.StructField) string {
	for _, tag := range []string{"mapstructure", "json"} {
		name, _, _ := strings.Cut(fld.Tag.Get(tag), ",")
		switch name {
		case "":
			continue
		case "-":
			return toSnakeCase(fld.Name)
		default:
			return name
		}
	}
	return toSnakeCase(fld.Name)
}

// Validate checks s against its `validate` tags and reports every failing
// field by its dotted path, e.g. "tracker.sweep_interval".
func Validate(s any) error {
	err := structValidator().Struct(s)
	if err == nil {
		return nil
	}

	var failed validator.ValidationErrors
	if !stderrors.As(err, &failed) {
		return errors.Validation("validation failed: " + err.Error())
	}

	v := New()
	for _, fe := range failed {
		v.AddError(fieldPath(fe), message(fe))
	}
	return v.Err()
}

// fieldPath drops the root struct name from the namespace.
func fieldPath(fe validator.FieldError) string {
	if _, path, ok := strings.Cut(fe.Namespace(), "."); ok {
		return path
	}
	return fe.Field()
}

var messages = map[string]string{
	"required":      "is required",
	"min":           "must be at least %s",
	"max":           "must be at most %s",
	"gte":           "must be greater than or equal to %s",
	"lte":           "must be less than or equal to %s",
	"gt":            "must be greater than %s",
	"oneof":         "must be one of: %s",
	"url":           "must be a valid URL",
	"hostname_port": "must be host:port",
}

func message(fe validator.FieldError) string {
	m, ok := messages[fe.Tag()]
	if !ok {
		return "is invalid"
	}
	return strings.Replace(m, "%s", fe.Param(), 1)
}

func toSnakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}
