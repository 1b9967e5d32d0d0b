package validation

import (
	"slices"
	"strings"

	"github.com/kbukum/dikit/errors"
)

// detailFields is the AppError detail key holding []FieldError.
const detailFields = "fields"

// FieldError is one invalid field, keyed by its dotted config path.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e FieldError) String() string { return e.Field + ": " + e.Message }

// Validator collects field errors for programmatic checks. Checks return
// the validator so they chain.
type Validator struct {
	fields []FieldError
}

func New() *Validator { return &Validator{} }

func (v *Validator) AddError(field, message string) {
	v.fields = append(v.fields, FieldError{Field: field, Message: message})
}

func (v *Validator) HasErrors() bool { return len(v.fields) > 0 }

// Errors returns a copy of the collected field errors.
func (v *Validator) Errors() []FieldError { return slices.Clone(v.fields) }

// Err returns nil, or an INVALID_INPUT error whose message lists every field
// and whose "fields" detail carries them.
func (v *Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}
	parts := make([]string, len(v.fields))
	for i, f := range v.fields {
		parts[i] = f.String()
	}
	return errors.Validation(strings.Join(parts, "; ")).WithDetail(detailFields, v.Errors())
}

// FieldsOf returns the field errors carried by an error from Err or
// Validate, or nil.
func FieldsOf(err error) []FieldError {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		return nil
	}
	fields, _ := appErr.Details[detailFields].([]FieldError)
	return fields
}

// Merge adds the field errors of a nested section under prefix. An error
// without field errors is added on prefix itself.
func (v *Validator) Merge(prefix string, err error) *Validator {
	if err == nil {
		return v
	}
	fields := FieldsOf(err)
	if fields == nil {
		v.AddError(prefix, err.Error())
		return v
	}
	for _, f := range fields {
		if prefix != "" {
			f.Field = prefix + "." + f.Field
		}
		v.fields = append(v.fields, f)
	}
	return v
}

// Required rejects blank strings.
func (v *Validator) Required(field, value string) *Validator {
	if strings.TrimSpace(value) == "" {
		v.AddError(field, "is required")
	}
	return v
}

// OneOf rejects values outside allowed. An empty value passes; pair it with
// Required when the field is mandatory.
func (v *Validator) OneOf(field, value string, allowed []string) *Validator {
	if value != "" && !slices.Contains(allowed, value) {
		v.AddError(field, "must be one of: "+strings.Join(allowed, ", "))
	}
	return v
}

// Custom adds message on field unless ok holds. Cross-field rules use it.
func (v *Validator) Custom(ok bool, field, message string) *Validator {
	if !ok {
		v.AddError(field, message)
	}
	return v
}
