package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/mpm-dev/mpm/plugin/values"
)

// ErrInvalid is returned when a document fails schema or struct validation.
var ErrInvalid = errors.New("invalid configuration")

// ValidationError lists every problem found in a document.
type ValidationError struct {
	Source   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Source, strings.Join(e.Problems, "; "))
}

// Is implements error matching for errors.Is() checks.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}

// newValidator returns a validator knowing the "name" and "constraint" tags.
func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	_ = v.RegisterValidation("name", func(fl validator.FieldLevel) bool {
		return values.ValidateName(fl.Field().String()) == nil
	})
	_ = v.RegisterValidation("constraint", func(fl validator.FieldLevel) bool {
		_, err := values.ParseConstraint(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate checks the document's structure and the names and constraints it declares,
// including that every inherited server exists.
func (d *Document) Validate() error {
	problems := structProblems(newValidator().Struct(d))

	for _, name := range d.ServerNames() {
		for _, parent := range d.Servers[name].Inherit {
			if _, ok := d.Servers[parent]; !ok {
				problems = append(problems, fmt.Sprintf("server %s inherits unknown server %s", name, parent))
			}
		}
	}
	if len(problems) == 0 {
		for _, name := range d.ServerNames() {
			if _, err := d.Specs(name); err != nil {
				problems = append(problems, err.Error())
			}
		}
	}

	if len(problems) > 0 {
		return &ValidationError{Source: "config", Problems: problems}
	}
	return nil
}

func structProblems(err error) []string {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	problems := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		problems = append(problems, fmt.Sprintf("%s: failed %q check (value %q)", fe.Namespace(), fe.Tag(), fmt.Sprint(fe.Value())))
	}
	return problems
}
