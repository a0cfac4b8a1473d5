package server

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	clientdomain "github.com/smallbiznis/idadmin/internal/client/domain"
	identitydomain "github.com/smallbiznis/idadmin/internal/identity/domain"
)

var registerTagNamesOnce sync.Once

// registerFormTagNames makes validator report fields by their form name so
// errors line up with the inputs on the page.
func registerFormTagNames() {
	registerTagNamesOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(field reflect.StructField) string {
			name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
			if name == "-" || name == "" {
				return field.Name
			}
			return name
		})
	})
}

var fieldLabels = map[string]string{
	"user_name":    "Username",
	"email":        "Email",
	"phone_number": "Phone number",
	"password":     "Password",
}

func fieldLabel(field string) string {
	if label, ok := fieldLabels[field]; ok {
		return label
	}
	return strings.ReplaceAll(field, "_", " ")
}

// fieldErrors converts a binding failure into per-field messages. ok is
// false when err is not a validation failure.
func fieldErrors(err error) (map[string]string, bool) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, false
	}
	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		label := fieldLabel(fe.Field())
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("The %s field is required.", label)
		case "email":
			msg = fmt.Sprintf("The %s field is not a valid e-mail address.", label)
		case "max":
			msg = fmt.Sprintf("The field %s must be a string with a maximum length of %s.", label, fe.Param())
		default:
			msg = fmt.Sprintf("The %s field is invalid.", label)
		}
		if _, exists := out[fe.Field()]; !exists {
			out[fe.Field()] = msg
		}
	}
	return out, true
}

func clientFieldErrors(errs clientdomain.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, fe := range errs {
		if _, exists := out[fe.Field]; !exists {
			out[fe.Field] = fe.Message
		}
	}
	return out
}

func identityMessages(errs []identitydomain.Error) []string {
	out := make([]string, 0, len(errs))
	for _, e := range errs {
		out = append(out, e.Description)
	}
	return out
}
