package utils

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var friendlyAuthMessages = []struct {
	contains string
	message  string
}{
	{"Invalid login", "Incorrect email or password."},
	{"already registered", "User already exists. Try signing in."},
}

// FriendlyAuthMessage maps known auth error texts to a user-facing phrase.
func FriendlyAuthMessage(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	lower := strings.ToLower(msg)
	for _, m := range friendlyAuthMessages {
		if strings.Contains(lower, strings.ToLower(m.contains)) {
			return m.message
		}
	}
	if msg == "" {
		return "An unexpected error occurred."
	}
	return msg
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate runs struct tags and returns field -> rule for failures, or nil.
func Validate(v interface{}) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	fields := map[string]string{}
	if verrs, ok := err.(validator.ValidationErrors); ok {
		for _, fe := range verrs {
			fields[fe.Field()] = fe.Tag()
		}
		return fields
	}
	fields["_"] = err.Error()
	return fields
}
