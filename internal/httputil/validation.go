package httputil

import (
	"errors"

	"github.com/go-playground/validator/v10"
)

// ValidationMessage picks the message for the first failed rule. Rules are
// looked up as "Field.tag" first, then "tag"; anything unmatched yields fallback.
func ValidationMessage(err error, messages map[string]string, fallback string) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fallback
	}

	fe := verrs[0]
	if msg, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return msg
	}
	if msg, ok := messages[fe.Tag()]; ok {
		return msg
	}
	return fallback
}
