package namedsem

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var errNameHasNUL = errors.New("must not contain a NUL byte")

// nameRules accept anything the OS might; the OS decides the rest. A NUL
// cannot travel in a C string, so it would silently truncate the name.
var nameRules = []validation.Rule{
	validation.Required,
	validation.By(func(value interface{}) error {
		if s, _ := value.(string); strings.IndexByte(s, 0) >= 0 {
			return errNameHasNUL
		}
		return nil
	}),
}

func validateName(op, name string) error {
	if err := validation.Validate(name, nameRules...); err != nil {
		return &ArgumentError{
			Op:        op,
			Arity:     signatures[op].arity,
			Signature: signatures[op].signature,
			Reason:    "name " + err.Error(),
		}
	}
	return nil
}
