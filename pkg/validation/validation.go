// Package validation wires go-playground/validator with the form rules used by
// payment, account and volunteer requests, and turns failures into per-field messages.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

var (
	digitsRe     = regexp.MustCompile(`^[0-9]+$`)
	expiryRe     = regexp.MustCompile(`^(0[1-9]|1[0-2])/[0-9]{2}$`)
	alphaSpaceRe = regexp.MustCompile(`^[A-Za-z]+( [A-Za-z]+)*$`)

	global = New()
)

// Errors maps a JSON field name to a human-readable message.
type Errors map[string]string

func (e Errors) Error() string {
	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e[k])
	}
	return strings.Join(parts, "; ")
}

// New returns a validator with the custom rules registered and JSON field naming.
func New() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(jsonName)
	register(v)
	return v
}

// RegisterGin installs the custom rules on gin's binding validator so
// `binding:"digits8"` style tags work on request structs.
func RegisterGin() error {
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not go-playground/validator")
	}
	v.RegisterTagNameFunc(jsonName)
	register(v)
	return nil
}

func register(v *validator.Validate) {
	for n, tag := range map[int]string{3: "digits3", 6: "digits6", 8: "digits8", 16: "digits16"} {
		n := n
		_ = v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
			s := fl.Field().String()
			return len(s) == n && digitsRe.MatchString(s)
		})
	}
	_ = v.RegisterValidation("mmyy", func(fl validator.FieldLevel) bool {
		return expiryRe.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("alphaspace", func(fl validator.FieldLevel) bool {
		return alphaSpaceRe.MatchString(fl.Field().String())
	})
}

func jsonName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" || name == "" {
		return fld.Name
	}
	return name
}

// Struct validates s with `validate` tags. It returns Errors or nil.
func Struct(s interface{}) error {
	return FromValidator(global.Struct(s))
}

// FromValidator converts validator.ValidationErrors into Errors. Other errors pass through.
func FromValidator(err error) error {
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	out := make(Errors, len(verrs))
	for _, fe := range verrs {
		if _, seen := out[fe.Field()]; seen {
			continue
		}
		out[fe.Field()] = message(fe)
	}
	return out
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "digits3", "digits6", "digits8", "digits16":
		n, _ := strconv.Atoi(strings.TrimPrefix(fe.Tag(), "digits"))
		return fmt.Sprintf("must be exactly %d digits", n)
	case "mmyy":
		return "must be in MM/YY format"
	case "alphaspace":
		return "must contain letters only"
	case "gt":
		return "must be greater than " + fe.Param()
	case "gte", "min":
		return "must be at least " + fe.Param()
	case "lte", "max":
		return "must be at most " + fe.Param()
	case "oneof":
		return "must be one of: " + fe.Param()
	case "uuid":
		return "must be a valid id"
	default:
		return "is invalid"
	}
}
