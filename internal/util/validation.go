package util

import (
	"regexp"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	Validate *validator.Validate

	initValidatorOnce sync.Once

	sqlIdentPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)
	sqlTypePattern  = regexp.MustCompile(`^[A-Za-z][A-Za-z ]*(\(\s*\d+\s*\))?$`)
)

// InitValidator builds the shared validator with the store's custom tags:
// sqlident for bare column names and sqltype for column type declarations.
func InitValidator() {
	initValidatorOnce.Do(func() {
		v := validator.New(validator.WithRequiredStructEnabled())
		v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
			return IsSQLIdent(fl.Field().String())
		})
		v.RegisterValidation("sqltype", func(fl validator.FieldLevel) bool {
			return sqlTypePattern.MatchString(fl.Field().String())
		})
		Validate = v
	})
}

func ValidateStruct(s any) error {
	InitValidator()
	return Validate.Struct(s)
}

// IsSQLIdent reports whether name can be used unquoted as a column name.
func IsSQLIdent(name string) bool {
	return sqlIdentPattern.MatchString(name)
}
