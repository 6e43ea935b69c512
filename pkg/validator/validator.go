package validator

import (
	"regexp"

	"github.com/go-playground/validator/v10"
)

// voiceNameRe restricts enrolled voice names to something safe to embed in
// object storage keys and download paths.
var voiceNameRe = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9 _.-]{0,63}$`)

// CustomValidator implements echo.Validator using go-playground/validator
type CustomValidator struct {
	v *validator.Validate
}

// New creates a new CustomValidator instance
func New() *CustomValidator {
	v := validator.New()
	_ = v.RegisterValidation("voicename", func(fl validator.FieldLevel) bool {
		return voiceNameRe.MatchString(fl.Field().String())
	})
	return &CustomValidator{v: v}
}

// Validate performs struct validation
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.v.Struct(i)
}

// ValidVoiceName reports whether name is acceptable as a voice identifier.
// Exposed for the WebSocket path, which validates fields outside Echo.
func ValidVoiceName(name string) bool {
	return voiceNameRe.MatchString(name)
}
