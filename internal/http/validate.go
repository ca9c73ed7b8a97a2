package http

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"voice-808/internal/domain"
	"voice-808/internal/tts"
)

var registerOnce struct {
	sync.Once
	err error
}

// registerValidators adds the "voice" and "bcryptlen" tags to gin's binding
// engine. bcryptlen bounds a string by bytes, which is what bcrypt accepts.
func registerValidators() error {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			registerOnce.err = errors.New("unexpected binding validator engine")
			return
		}
		if err := v.RegisterValidation("voice", func(fl validator.FieldLevel) bool {
			return tts.KnownVoice(fl.Field().String())
		}); err != nil {
			registerOnce.err = err
			return
		}
		registerOnce.err = v.RegisterValidation("bcryptlen", func(fl validator.FieldLevel) bool {
			return len(fl.Field().String()) <= domain.MaxPasswordBytes
		})
	})
	return registerOnce.err
}

// fieldErrors returns the validator failures wrapped in err, if any.
func fieldErrors(err error) []validator.FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	return verrs
}

func unsupportedVoice(fe validator.FieldError) string {
	return fmt.Sprintf("Unsupported voice: %v", fe.Value())
}
