package httpapi

import (
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"candrive/internal/drive"
)

var registerOnce sync.Once

// registerValidators adds the grade rule and reports fields by json name.
func registerValidators() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "" || name == "-" {
				return f.Name
			}
			return name
		})
		_ = v.RegisterValidation("grade", validGrade)
	})
}

func validGrade(fl validator.FieldLevel) bool {
	return drive.ValidGrade(drive.NormalizeGrade(fl.Field().String()))
}
