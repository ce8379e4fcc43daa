// Package validate exposes a shared struct validator instance.
package validate

import (
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	once sync.Once
	v    *validator.Validate
)

// Validate returns the shared validator.
func Validate() *validator.Validate {
	once.Do(func() {
		v = validator.New()
	})
	return v
}
