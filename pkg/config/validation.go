package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// getValidator returns the shared validator with the custom tags registered.
func getValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		_ = validate.RegisterValidation("pow2", validatePowerOfTwo)
		_ = validate.RegisterValidation("filemode", validateFileMode)
	})
	return validate
}

// Validate checks cfg against the struct tags and the cross-field rules.
//
// Field errors are reported as "Config.Device.Workers: failed 'lte' (1024)"
// so that the offending key and rule are both visible.
func Validate(cfg *Config) error {
	if err := getValidator().Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msg := fmt.Sprintf("%s: failed '%s'", fe.Namespace(), fe.Tag())
				if fe.Param() != "" {
					msg += fmt.Sprintf(" (%s)", fe.Param())
				}
				msgs = append(msgs, msg)
			}
			return errors.New(strings.Join(msgs, "; "))
		}
		return err
	}

	geom := cfg.Device.Geometry()
	if err := geom.Validate(); err != nil {
		return fmt.Errorf("device: %w", err)
	}
	if cfg.Metrics.Enabled && cfg.API.IsEnabled() && cfg.Metrics.Port == cfg.API.Port {
		return fmt.Errorf("metrics port %d conflicts with api port", cfg.Metrics.Port)
	}

	return nil
}

func validatePowerOfTwo(fl validator.FieldLevel) bool {
	n := fl.Field().Uint()
	return n != 0 && n&(n-1) == 0
}

func validateFileMode(fl validator.FieldLevel) bool {
	_, err := parseFileMode(fl.Field().String())
	return err == nil
}

// parseFileMode parses an octal permission string such as "0600" or "644".
func parseFileMode(s string) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(s), 8, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid file mode %q: %w", s, err)
	}
	if v > 0o777 {
		return 0, fmt.Errorf("invalid file mode %q: only permission bits are allowed", s)
	}
	return uint32(v), nil
}
