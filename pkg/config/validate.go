package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/zeroblk/zeroblk/internal/bytesize"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks cfg against the struct validation tags plus the
// constraints the tags cannot express. It fails fast: an invalid
// configuration never reaches the scrub core.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("configuration validation failed: field %s is invalid (%s)", fe.Namespace(), fe.Tag())
		}
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := validateBlockSize(cfg.Scrub.BlockSize); err != nil {
		return err
	}
	return nil
}

// validateBlockSize enforces the block sizes real filesystems use: a power
// of two between 512 bytes and 64Ki.
func validateBlockSize(bs bytesize.ByteSize) error {
	if bs < 512 || bs > 64*bytesize.KiB {
		return fmt.Errorf("block size %s out of range (512 to 64Ki)", bs)
	}
	if bs&(bs-1) != 0 {
		return fmt.Errorf("block size %s is not a power of two", bs)
	}
	return nil
}
