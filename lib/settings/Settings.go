package settings

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type DBSettings struct {
	Filename string
	Host     string
	Port     string
	Database string
	User     string
	Password string
	Charset  string
}

type ThrottleSettings struct {
	ChangeMs       int `validate:"gte=0"`
	SaveMs         int `validate:"gte=0"`
	RefreshFlagged bool
}

type IdenticonSettings struct {
	Size      int      `validate:"min=1,max=64"`
	PixelSize int      `validate:"min=1,max=256"`
	Palette   []string `validate:"min=2,dive,omitempty,hexcolor"`
	CacheSize int      `validate:"min=1"`
}

type PaginationSettings struct {
	MovePolicy   string `validate:"oneof=once ignore"`
	HiddenPrefix string `validate:"required"`
}

type Settings struct {
	Throttle         ThrottleSettings
	Identicon        IdenticonSettings
	Pagination       PaginationSettings
	Timezone         string `validate:"required"`
	WriteConcurrency int    `validate:"min=1,max=64"`
	ResetOnClose     bool
	CustomTokens     map[string]string
	LogLevel         string `validate:"oneof=DEBUG INFO WARN ERROR"`

	DBType     IDBType `validate:"required"`
	DBSettings *DBSettings

	GitVersion string
}

func (t ThrottleSettings) ChangeDelay() time.Duration {
	return time.Duration(t.ChangeMs) * time.Millisecond
}

func (t ThrottleSettings) SaveDelay() time.Duration {
	return time.Duration(t.SaveMs) * time.Millisecond
}

// Location resolves Timezone; "Local" is the machine's zone.
func (s *Settings) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", s.Timezone, err)
	}
	return loc, nil
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the decoded settings. Token names of custom tokens must look
// like placeholders.
func (s *Settings) Validate() error {
	if err := validate.Struct(s); err != nil {
		return err
	}
	for name, expr := range s.CustomTokens {
		if !strings.HasPrefix(name, "[") || !strings.HasSuffix(name, "]") {
			return fmt.Errorf("custom token %q must be written as [name]", name)
		}
		if strings.TrimSpace(expr) == "" {
			return fmt.Errorf("custom token %q has no expression", name)
		}
	}
	if _, err := s.Location(); err != nil {
		return err
	}
	return nil
}
