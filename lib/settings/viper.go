package settings

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// NewViper layers the registry defaults, the JSON config and the LASTUPDATED_
// environment. path selects a config file explicitly; without it settings.json
// is looked up in the working directory and may be missing. A non-empty
// jsonStr replaces any file.
func NewViper(path, jsonStr string) (*viper.Viper, error) {
	v := viper.New()
	ApplyRegistryDefaults(v)

	v.SetConfigType("json")
	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	switch {
	case jsonStr != "":
		if err := v.ReadConfig(strings.NewReader(jsonStr)); err != nil {
			return nil, err
		}
	case path != "":
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	default:
		v.SetConfigName("settings")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, err
			}
		}
	}
	return v, nil
}

func ReadConfig(path, jsonStr string) (*Settings, error) {
	v, err := NewViper(path, jsonStr)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// FromViper decodes and validates the settings held by v.
func FromViper(v *viper.Viper) (*Settings, error) {
	dbTypeToUse, err := ParseDBType(v.GetString(DBType))
	if err != nil {
		return nil, err
	}

	customTokens := v.GetStringMapString(CustomTokens)
	if customTokens == nil {
		customTokens = map[string]string{}
	}

	s := &Settings{
		Throttle: ThrottleSettings{
			ChangeMs:       v.GetInt(ThrottleChangeMs),
			SaveMs:         v.GetInt(ThrottleSaveMs),
			RefreshFlagged: v.GetBool(ThrottleRefreshFlagged),
		},
		Identicon: IdenticonSettings{
			Size:      v.GetInt(IdenticonSize),
			PixelSize: v.GetInt(IdenticonPixelSize),
			Palette:   v.GetStringSlice(IdenticonPalette),
			CacheSize: v.GetInt(IdenticonCacheSize),
		},
		Pagination: PaginationSettings{
			MovePolicy:   strings.ToLower(v.GetString(PaginationMovePolicy)),
			HiddenPrefix: v.GetString(PaginationHiddenPrefix),
		},
		Timezone:         v.GetString(Timezone),
		WriteConcurrency: v.GetInt(WriteConcurrency),
		ResetOnClose:     v.GetBool(ResetOnClose),
		CustomTokens:     customTokens,
		LogLevel:         strings.ToUpper(v.GetString(Loglevel)),

		DBType: dbTypeToUse,
		DBSettings: &DBSettings{
			Host:     v.GetString(DBSettingsHost),
			Port:     v.GetString(DBSettingsPort),
			Database: v.GetString(DBSettingsDatabase),
			User:     v.GetString(DBSettingsUser),
			Password: v.GetString(DBSettingsPassword),
			Charset:  v.GetString(DBSettingsCharset),
			Filename: v.GetString(DBSettingsFilename),
		},
		GitVersion: GitVersion(),
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}
