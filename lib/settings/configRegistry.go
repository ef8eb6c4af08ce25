package settings

import (
	"strings"

	"github.com/spf13/viper"
)

const (
	ThrottleChangeMs       = "throttle.changeMs"
	ThrottleSaveMs         = "throttle.saveMs"
	ThrottleRefreshFlagged = "throttle.refreshFlagged"

	IdenticonSize      = "identicon.size"
	IdenticonPixelSize = "identicon.pixelSize"
	IdenticonPalette   = "identicon.palette"
	IdenticonCacheSize = "identicon.cacheSize"

	PaginationMovePolicy   = "pagination.movePolicy"
	PaginationHiddenPrefix = "pagination.hiddenPrefix"

	Timezone         = "timezone"
	WriteConcurrency = "writeConcurrency"
	ResetOnClose     = "resetOnClose"
	CustomTokens     = "customTokens"
	Loglevel         = "loglevel"

	DBType             = "dbType"
	DBSettingsHost     = "dbSettings.host"
	DBSettingsPort     = "dbSettings.port"
	DBSettingsUser     = "dbSettings.user"
	DBSettingsPassword = "dbSettings.password"
	DBSettingsDatabase = "dbSettings.database"
	DBSettingsFilename = "dbSettings.filename"
	DBSettingsCharset  = "dbSettings.charset"
)

type ConfigKey struct {
	Key         string
	Default     any
	Description string
}

const envPrefix = "LASTUPDATED"

func EnvVar(key string) string {
	return envPrefix + "_" + strings.ToUpper(
		strings.ReplaceAll(key, ".", "_"),
	)
}

var Registry = []ConfigKey{
	// ---------------------------------------------------------------------
	// Throttle
	// ---------------------------------------------------------------------
	{Key: ThrottleChangeMs, Default: 5000, Description: "Debounce window after a change, in ms"},
	{Key: ThrottleSaveMs, Default: 0, Description: "Delay of the save pass, in ms"},
	{
		Key:         ThrottleRefreshFlagged,
		Default:     true,
		Description: "Keep refreshing the timestamp of scheduled artboards",
	},

	// ---------------------------------------------------------------------
	// Identicon
	// ---------------------------------------------------------------------
	{Key: IdenticonSize, Default: 8, Description: "Identicon grid size"},
	{Key: IdenticonPixelSize, Default: 10, Description: "Pixels per identicon cell"},
	{
		Key:         IdenticonPalette,
		Default:     []string{"", "#ffffff", "#000000"},
		Description: "Colors of cell values 0, 1 and 2, empty is transparent",
	},
	{Key: IdenticonCacheSize, Default: 64, Description: "Rendered identicons kept in memory"},

	// ---------------------------------------------------------------------
	// Pagination
	// ---------------------------------------------------------------------
	{
		Key:         PaginationMovePolicy,
		Default:     "once",
		Description: "Pagination trigger of moved artboards (once|ignore)",
	},
	{
		Key:         PaginationHiddenPrefix,
		Default:     "-",
		Description: "Name prefix of artboards left out of nodash page numbers",
	},

	// ---------------------------------------------------------------------
	// Engine
	// ---------------------------------------------------------------------
	{Key: Timezone, Default: "Local", Description: "Zone used to format timestamps"},
	{Key: WriteConcurrency, Default: 4, Description: "Parallel placeholder writes per pass"},
	{Key: ResetOnClose, Default: true, Description: "Drop engine state when a document closes"},
	{
		Key:         CustomTokens,
		Default:     map[string]string{},
		Description: "Additional change-driven tokens, token -> expression",
	},
	{Key: Loglevel, Default: "INFO", Description: "Log level"},

	// ---------------------------------------------------------------------
	// Database
	// ---------------------------------------------------------------------
	{Key: DBType, Default: MEMORY, Description: "Database type (memory|sqlite|postgres|mysql)"},
	{Key: DBSettingsHost, Default: "", Description: "Database host"},
	{Key: DBSettingsPort, Default: "", Description: "Database port"},
	{Key: DBSettingsUser, Default: "", Description: "Database user"},
	{Key: DBSettingsPassword, Default: "", Description: "Database password"},
	{Key: DBSettingsDatabase, Default: "", Description: "Database name"},
	{
		Key:         DBSettingsFilename,
		Default:     "var/lastupdated.db",
		Description: "SQLite database filename",
	},
	{Key: DBSettingsCharset, Default: "utf8mb4", Description: "Database charset (only relevant for MySQL)"},
}

func ApplyRegistryDefaults(v *viper.Viper) {
	for _, c := range Registry {
		v.SetDefault(c.Key, c.Default)
	}
}
