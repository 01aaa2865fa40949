package cmd

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"

	"regcov.dev/pkg/regcov/internal/adapter"
	"regcov.dev/pkg/regcov/internal/controller"
	"regcov.dev/pkg/regcov/internal/domain"
	m "regcov.dev/pkg/regcov/internal/model"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "regcov"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	cacheRootFlagName   = "cache-root"
	verboseFlagName     = "verbose"
	parallelFlagName    = "parallel"
	propagationFlagName = "propagation"
	matchFlagName       = "match"
	formatFlagName      = "format"
	includeFlagName     = "include"
	excludeFlagName     = "exclude"
	debugFlagName       = "debug"
	ownerUnitFlagName   = "owner-unit"

	cacheRootKey        = "cache.root"
	cacheKindKey        = "cache.kind"
	cacheBackendKey     = "cache.backend"
	propagationKey      = "select.propagation"
	matchKey            = "select.match"
	parallelKey         = "select.parallel"
	rerunFailingKey     = "select.rerun_failing"
	includeKey          = "select.include"
	excludeKey          = "select.exclude"
	formatKey           = "select.format"
	hashNormalizeKey    = "hash.normalize"
	hashCacheKey        = "hash.cache"
	resourcesRootKey    = "resources.root"
	coverageSnapshotKey = "coverage.snapshot"
	debugKey            = "debug"
	ownerUnitKey        = "select.owner_unit"

	backendFile   = "file"
	backendSQLite = "sqlite"

	defaultCacheRoot     = ".regcov"
	defaultCacheBackend  = backendFile
	defaultRerunFailing  = true
	defaultHashNormalize = true
	defaultHashCache     = false
	defaultResourcesRoot = "."
	defaultSnapshotName  = "coverage.snap"

	envPrefix = "REGCOV"

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".regcov.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults()

	// Without a readable config file defaults, env and flags stay in effect.
	_ = viper.ReadInConfig()
}

func setDefaults() {
	viper.SetDefault(configVersionKey, currentConfigVersion)
	viper.SetDefault(cacheRootKey, defaultCacheRoot)
	viper.SetDefault(cacheKindKey, adapter.DefaultRecordKind)
	viper.SetDefault(cacheBackendKey, defaultCacheBackend)
	viper.SetDefault(propagationKey, string(domain.PropagationWidened))
	viper.SetDefault(matchKey, string(domain.MatchSegment))
	viper.SetDefault(parallelKey, domain.DefaultHashWorkers)
	viper.SetDefault(rerunFailingKey, defaultRerunFailing)
	viper.SetDefault(includeKey, []string{})
	viper.SetDefault(excludeKey, []string{})
	viper.SetDefault(formatKey, string(controller.FormatPlain))
	viper.SetDefault(hashNormalizeKey, defaultHashNormalize)
	viper.SetDefault(hashCacheKey, defaultHashCache)
	viper.SetDefault(resourcesRootKey, defaultResourcesRoot)
	viper.SetDefault(coverageSnapshotKey, "")
	viper.SetDefault(debugKey, false)
	viper.SetDefault(ownerUnitKey, "")

	// Logging defaults (used by config/env and as fallbacks for flags).
	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)
}

// cacheRoot returns the configured cache root.
func cacheRoot() m.Path {
	root := strings.TrimSpace(viper.GetString(cacheRootKey))
	if root == "" {
		root = defaultCacheRoot
	}

	return m.Path(root)
}

// snapshotPath returns the configured coverage snapshot, defaulting to a
// file inside the cache root.
func snapshotPath() m.Path {
	if path := strings.TrimSpace(viper.GetString(coverageSnapshotKey)); path != "" {
		return m.Path(path)
	}

	return m.Path(filepath.Join(string(cacheRoot()), defaultSnapshotName))
}

// selectorConfig translates viper values into a domain.SelectorConfig.
func selectorConfig() (domain.SelectorConfig, error) {
	propagation, err := domain.ParsePropagation(viper.GetString(propagationKey))
	if err != nil {
		return domain.SelectorConfig{}, err
	}

	match, err := domain.ParseMatchMode(viper.GetString(matchKey))
	if err != nil {
		return domain.SelectorConfig{}, err
	}

	parallel := viper.GetInt(parallelKey)
	if parallel < 1 {
		return domain.SelectorConfig{}, fmt.Errorf("%s must be at least 1, got %d", parallelKey, parallel)
	}

	ownerUnit, err := domain.ParseOwnerUnit(viper.GetString(ownerUnitKey))
	if err != nil {
		return domain.SelectorConfig{}, err
	}

	return domain.SelectorConfig{
		Propagation: propagation,
		Match:       match,
		HashWorkers: parallel,
		OwnerUnit:   ownerUnit,
	}, nil
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
