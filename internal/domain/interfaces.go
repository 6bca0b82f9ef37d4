package domain

import (
	"context"
	"time"
)

// CategoryStore reads risk category reference data from persistent storage.
type CategoryStore interface {
	// CategoryIDsByName returns every stored category keyed by name. Names
	// absent from storage are simply missing from the map.
	CategoryIDsByName(ctx context.Context) (map[CategoryName]int64, error)
	ListCategories(ctx context.Context) ([]RiskCategory, error)
}

// ConditionLookup resolves pathological-condition identifiers to names.
type ConditionLookup interface {
	ConditionNames(ctx context.Context, ids []int64) ([]string, error)
}

// CategoryResolver yields the identifier of each of the four canonical categories.
type CategoryResolver interface {
	ResolveCategoryIDs(ctx context.Context) (CategoryIDs, error)
}

// ConfigManager defines the interface for configuration management
type ConfigManager interface {
	GetConfig() *Config
	GetDatabaseConfig() *DatabaseConfig
	GetServerConfig() *ServerConfig
	GetRiskConfig() *RiskConfig
	Reload() error
	Validate() error
	GetDatabaseConnectionString() string
	GetDatabaseURL() string
	GetRedisConnectionString() string
	IsProduction() bool
	IsDevelopment() bool
}

// Clock returns the current time; tests substitute a fixed instant.
type Clock func() time.Time
