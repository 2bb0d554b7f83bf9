package backend

import (
	"fmt"

	"bilancio/internal/config"
)

// FromAppConfig converts the application config to backend config.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	engine := EngineType(appConfig.AnalyticsEngine)
	if !engine.IsValid() {
		return Config{}, fmt.Errorf("invalid analytics engine in config: %s", appConfig.AnalyticsEngine)
	}

	return Config{
		Engine: engine,

		AMQPURL:        appConfig.AMQPURL,
		AMQPExchange:   appConfig.AMQPExchange,
		AMQPRoutingKey: appConfig.AMQPRoutingKey,

		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
	}, nil
}

// Validate validates the backend configuration.
func (c Config) Validate() error {
	if !c.Engine.IsValid() {
		return fmt.Errorf("invalid analytics engine: %s", c.Engine)
	}
	if c.AMQPURL != "" && c.AMQPExchange == "" {
		return fmt.Errorf("AMQP exchange is required when AMQP URL is set")
	}
	if c.GoogleSpreadsheetID != "" && c.GoogleServiceAccountJSON == "" && c.GoogleServiceAccountFile == "" {
		return fmt.Errorf("service account credentials are required when a spreadsheet id is set")
	}
	return nil
}

// EngineTypes returns all valid engine types.
func EngineTypes() []EngineType {
	return []EngineType{MemoryEngine, SQLiteEngine}
}

// EngineTypeStrings returns all valid engine type strings.
func EngineTypeStrings() []string {
	types := EngineTypes()
	strs := make([]string, len(types))
	for i, t := range types {
		strs[i] = t.String()
	}
	return strs
}
