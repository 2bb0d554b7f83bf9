// Package backend assembles the analytics engine and the optional
// integrations selected by configuration.
package backend

import (
	"context"

	"bilancio/internal/analytics"
	"bilancio/internal/events"
	"bilancio/internal/sheets"
)

// CleanupFunc releases resources held by a Result.
type CleanupFunc func() error

// Result is everything the dataset service needs from the environment.
// Sheets is nil when no spreadsheet is configured.
type Result struct {
	Engine    analytics.Engine
	Publisher events.Publisher
	Sheets    sheets.Reader
	Cleanup   CleanupFunc
}

// Factory builds a Result from configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*Result, error)
}

// Config holds the settings the factory needs.
type Config struct {
	Engine EngineType

	// AMQP, disabled when URL is empty
	AMQPURL        string
	AMQPExchange   string
	AMQPRoutingKey string

	// Google Sheets, disabled when SpreadsheetID is empty
	GoogleSpreadsheetID      string
	GoogleServiceAccountJSON string
	GoogleServiceAccountFile string
}

// EngineType names an analytics engine.
type EngineType string

const (
	MemoryEngine EngineType = "memory"
	SQLiteEngine EngineType = "sqlite"
)

// String implements fmt.Stringer
func (et EngineType) String() string {
	return string(et)
}

// IsValid returns true if the engine type is known.
func (et EngineType) IsValid() bool {
	switch et {
	case MemoryEngine, SQLiteEngine:
		return true
	default:
		return false
	}
}
