package backend

import (
	"context"
	"fmt"

	"bilancio/internal/analytics"
	"bilancio/internal/events"
	"bilancio/internal/log"
	gsheet "bilancio/internal/sheets/google"
	"bilancio/internal/storage"
)

// DefaultFactory implements Factory.
type DefaultFactory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create builds the engine and the optional integrations. A broker that
// cannot be reached at start-up is not fatal: the publisher keeps
// retrying lazily behind its circuit breaker.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (*Result, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	engine, err := f.createEngine(config.Engine)
	if err != nil {
		return nil, err
	}
	result := &Result{Engine: engine, Publisher: events.NoopPublisher{}}

	if config.AMQPURL != "" {
		pub := events.NewAMQPPublisher(config.AMQPURL, config.AMQPExchange, config.AMQPRoutingKey, f.logger)
		if err := pub.Connect(); err != nil {
			f.logger.Warn("AMQP broker unreachable, events will be retried on publish", log.FieldError, err)
		} else {
			f.logger.Info("Initialized AMQP publisher", "exchange", config.AMQPExchange, "routing_key", config.AMQPRoutingKey)
		}
		result.Publisher = pub
	}

	if config.GoogleSpreadsheetID != "" {
		client, err := gsheet.New(ctx, config.GoogleSpreadsheetID, gsheet.Credentials{
			JSON: config.GoogleServiceAccountJSON,
			File: config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			_ = result.Publisher.Close()
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		result.Sheets = client
		f.logger.Info("Initialized Google Sheets source", "spreadsheet_id", config.GoogleSpreadsheetID)
	}

	result.Cleanup = result.Publisher.Close

	f.logger.Info("Initialized analytics backend",
		log.FieldEngine, engine.Name(),
		"amqp_enabled", config.AMQPURL != "",
		"sheets_enabled", result.Sheets != nil)
	return result, nil
}

func (f *DefaultFactory) createEngine(t EngineType) (analytics.Engine, error) {
	switch t {
	case MemoryEngine:
		return analytics.MemoryEngine{}, nil
	case SQLiteEngine:
		return storage.NewEngine(f.logger), nil
	default:
		return nil, fmt.Errorf("unsupported analytics engine: %s", t)
	}
}
