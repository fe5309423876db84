package stores

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

// Preference values accepted by Open.
const (
	PreferAuto = "auto"
	PreferXML  = "xml"
	PreferSQL  = "sql"
)

// OpenOptions configures Open.
type OpenOptions struct {
	XML XMLConfig

	// SQL is nil when the relational backend is disabled.
	SQL *SQLConfig

	// Prefer is auto, xml or sql. auto selects SQL when it connects.
	Prefer string

	Logger   zerolog.Logger
	Observer Observer
	Tracer   trace.Tracer
}

// Open builds both stores and a selector over them. A relational store that
// cannot connect does not fail Open unless SQL was explicitly preferred; it
// stays attached and reconnects lazily if selected later.
func Open(ctx context.Context, opts OpenOptions) (*Selector, error) {
	xmlCfg := opts.XML
	xmlCfg.Logger = opts.Logger
	xmlStore, err := NewXMLStore(xmlCfg)
	if err != nil {
		return nil, err
	}

	prefer := opts.Prefer
	if prefer == "" {
		prefer = PreferAuto
	}

	initial := BackendXML
	var sqlStore *SQLStore
	if opts.SQL != nil {
		sqlCfg := *opts.SQL
		sqlCfg.Logger = opts.Logger
		sqlCfg.Observer = opts.Observer
		sqlCfg.Tracer = opts.Tracer

		sqlStore, err = NewSQLStore(sqlCfg)
		if err != nil {
			if prefer == PreferSQL {
				return nil, err
			}
			opts.Logger.Warn().Err(err).Msg("SQL store unavailable, using XML")
		}
	}

	if sqlStore != nil && prefer != PreferXML {
		if err := sqlStore.ConnectWithRetry(ctx); err != nil {
			if prefer == PreferSQL {
				_ = sqlStore.Close()
				return nil, fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
			}
			opts.Logger.Warn().Err(err).Msg("SQL store not reachable, using XML")
		} else {
			initial = BackendSQL
		}
	}
	if prefer == PreferSQL && sqlStore == nil {
		return nil, fmt.Errorf("%w: sql backend is disabled", ErrBackendUnavailable)
	}

	return NewSelector(SelectorConfig{
		XML:      xmlStore,
		SQL:      sqlStore,
		Initial:  initial,
		Logger:   opts.Logger,
		Observer: opts.Observer,
		Tracer:   opts.Tracer,
	})
}
