// Package logsink emits events as structured EVENT_JSON log lines, the same
// shape the original on-chain emitter produced. Indexers that tail logs can
// consume these without a broker.
package logsink

import (
	"context"
	"log/slog"

	id "bindery/pkg/domain"
	audit "bindery/pkg/platform/audit"
)

type Store struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Store {
	return &Store{logger: logger}
}

func (s *Store) Append(ctx context.Context, event audit.Event) error {
	payload, err := audit.MarshalEnvelope(event)
	if err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "EVENT_JSON:"+string(payload))
	return nil
}

// ListByAccount is unsupported on a log sink; events flow one way.
func (s *Store) ListByAccount(context.Context, id.AccountID) ([]audit.Event, error) {
	return nil, nil
}
