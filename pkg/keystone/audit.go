package keystone

import (
	"github.com/bft-labs/keystone/pkg/lifecycle"
	"github.com/bft-labs/keystone/pkg/log"
)

// auditHandler writes one log line per delivered lifecycle event.
type auditHandler struct {
	logger log.Logger
}

func newAuditHandler(logger log.Logger) *auditHandler {
	return &auditHandler{logger: log.With(logger, log.String("subscriber", AuditSubscriber))}
}

func (h *auditHandler) HandleEvent(ev lifecycle.Event) error {
	h.logger.Info("lifecycle event",
		log.String("event_id", ev.ID.String()),
		log.Stringer("identity", ev.Identity),
		log.String("from", ev.PreviousString()),
		log.Stringer("to", ev.Current),
		log.Uint64("sequence", ev.Sequence),
		log.Time("at", ev.At),
		log.String("reason", ev.Reason),
	)
	return nil
}
