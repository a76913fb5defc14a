package metaserver

import (
	"net/http"

	"github.com/claudefs/claudefs/internal/metadatanode"
	"github.com/claudefs/claudefs/internal/telemetry/logger"
	"github.com/claudefs/claudefs/internal/telemetry/metric"
)

// NewRouter builds the full request pipeline for a metadata node:
// request id tagging, panic recovery, and access logging wrap the
// handler's route table.
func NewRouter(node *metadatanode.Node, reg *metric.Registry, log logger.Logger) http.Handler {
	h := New(node, reg, log)
	return Chain(h, RequestID(), Recover(log), AccessLog(log))
}
