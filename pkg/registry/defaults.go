package registry

import (
	"github.com/strandworks/strand/pkg/nodes/httprequest"
	"github.com/strandworks/strand/pkg/nodes/log"
	"github.com/strandworks/strand/pkg/nodes/transform"
	"github.com/strandworks/strand/pkg/nodes/trigger"
	"github.com/strandworks/strand/pkg/nodes/wait"
	"github.com/strandworks/strand/pkg/tools"
)

// RegisterDefaults wires the built-in node factories and tools. The
// run_workflow tool needs an executing runner and is registered separately by
// the binaries once a service layer exists.
func RegisterDefaults(r *Registry) {
	r.RegisterNode(trigger.NewWebhookFactory())
	r.RegisterNode(trigger.NewScheduleFactory())
	r.RegisterNode(trigger.NewManualFactory())
	r.RegisterNode(transform.NewFactory())
	r.RegisterNode(httprequest.NewFactory())
	r.RegisterNode(log.NewFactory())
	r.RegisterNode(wait.NewFactory())

	r.RegisterTool(tools.NewHTTPRequestTool())
	r.RegisterTool(tools.NewRememberTool())
}
