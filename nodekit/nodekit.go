// Package nodekit ships the small set of illustrative node kinds the
// engine's scenarios exercise: a start trigger, a pure arithmetic node, a
// pure cast, an impure sink that logs, and a tool-calling node that drives
// sub-contexts. None of this is a node catalog; it exists to give
// registry.Registry something real to dispatch to in tests and examples.
//
// Grounded on oriys-nova's internal/triggers Connector implementations
// (filesystem.go, kafka.go, rabbitmq.go, redis_stream.go): one narrow
// struct per capability, each registered under a distinct kind string,
// rather than one do-everything implementation switching on type.
// registry.Logic plays the role Connector plays there.
package nodekit

import "github.com/evalgo/flowengine/registry"

// Register pushes every illustrative kind into reg under its canonical
// name, for callers (tests, cmd/flowengine examples) that want the whole
// set rather than hand-picking kinds.
func Register(reg *registry.Registry) {
	reg.Push(
		registry.Registration{Kind: "start", Factory: func() registry.Logic { return &StartLogic{} }},
		registry.Registration{Kind: "add", Factory: func() registry.Logic { return &AddLogic{} }},
		registry.Registration{Kind: "cast_string", Factory: func() registry.Logic { return &CastStringLogic{} }},
		registry.Registration{Kind: "print", Factory: func() registry.Logic { return &PrintLogic{} }},
		registry.Registration{Kind: "tool_call", Factory: func() registry.Logic { return &ToolCallLogic{} }},
	)
}
