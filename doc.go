// Package fieldbus provides a reactive component framework where independent
// processing units communicate exclusively through typed, keyed events routed
// by a central dispatcher.
//
// # Architecture
//
// Components declare input and output fields bound to string event keys. A
// single application-owned queue is the only structure shared across
// goroutines: outputs push events onto it, a single dispatcher goroutine
// drains it and delivers each event to every subscribed input field, waking
// the runners whose trigger fields matched.
//
//	┌────────────┐  Push   ┌───────────────┐  deliver  ┌────────────┐
//	│ Output     ├────────►│ shared queue  ├──────────►│ Input      │
//	│ field      │         │ (MPSC, FIFO)  │  + wake   │ fields     │
//	└────────────┘         └───────────────┘           └─────┬──────┘
//	                                                         │ Switch
//	                                                   ┌─────▼──────┐
//	                                                   │  Runner    │
//	                                                   │  process() │
//	                                                   └────────────┘
//
// Input fields are double-buffered: the dispatcher stages incoming events
// while a component processes a frozen snapshot; the runner switches buffers
// between processing steps, so a component's view of its inputs never changes
// mid-step.
//
// # Component kinds
//
// Every component has exactly one scheduling kind:
//
//   - Iterating: processed at a fixed target rate (frames per second).
//   - EventDriven: processed once per wake of any trigger-flagged field;
//     multiple events arriving before the wake coalesce into one step.
//   - Bare: never scheduled by the framework; interacts through unmanaged
//     input queues or goroutines it owns itself.
//
// # Packages
//
//   - event: event envelope and well-known framework keys
//   - field: input fields (Latest, Buffer, History, LatestBy, InputQueue)
//     and output fields (Output, AveragingOutput)
//   - component: component contracts, field declaration, registry
//   - runner: kind-specific scheduling loops and failure containment
//   - app: application lifecycle, dispatcher and graceful shutdown
//   - config: framework timing configuration
//   - errors: classified error handling
//   - metric: metric event payloads and Prometheus instrumentation
//   - bridge: NATS bridge component connecting the bus to NATS subjects
//   - pkg/queue: generic unbounded multi-producer queue
//
// # Usage
//
//	a, err := app.New(config.Default())
//	if err != nil {
//		log.Fatal(err)
//	}
//	if err := a.Register(source, sink); err != nil {
//		log.Fatal(err)
//	}
//	if err := a.Start(); err != nil {
//		log.Fatal(err)
//	}
//	defer a.Stop()
package fieldbus
