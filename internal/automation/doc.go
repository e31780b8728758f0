// Package automation evaluates user-authored rules against
// standardized events and dispatches their actions.
//
// # Key Types
//
//   - Automation: persisted rule (condition tree + temporal conditions
//     + actions)
//   - Catalog: the static fact catalog governing which context paths
//     and operators rule authors may use
//   - Engine: recursive short-circuiting evaluator with historical
//     window correlation against the event store
//   - Dispatcher: executes matched actions in order with per-action
//     failure isolation
//   - Registry: cached CRUD over the automation repository with
//     save-time validation
//
// Configuration defects (a group defining neither all nor any, a
// count-type temporal condition without an expected count, a template
// failing static checks) are rejected at save time and never surface
// during evaluation. Evaluation itself never panics on author-supplied
// values: failed coercions make the condition false.
//
// Temporal lookups fail closed. If the event store cannot answer a
// window query the automation does not fire and the error reaches the
// pipeline for logging.
//
// # Thread Safety
//
// Engine and Dispatcher hold no per-evaluation state and serve
// concurrent evaluations. Registry guards its cache with a RWMutex and
// returns deep copies.
package automation
