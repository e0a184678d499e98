// Package tracker records the lifecycle of notification deliveries and keeps
// each delivery's engagement score current as events arrive.
//
// Status transitions follow the progression scheduled, sent, then delivered
// or failed, then read, then clicked, with dismissal allowed from any
// non-terminal state. Transitions are monotonic: out-of-order events never
// move a delivery backward. Applied events are published on a buffered
// channel so failure alerting and analytics can observe deliveries without
// per-event callbacks.
//
// Two store implementations are provided: MemoryStore for tests and
// single-process runs, RedisStore for shared deployments.
package tracker
