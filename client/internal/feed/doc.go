// Package feed turns the live event stream into client state.
//
// The Reducer applies each DomainEvent at most once per dedupe key: the
// Ledger remembers every key for the session, the Buffer keeps the last few
// notifications for transient badges, and one toast intent per applied
// event goes to the Outbox. An EffectRunner drains the outbox on its own
// goroutine after a short delay and skips an immediate repeat of the last
// announced key.
//
// The View reconciles a REST snapshot with the stream. While Loading it
// queues list mutations; LoadSnapshot installs the baseline and replays the
// queue in arrival order. Once Ready, order-placed inserts if absent and
// status-changed updates in place, ignoring unknown order ids. Progress and
// Countdown are derived projections that never change order status.
package feed
