// Package state keeps per-conversation FSM state and data for Telegram bots.
//
// A Storage persists the state and the data map of a Key (chat and user).
// Three backends are provided: memory for tests and single-process bots, redis and
// postgres for everything else. Cache is the shared read cache used by layouts.
package state
