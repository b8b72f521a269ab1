// Package entity keeps a persistent registry of the number entities the
// bridge exports.
//
// Each record mirrors the state the bridge last published for one
// (camera, option) pair, keyed by its unique ID. Observed values are
// appended to a per-entity history so the REST API can show recent
// changes without a time-series database.
//
// # Storage
//
// Records live in the number_entities table and history in
// number_value_history (see the migrations package). Deleting a record
// removes its history.
//
// # Caching
//
// Registry wraps a Repository with an in-memory cache loaded by
// RefreshCache. Reads are served from the cache and always return deep
// copies.
package entity
