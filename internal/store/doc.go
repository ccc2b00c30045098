// Package store provides SQLite-backed durable key-value slots.
//
// The storefront keeps exactly one slot today: "user", the serialized user
// object written at login and read by the session gate. Values are opaque
// bytes; the store never interprets them.
//
// # Database Configuration
//
//   - WAL mode: concurrent reads during writes
//   - synchronous=NORMAL: balance durability/performance
//   - busy_timeout=5000: wait for locks up to 5 seconds
//   - a single connection, so ":memory:" databases behave like files
//
// Schema changes are applied through PRAGMA user_version migrations.
package store
