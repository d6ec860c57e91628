// Package store provides SQLite-backed storage for the content tree.
//
// A Store owns the database. A Session is bound to one workspace and is the
// unit callers read and write through:
//   - Nodes: one row per node, keyed by (workspace, path), with properties
//     serialized into an opaque payload (internal/codec)
//   - Binary data: Binary property content, one row per value index
//     (internal/binstore)
//   - Reference edges: one row per resolved Reference/WeakReference value
//     (internal/refindex)
//   - Node types: user node type definitions (internal/nodetype)
//
// # Invariants
//
// Paths and identifiers are unique per workspace (UNIQUE constraints, so a
// concurrent insert of the same path fails with ALREADY_EXISTS instead of
// creating a duplicate).
//
// Every non-root node's parent exists when the node is inserted.
//
// Every multi-statement write runs in one transaction: the node row, its
// binary rows and its outgoing edges commit together or not at all.
//
// Subtree operations match path = P or path GLOB P || '/*', never a bare
// prefix, so /a never captures /ab. GLOB is case-sensitive where LIKE is
// not, so /a never captures /A either.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000 (default): Wait for locks up to 5 seconds
//   - foreign_keys=ON: Binary rows and edges are removed with their node
//
// A single open connection is used. Code holding a transaction must run
// every statement through that transaction.
package store
