// Package ir provides the shared domain types of the content repository.
//
// This package contains type definitions only. All other internal packages
// import ir; ir imports nothing internal. This keeps the value model and the
// error taxonomy the foundational layer with no circular dependencies.
//
// Key constraints:
//   - Value is sealed; every property value is one of the types in value.go
//   - text-like property types (Name, Path, URI, Reference, WeakReference)
//     are carried as StringValue
//   - Binary values carry bytes on the way in and their length on the way out
//   - errors crossing package boundaries are *RepositoryError
package ir
