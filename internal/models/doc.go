// Package models defines the persisted entities of syncx and the repository interface they are stored through.
//
//   - [SyncRun] : one sync pass against a destination, with the size of the change applied
//
// All persistent entities implement [Model], providing an ID, timestamps and validation.
// The [Repository] interface defines the CRUD operations used by the database layer.
package models
