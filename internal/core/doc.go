// Package core runs the listing cleaning pipeline end to end.
//
// It sits between the pure table transforms in the cleaner and schema
// packages and the outer surfaces (CLI, HTTP trigger, scheduler). Nothing in
// here knows about HTTP or flags, so every entry point goes through the same
// [Service] methods.
//
// # Pipeline
//
// A run reads a delimited file into a [table.Table] and then applies, in order:
//
//  1. [cleaner.Cleaner.Clean] (duplicates, incomplete rows, host names,
//     zero-review rows, quote characters)
//  2. [schema.RemoveIndexLikeColumns], when enabled
//  3. [schema.ValidateColumns], when a schema is configured
//
// The output file is only written once every step has succeeded, and it is
// written to a temporary file that is renamed into place.
//
// # Object processing
//
// [Service.ProcessObject] is the storage-triggered flow: download from the raw
// bucket, run the pipeline, upload to the clean bucket under the same name and
// optionally load the cleaned rows into the warehouse. [Service.Sweep] applies
// it to every unprocessed object under a prefix.
//
// # Concurrency
//
// A run owns its table and is single-threaded. [RunLimiter] bounds how many
// runs the HTTP server executes at once.
package core
