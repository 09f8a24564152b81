// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package storage provides the storage abstraction layer for the chunk
// pipeline.
//
// This package defines the interfaces that decouple the pipeline from any
// particular database. A run reads posts and comments through a RowSource
// and writes chunks through a ChunkSink; the two sides are independent
// resources and may point at different backends.
//
// # Drivers
//
// Concrete implementations live in subpackages, one per backend:
//
//   - sqldb: PostgreSQL and SQLite, both source and sink
//   - badger: embedded BadgerDB, both source and sink
//   - mongo: MongoDB, both source and sink
//   - dynamo: DynamoDB, sink only
//
// The top-level package selects an implementation by driver name; see
// OpenSource and OpenSink there. Backend constructors return their
// concrete types; callers that want the abstraction hold the results as
// these interfaces, and test fakes stand in without modification.
//
// # Batch Semantics
//
// A ChunkSink buffers staged chunks until Commit. Every implementation
// guarantees that a successful Commit made all chunks staged since the
// previous Commit durable, and that a chunk is never durable before the
// Commit that covers it. After a failed Commit the sink refuses further
// writes; the records durable at that point are exactly those covered by
// earlier successful commits.
//
// # Context Support
//
// All operations accept context.Context for cancellation and timeout
// support. Pass context.Background() for operations without specific
// timeout requirements.
package storage
