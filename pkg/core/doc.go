// Package core defines the shared language of the leapgraph system.
//
// This package contains:
//   - Schema declarations (EntityType, RelationType, BridgeRule, SourceConfig)
//   - Graph instances (Node, Edge, Properties, Value)
//   - Build results and the run history Store interface
//   - The error taxonomy (ConfigurationError, IdentityConflictError,
//     UnresolvedReferenceError, SourceError)
//
// The Golden Rule: pkg/core imports ONLY stdlib.
// All other packages depend on core, not the reverse.
package core
