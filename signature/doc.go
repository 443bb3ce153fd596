// Package signature decodes and encodes CLI signature blobs.
//
// A signature blob describes a type, a member, a local variable block, a
// generic instantiation, a custom attribute argument list or a constant. The
// Decoder turns blobs into a tree of TypeReference values:
//
//   - primitives are shared singletons of a TypeSystem
//   - Class and ValueType tokens become DefOrRefType lookup keys that resolve
//     their names on demand through a Resolver
//   - composite tags (Ptr, ByRef, Pinned, SzArray, Array, GenericInst, FnPtr,
//     custom modifiers) wrap exactly one child tree
//   - Var and MVar resolve against an explicit GenericContext, or become
//     unresolved GenericParamType placeholders
//
// The Append*/Encode* functions perform the inverse transformation and are
// used to create blobs for rows built in memory.
package signature
