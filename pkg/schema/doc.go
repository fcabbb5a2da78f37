/*
Package schema provides a caching repository for JSON-schema-like documents.

The repository resolves schema URLs to local files through a SchemaSource,
parses them, recursively expands $ref references and caches the fully
expanded result per URL. Missing or malformed schemas resolve to nil rather
than failing the caller: nil means "no schema to validate against".
*/
package schema
