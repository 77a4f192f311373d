// Package digest computes stable content hashes of entity tables and input
// batches.
//
// Hashes are SHA-256 over a canonical JSON rendering with a versioned
// domain prefix. Two tables with the same ordered contents hash the same on
// every platform, which is what lets a journal check replay determinism.
//
// Canonical form:
//   - object keys sorted by UTF-16 code units
//   - strings NFC normalised, no HTML escaping, U+2028/U+2029 literal
//   - numbers rendered exactly as encoding/json renders them
//   - no insignificant whitespace
package digest
