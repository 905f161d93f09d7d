// Package sanitizer normalizes free-text input before validation and storage.
//
// All functions are idempotent and never fail: malformed input comes back
// as the closest clean string (often ""), and validation decides whether it
// is acceptable.
//
// Normalization includes:
//   - Names: trim, collapse internal whitespace
//   - Descriptions: same per line, keep at most one blank line between paragraphs
//   - Bed types: lowercase single words, "King Size" becomes "king_size"
//   - Ids: trim and lowercase so UUIDs compare by value
package sanitizer
