// Package textutil provides text processing utilities for fingerprinting, similarity,
// and filename sanitization.
//
// The primary use cases are:
//   - Creating token-based fingerprints from contact names for comparison
//   - Computing cosine similarity between fingerprints to spot likely
//     duplicates that exact identity matching cannot merge
//   - Sanitizing contact names for use as per-contact output filenames
//
// Fingerprints use term frequency vectors normalized for efficient comparison.
// The tokenization process lowercases text, splits on non-alphanumeric characters,
// and filters tokens shorter than 3 characters, which also drops honorifics
// like "Dr" before names are compared.
package textutil
