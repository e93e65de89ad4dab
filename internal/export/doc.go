// Package export renders merged record sets back into card files. The writer
// owns the second deduplication tier: payloads that survived merging as
// distinct strings collapse here under normalized keys, and the field order
// inside every card is fixed so runs over the same input produce identical
// output.
package export
