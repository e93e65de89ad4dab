// Package mojibake repairs text damaged by charset mis-decoding, most
// commonly UTF-8 bytes that were read once as Windows-1252 or Latin-1 and
// re-encoded. Repair is an ordered pipeline of best-effort rewrite stages;
// risky stages are accepted only when they reduce a marker-character score,
// so a repair pass can never introduce new corruption.
package mojibake
