// Package fileio opens corpus inputs and report outputs, handling the
// compression formats the dumps are usually shipped in.
//
// Inputs are sniffed by magic bytes, so a file named data.tsv may still be
// gzip compressed. Outputs are compressed according to their extension.
package fileio
