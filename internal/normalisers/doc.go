// Package normalisers provides implementations of the Normaliser interface.
// Each normaliser turns rendered page markup into plain document text.
//
// The composition root in internal/app selects a normaliser from the configured
// extractor.
package normalisers
