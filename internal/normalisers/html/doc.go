// Package html provides a Normaliser implementation for HTML pages.
// It extracts readable text content from HTML, stripping tags, scripts,
// styles and citation markers, and decoding entities.
package html
