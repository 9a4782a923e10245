// Package ui renders command line output: decoded records, headers and
// results. Colour and boxes are only used when writing to a terminal.
package ui
