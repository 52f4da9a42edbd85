// Package language provides unified language code normalization.
//
// All language-related conversions (ISO codes, full names, display names)
// are consolidated here to avoid duplication across the alignment and
// synthesis packages.
package language
