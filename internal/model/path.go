// Package model defines the data structures shared by test selection and
// coverage reconciliation.
package model

// Path represents a file system path.
type Path string
