// Package view renders the voting page from an embedded html/template and
// serves its stylesheet.
package view
