// Package output renders qlbundle results for the terminal.
//
// Run reports go through text/template files embedded from templates/ whose
// "style" function applies the lipgloss styles registered in the styles
// package. Pack listings are pterm tables. When color is off (NO_COLOR, a
// non-terminal writer or an explicit flag) the same output is produced
// without escape sequences.
package output
