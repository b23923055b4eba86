// Package cli translates command-line arguments into an app.Config. It
// owns usage text and exit codes; everything past parsing belongs to the
// app package.
package cli
