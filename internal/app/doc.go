// Package app wires the parameter tree, the stage registry, and the
// pipeline executor into one runnable application instance. Each App owns
// an isolated logger and parameter tree, so independent cases can run side
// by side in one process.
package app
