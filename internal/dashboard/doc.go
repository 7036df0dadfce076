// Package dashboard serves the browser view of the show: the device table
// updated live over the API WebSocket, the compiled sequences and the
// playback controls.
//
// The page is plain HTML and JavaScript embedded with go:embed, so both
// binaries serve it without any files on disk. During development a
// directory can be served instead to pick up edits without recompiling.
package dashboard
