// Package ui implements the interactive now-playing display using
// bubbletea's Elm architecture.
//
// The [Model] consumes scheduler events from a channel and renders the
// current track, playback state and a progress bar. Between polls a local
// one-second tick advances the bar so playback does not appear frozen.
//
// Keyboard input is minimal: q/ctrl+c quits, h toggles the recent-plays
// panel.
package ui
