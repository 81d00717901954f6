// package player implements the playback-synchronization core: two
// interchangeable playback sources (the Spotify Web API and the local MPRIS
// media session), a failure-debounced polling scheduler, and track-change
// detection with artwork caching.
package player
