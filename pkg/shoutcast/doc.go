// Package shoutcast speaks the ICY (Shoutcast/Icecast) dialect of HTTP audio
// streaming, from both ends.
//
// Serving: MetadataWriter interleaves metadata blocks into an audio stream
// every metaint bytes, for clients that ask for them with "Icy-MetaData: 1".
// WriteM3U and WritePLS render single entry playlists.
//
// Listening: Open connects to a stream, following a .pls or .m3u playlist if
// that is what the URL serves, and returns a Stream whose Read yields only
// audio bytes. Metadata changes are reported through MetadataCallbackFunc.
package shoutcast
