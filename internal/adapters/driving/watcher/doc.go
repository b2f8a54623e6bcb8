// Package watcher rescans a project folder when its files change.
//
// Filesystem events are debounced: a burst of saves produces one scan once
// the folder has been quiet for the configured interval. When a scan
// changes any document the extraction worker is woken.
package watcher
