// Package filing holds the validated inputs and outputs of a filing download:
// DownloadRequest, built from caller parameters before any network call, and
// Descriptor, one remote filing selected for download.
package filing
