// Package services holds the pixdex engine: sync passes, extraction
// batching, the bucketed similarity index, keyword and gallery queries,
// settings and the background scheduler. Services depend only on the
// domain and on driven ports.
package services
