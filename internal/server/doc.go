// Package server exposes the HTTP API: media upload, streamed previews,
// asynchronous export jobs with websocket progress, split/archive requests,
// preset management, and file downloads.
//
// Handlers never talk to the engine directly; they delegate to the transform
// runner, the job tracker, and the archive pipeline. Errors classified by the
// services package map onto HTTP status codes in one place.
package server
