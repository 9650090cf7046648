// Package storage owns the on-disk layout of uploads and outputs. Client
// supplied names never reach the filesystem directly; files live under opaque
// identifiers and every lookup is reduced to a basename inside the store's
// directory. The Sweeper expires files by age.
package storage
