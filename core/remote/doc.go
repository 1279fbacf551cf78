// Package remote defines the remote task service data source.
//
// Source is what the sync units consume. Client implements it over the JSON
// HTTP API, authenticating with the X-Access-Token and X-Client-ID headers.
// Non-2xx responses surface as *StatusError, which matches ErrStatus.
// No retries happen here; a failed fetch aborts the pass that issued it.
package remote
