// Package provisioning tracks organizations whose infrastructure was never
// confirmed.
//
// An organization is written with successfully_created = false and a
// provisioning request is published to Redis. When the downstream worker
// finishes it calls back to mark the organization provisioned. The
// Reconciler periodically lists organizations still unprovisioned after the
// threshold (24h by default) and hands them to a Sink for remediation. Scans
// only read: a stuck organization is reported on every scan until its state
// changes.
package provisioning
