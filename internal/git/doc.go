// Package git provides the small set of Git CLI queries cratesync needs to
// record the state of the upstream tree it vendors from.
package git
