// Package syncer drives a vendoring run: it loads the upstream workspace
// dependency table once, then copies and patches each planned package in
// declaration order, stopping at the first failure.
package syncer
