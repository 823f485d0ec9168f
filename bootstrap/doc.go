// Package bootstrap implements the one-time admin-bootstrap token
// lifecycle: issuing single-use, time-limited registration tokens, and the
// flow that gates first-admin provisioning behind them.
//
// Tokens are stored by digest only; the raw secret is disclosed once at
// issue time and is the sole proof of possession. A token is consumable at
// most once, even under concurrent registration attempts, and is burned by
// the attempt whether or not provisioning succeeds.
package bootstrap
