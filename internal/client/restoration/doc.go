// Package restoration gates photo restorations on the user's entitlement.
//
// A restoration reserves one credit before any work starts. The credit is
// committed when the work succeeds and released when it fails, so a failed
// restoration never costs the user anything. Attempts are recorded in an
// in-memory History for the current process.
package restoration
