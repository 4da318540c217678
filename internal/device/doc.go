// Package device holds the passive data model shared by the radio layer and the
// central orchestrator: device identities, the local state enumeration, the
// advertisement snapshot and the typed errors used across the module.
//
// Nothing in this package talks to hardware. Values are produced by a radio
// implementation (see package radio) and interpreted by package central.
package device
