// Package domain is the composition root of a dikit process.
//
// A Domain owns one di.Container and one tracker.Tracker. On Create it seeds
// the container with the host settings and the application's unit.Info,
// subscribes to unit load notifications, then scans every loaded unit.
// Scanning invokes each public static marker method of a unit's exported
// types whose function has one of the callback shapes:
//
//	func(*di.Container)                                   // blocking
//	func(context.Context, *di.Container) error            // cooperative
//
// Callbacks run immediately, in export order, with no domain lock held. Each
// unit is scanned at most once per Domain; dynamic units are never scanned.
//
// Hosts pass the *Domain explicitly. Install and Current exist only for code
// that cannot be reached that way.
package domain
