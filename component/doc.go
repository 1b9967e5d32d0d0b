// Package component defines lifecycle-managed runtime parts and the ordered
// registry that starts and stops them.
//
// The tracker and the domain implement Component so bootstrap can start
// them in dependency order, stop them in reverse, and report their health.
//
// # Interfaces
//
//   - Component: Name/Start/Stop/Health
//   - Describable: one-line description for the startup summary
package component
