// Package unit describes code units: named, versioned bundles of exported
// types whose marker methods register services into a container.
//
// Go cannot discover annotated functions at run time, so a unit lists its
// registration callbacks explicitly:
//
//	var Storage = unit.New(
//	    unit.Identity{Name: "storage", Version: "1.0.0"},
//	    unit.Callbacks("storage.Module", registerStore, registerCache),
//	)
//
// A Host publishes units and notifies subscribers when more are loaded.
// StaticHost is the in-memory host used by applications that link their
// units at build time.
package unit
