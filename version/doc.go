// Package version reports the build of the running binary.
//
// Release builds set the version through -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/dikit/version.Version=1.0.0"
//
// Anything left unset comes from the VCS stamps the toolchain embeds. The
// domain versions the application's unit.Info from Current.
package version
