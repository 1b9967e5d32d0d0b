package domain

import (
	"sync"
	"sync/atomic"

	"github.com/kbukum/dikit/errors"
)

type processHandle struct {
	once sync.Once
	d    atomic.Pointer[Domain]
}

var process = &processHandle{}

// Install makes d the process-wide domain. Only the first call has an effect;
// it reports whether this call installed d. A nil domain is never installed.
func Install(d *Domain) bool {
	if d == nil {
		return false
	}
	installed := false
	process.once.Do(func() {
		process.d.Store(d)
		installed = true
	})
	return installed
}

// Current returns the process-wide domain. It panics with a
// REENTRANT_SINGLETON error if no domain is installed, which also happens
// when a callback runs before the domain that scans it was installed.
func Current() *Domain {
	d := process.d.Load()
	if d == nil {
		panic(errors.ReentrantSingleton("domain"))
	}
	return d
}
