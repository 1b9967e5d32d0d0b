// Package tracker records disposable resources per logical scope and reports
// the ones that were never closed.
//
// A scope is a Slot obtained from Enter. Resources are watched into a slot
// through weak handles, so tracking never keeps a resource alive. Check
// walks every slot and reports live resources that do not say they are
// closed.
//
//	slot, _ := tr.Enter()
//	lease, err := tracker.Acquire(tr, slot, conn)
//	if err != nil {
//	    return err
//	}
//	defer lease.Close()
//
// Watch, Acquire and Release are package functions because they are generic
// over the resource type.
package tracker
