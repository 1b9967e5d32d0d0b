package tracker

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/kbukum/dikit/logger"
	"github.com/kbukum/dikit/observability"
)

// SlotReport is the state of one slot at check time.
type SlotReport struct {
	Slot Slot
	// Tracked is the number of handles in the slot.
	Tracked int
	// Live is the number of handles whose resource has not been collected.
	Live int
	// Closed is the number of live resources reporting themselves closed.
	Closed int
	// Leaks describes live resources that are not closed.
	Leaks []string
}

// Leaked returns the number of leaked resources in the slot.
func (s SlotReport) Leaked() int { return len(s.Leaks) }

// Report is the result of Check.
type Report struct {
	Slots  []SlotReport
	Leaked int
}

// HasLeaks reports whether any slot holds a leaked resource.
func (r Report) HasLeaks() bool { return r.Leaked > 0 }

// Slot returns the report of one slot.
func (r Report) Slot(slot Slot) (SlotReport, bool) {
	for _, s := range r.Slots {
		if s.Slot == slot {
			return s, true
		}
	}
	return SlotReport{}, false
}

// Summary renders a one-line summary.
func (r Report) Summary() string {
	tracked := 0
	for _, s := range r.Slots {
		tracked += s.Tracked
	}
	return fmt.Sprintf("%d slots, %d tracked, %d leaked", len(r.Slots), tracked, r.Leaked)
}

// String renders the summary followed by one line per leaked resource.
func (r Report) String() string {
	var b strings.Builder
	b.WriteString(r.Summary())
	for _, s := range r.Slots {
		if s.Tracked == 0 && len(s.Leaks) == 0 {
			continue
		}
		fmt.Fprintf(&b, "\n%s: tracked=%d live=%d closed=%d leaked=%d", s.Slot, s.Tracked, s.Live, s.Closed, s.Leaked())
		for _, leak := range s.Leaks {
			fmt.Fprintf(&b, "\n  leaked %s", leak)
		}
	}
	return b.String()
}

// report builds the report under the read lock.
func (t *Tracker) report(ctx context.Context) (Report, error) {
	var r Report
	err := t.guard.ReadContext(ctx, func(context.Context) error {
		for _, slot := range t.sortedSlots() {
			s := SlotReport{Slot: slot}
			for _, h := range t.slots[slot].handles {
				s.Tracked++
				res, ok := h.live()
				if !ok {
					continue
				}
				s.Live++
				if cr, ok := res.(ClosedReporter); ok && cr.Closed() {
					s.Closed++
					continue
				}
				s.Leaks = append(s.Leaks, h.description())
			}
			r.Leaked += len(s.Leaks)
			r.Slots = append(r.Slots, s)
		}
		return nil
	})
	return r, err
}

// CheckContext reports leaked resources. It never changes tracker state and
// never closes anything. Leaks are logged at warn level.
func (t *Tracker) CheckContext(ctx context.Context) (Report, error) {
	ctx, span := observability.StartSpan(ctx, observability.SpanTrackerCheck)
	r, err := t.report(ctx)
	span.SetAttributes(attribute.Int(observability.AttrLeaks, r.Leaked))
	observability.EndSpan(span, err)
	if err != nil {
		return Report{}, err
	}

	t.metrics.RecordLeaks(ctx, int64(r.Leaked))
	for _, s := range r.Slots {
		for _, leak := range s.Leaks {
			t.log.Warn("resource leaked", logger.Fields(
				logger.FieldSlot, s.Slot.String(),
				logger.FieldResource, leak,
			))
		}
	}
	return r, nil
}

// Check is the blocking form of CheckContext.
func (t *Tracker) Check() (Report, error) {
	return t.CheckContext(context.Background())
}
