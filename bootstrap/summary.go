package bootstrap

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/kbukum/dikit/component"
	"github.com/kbukum/dikit/domain"
)

// Summary renders the startup report: components, scanned units,
// container registrations and live health.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
}

func NewSummary(serviceName, version string) *Summary {
	return &Summary{serviceName: serviceName, version: version}
}

func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// Write renders the report to w. A nil registry or domain skips its sections.
func (s *Summary) Write(w io.Writer, registry *component.Registry, d *domain.Domain) {
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", s.serviceName, s.version, s.startupDuration.Seconds())

	if registry != nil {
		var lines []string
		for _, desc := range registry.Describe() {
			lines = append(lines, fmt.Sprintf("%s [%s]: %s", desc.Name, desc.Type, desc.Details))
		}
		if len(lines) == 0 {
			lines = []string{"No components registered"}
		}
		tree(w, "📦 Components", lines)
	}

	if d != nil {
		known := d.Known()
		lines := make([]string, len(known))
		for i, id := range known {
			lines[i] = id.String()
		}
		tree(w, fmt.Sprintf("🧩 Units (%d)", len(known)), lines)

		if regs, err := d.Container().Registrations(); err == nil {
			lines := make([]string, len(regs))
			for i, r := range regs {
				sel := r.Selector
				if sel == "" {
					sel = "default"
				}
				lines[i] = fmt.Sprintf("%s [%s] %s", r.Type, sel, r.Lifetime)
			}
			tree(w, fmt.Sprintf("🔗 Registrations (%d)", len(regs)), lines)
		}
	}

	if registry != nil {
		var lines []string
		for _, h := range registry.HealthAll(context.Background()) {
			line := fmt.Sprintf("%s %s: %s", healthStatusIcon(h.Status), h.Name, strings.ToLower(string(h.Status)))
			if h.Message != "" {
				line += ": " + h.Message
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			tree(w, "🏥 Health Check", lines)
		}
	}
	fmt.Fprintln(w)
}

// tree writes a titled block with one branch per line.
func tree(w io.Writer, title string, lines []string) {
	fmt.Fprintf(w, "\n%s\n", title)
	for i, line := range lines {
		branch := "├──"
		if i == len(lines)-1 {
			branch = "└──"
		}
		fmt.Fprintf(w, "   %s %s\n", branch, line)
	}
}

func healthStatusIcon(status component.HealthStatus) string {
	switch status {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	case component.StatusUnhealthy:
		return "❌"
	default:
		return "❓"
	}
}
