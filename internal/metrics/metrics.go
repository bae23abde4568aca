// Package metrics defines and registers the Prometheus counters of the
// readings application. It is the single source of truth for metric names,
// labels, and help strings.
//
// The metrics are registered with the default registry on package load. The
// application exposes no listener; the admin console renders them through
// Summary.
package metrics

import (
	"fmt"
	"sort"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

const namespace = "readings"

// ── User metrics ─────────────────────────────────────────────────────────────

// UsersRegisteredTotal counts successful self-registrations.
var UsersRegisteredTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_registered_total",
		Help:      "Total number of users who registered through the console.",
	},
)

// AuthAttemptsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var AuthAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "auth_attempts_total",
		Help:      "Total number of authentication attempts, labelled by result.",
	},
	[]string{"result"},
)

// PasswordChangesTotal counts password change attempts.
// Label:
//   - result: "success", "unauthorized" or "invalid"
var PasswordChangesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "password_changes_total",
		Help:      "Total number of password change attempts, labelled by result.",
	},
	[]string{"result"},
)

// ── Readings metrics ─────────────────────────────────────────────────────────

// ReadingsSubmittedTotal counts stored submissions.
// Label:
//   - month: English month name (e.g. "January")
var ReadingsSubmittedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_submitted_total",
		Help:      "Total number of readings submissions stored, by month.",
	},
	[]string{"month"},
)

// ReadingsRejectedTotal counts submissions that were not stored.
// Label:
//   - reason: "invalid", "already_submitted", "in_progress" or "storage"
var ReadingsRejectedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "readings_rejected_total",
		Help:      "Total number of readings submissions rejected, by reason.",
	},
	[]string{"reason"},
)

// Summary renders every counter of this package found in g as sorted
// "name{labels} value" lines.
func Summary(g prometheus.Gatherer) ([]string, error) {
	families, err := g.Gather()
	if err != nil {
		return nil, fmt.Errorf("gather metrics: %w", err)
	}

	var lines []string
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") || mf.GetType() != dto.MetricType_COUNTER {
			continue
		}
		for _, m := range mf.GetMetric() {
			lines = append(lines, fmt.Sprintf("%s%s %g", mf.GetName(), labels(m.GetLabel()), m.GetCounter().GetValue()))
		}
	}
	sort.Strings(lines)
	return lines, nil
}

func labels(pairs []*dto.LabelPair) string {
	if len(pairs) == 0 {
		return ""
	}
	parts := make([]string, 0, len(pairs))
	for _, p := range pairs {
		parts = append(parts, fmt.Sprintf("%s=%q", p.GetName(), p.GetValue()))
	}
	return "{" + strings.Join(parts, ",") + "}"
}
