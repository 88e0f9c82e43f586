// Package health combines the health of several resources into one JSON report.
package health

import (
	"context"
	"encoding/json"
	"net/http"
)

// Check is one named resource. Stores satisfy Check.Check with their Health method.
type Check struct {
	Name  string
	Check func(context.Context) (int, string, error)
}

type resourceStatus struct {
	Resource string `json:"resource"`
	Status   int    `json:"status"`
	Error    string `json:"error,omitempty"`
	Message  string `json:"message,omitempty"`
}

type report struct {
	Status       int              `json:"status"`
	Dependencies []resourceStatus `json:"dependencies"`
}

// CheckAll runs every check and reports 503 if any of them failed or returned a
// status other than 200.
func CheckAll(ctx context.Context, checks []Check) (int, string, error) {
	r := report{
		Status:       http.StatusOK,
		Dependencies: make([]resourceStatus, 0, len(checks)),
	}

	for _, check := range checks {
		status, message, err := check.Check(ctx)
		if err != nil || status != http.StatusOK {
			r.Status = http.StatusServiceUnavailable
		}

		rs := resourceStatus{
			Resource: check.Name,
			Status:   status,
			Message:  message,
		}

		if err != nil {
			rs.Error = err.Error()
		}

		r.Dependencies = append(r.Dependencies, rs)
	}

	b, err := json.Marshal(r)
	if err != nil {
		return http.StatusServiceUnavailable, "", err
	}

	return r.Status, string(b), nil
}
