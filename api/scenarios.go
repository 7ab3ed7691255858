/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:

	Seeds the ledger and the enrollment roster with realistic data for
	demos. Each scenario enrolls the embedded demo roster and writes a
	stretch of historical attendance directly through the ledger store,
	computing statuses with the configured working-hours rules.

AVAILABLE SCENARIOS:

	small-office:  Five employees, a week of mixed punctuality
	night-shift:   Overnight shifts whose check-out clock reads earlier
	               than check-in
	spotty-month:  Sparse attendance across the current month, for
	               exercising Absent cells in the report

NOTE:

	Scenarios append into the live store. Only use in development/demo
	environments, ideally against a fresh records directory.

SEE ALSO:
  - handlers.go: LoadScenario, ListScenarios handlers
  - seed.yaml: The embedded demo roster
*/
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"net/http"

	"gopkg.in/yaml.v3"

	"github.com/faceid/attendance-engine/attendance"
	"github.com/faceid/attendance-engine/gallery"
)

//go:embed seed.yaml
var seedYAML []byte

type seedRoster struct {
	Employees []struct {
		ID        string    `yaml:"id"`
		Name      string    `yaml:"name"`
		Embedding []float32 `yaml:"embedding"`
	} `yaml:"employees"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "small-office",
		Name:        "Small Office",
		Description: "Five employees, a week of on-time, grace-period and late check-ins",
	},
	{
		ID:          "night-shift",
		Name:        "Night Shift",
		Description: "Overnight shifts with check-out clock times before check-in",
	},
	{
		ID:          "spotty-month",
		Name:        "Spotty Month",
		Description: "Sparse attendance across the current month for report demos",
	},
}

// ListScenarios returns the available demo scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the most recently loaded scenario.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"scenario_id": h.currentScenario})
}

// LoadScenario seeds the roster and ledger with the selected scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "small-office":
		err = h.loadSmallOffice(r.Context())
	case "night-shift":
		err = h.loadNightShift(r.Context())
	case "spotty-month":
		err = h.loadSpottyMonth(r.Context())
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario %q", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{"loaded": req.ScenarioID})
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// enrollSeedRoster adds the embedded demo roster to the gallery.
func (h *Handler) enrollSeedRoster() ([]gallery.Employee, error) {
	var seed seedRoster
	if err := yaml.Unmarshal(seedYAML, &seed); err != nil {
		return nil, fmt.Errorf("decode embedded seed roster: %w", err)
	}

	employees := make([]gallery.Employee, 0, len(seed.Employees))
	for _, e := range seed.Employees {
		emp := gallery.Employee{ID: e.ID, Name: e.Name, Embedding: e.Embedding}
		if err := h.Roster.Add(emp); err != nil {
			return nil, err
		}
		if err := h.Index.Enroll(e.ID, e.Name, e.Embedding); err != nil {
			return nil, fmt.Errorf("enroll %s: %w", e.ID, err)
		}
		employees = append(employees, emp)
	}
	return employees, nil
}

// seedDay writes one closed record for an employee on a past day,
// computing status and comments from the configured rules.
func (h *Handler) seedDay(ctx context.Context, day attendance.Day, emp gallery.Employee, in, out attendance.ClockTime) error {
	rules := h.Config.Rules()
	status := rules.StatusFor(in)

	rec := attendance.Record{
		EmployeeID: emp.ID,
		Name:       emp.Name,
		CheckIn:    in,
		Status:     status,
		Comments:   rules.CommentFor(status),
	}
	if err := h.Store.EnsureDay(ctx, day); err != nil {
		return err
	}
	if err := h.Store.AppendCheckIn(ctx, day, rec); err != nil {
		return err
	}
	suffix := "Work duration: " + attendance.FormatDuration(attendance.WorkDuration(in, out))
	_, err := h.Store.CloseCheckOut(ctx, day, emp.ID, out, suffix)
	return err
}

// daysBack returns the day n calendar days before today.
func (h *Handler) daysBack(n int) attendance.Day {
	today := h.Machine.Today()
	return attendance.NewDay(today.Year, today.Month, today.Date-n)
}

func (h *Handler) loadSmallOffice(ctx context.Context) error {
	employees, err := h.enrollSeedRoster()
	if err != nil {
		return err
	}

	// Each employee drifts a little later than the one before, so the
	// week covers all three statuses.
	for back := 7; back >= 1; back-- {
		day := h.daysBack(back)
		for i, emp := range employees {
			in := addMinutes(attendance.MustClockTime(8, 40, 0), 9*i)
			out := attendance.MustClockTime(17, 5+i, 0)
			if err := h.seedDay(ctx, day, emp, in, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadNightShift(ctx context.Context) error {
	employees, err := h.enrollSeedRoster()
	if err != nil {
		return err
	}

	// Check-in late evening, check-out early morning: the clock reads
	// earlier at check-out, so durations exercise the +24h rule.
	for back := 5; back >= 1; back-- {
		day := h.daysBack(back)
		for i, emp := range employees {
			in := attendance.MustClockTime(22, 30+i, 0)
			out := attendance.MustClockTime(6, 15+i, 0)
			if err := h.seedDay(ctx, day, emp, in, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func (h *Handler) loadSpottyMonth(ctx context.Context) error {
	employees, err := h.enrollSeedRoster()
	if err != nil {
		return err
	}

	// Every employee skips a different stride of days, so the monthly
	// report shows plenty of Absent cells.
	today := h.Machine.Today()
	for date := 1; date < today.Date; date++ {
		day := attendance.NewDay(today.Year, today.Month, date)
		for i, emp := range employees {
			if date%(i+2) == 0 {
				continue
			}
			in := attendance.MustClockTime(8, 50+3*i, 0)
			out := attendance.MustClockTime(17, 0, 0)
			if err := h.seedDay(ctx, day, emp, in, out); err != nil {
				return err
			}
		}
	}
	return nil
}

func addMinutes(t attendance.ClockTime, minutes int) attendance.ClockTime {
	total := t.Seconds() + minutes*60
	return attendance.MustClockTime(total/3600%24, total%3600/60, total%60)
}
