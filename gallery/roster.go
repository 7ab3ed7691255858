package gallery

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"
)

// Employee is one enrolled identity: a stable ID, a display name, and
// the face embedding captured at enrollment.
type Employee struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Embedding  []float32 `json:"embedding"`
	EnrolledAt time.Time `json:"enrolled_at"`
}

// Roster persists enrolled employees as a JSON file. Saves go through a
// temp file and rename so a crash cannot leave a half-written roster.
type Roster struct {
	mu        sync.RWMutex
	path      string
	employees map[string]Employee
}

// LoadRoster reads the roster at path. A missing file is an empty
// roster, not an error.
func LoadRoster(path string) (*Roster, error) {
	r := &Roster{path: path, employees: make(map[string]Employee)}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return r, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read roster %s: %w", path, err)
	}

	var list []Employee
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("decode roster %s: %w", path, err)
	}
	for _, emp := range list {
		r.employees[emp.ID] = emp
	}
	return r, nil
}

// Add enrolls or replaces an employee and persists the roster.
func (r *Roster) Add(emp Employee) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if emp.ID == "" {
		return errors.New("employee id required")
	}
	if emp.EnrolledAt.IsZero() {
		emp.EnrolledAt = time.Now().UTC()
	}
	r.employees[emp.ID] = emp
	return r.saveLocked()
}

// Remove deletes an employee and persists the roster. Removing an
// unknown ID is a no-op.
func (r *Roster) Remove(employeeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.employees[employeeID]; !ok {
		return nil
	}
	delete(r.employees, employeeID)
	return r.saveLocked()
}

// Get returns the employee with the given ID, or nil.
func (r *Roster) Get(employeeID string) *Employee {
	r.mu.RLock()
	defer r.mu.RUnlock()

	emp, ok := r.employees[employeeID]
	if !ok {
		return nil
	}
	return &emp
}

// List returns all enrolled employees, ordered by ID.
func (r *Roster) List() []Employee {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Employee, 0, len(r.employees))
	for _, emp := range r.employees {
		list = append(list, emp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// Len returns the number of enrolled employees.
func (r *Roster) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.employees)
}

func (r *Roster) saveLocked() error {
	list := make([]Employee, 0, len(r.employees))
	for _, emp := range r.employees {
		list = append(list, emp)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })

	data, err := json.MarshalIndent(list, "", "  ")
	if err != nil {
		return fmt.Errorf("encode roster: %w", err)
	}

	dir := filepath.Dir(r.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(r.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("save roster: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.path); err != nil {
		return fmt.Errorf("save roster: %w", err)
	}
	return nil
}
