package ports

import (
	"context"

	"github.com/flowdhq/flowd/pkg/domain"
)

// ProcessStore defines the interface for persisting running processes.
type ProcessStore interface {
	// Save persists the process under its ID.
	Save(ctx context.Context, process *domain.Process) error

	// Load retrieves a process by ID.
	// Returns domain.ErrProcessNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Process, error)

	// Delete removes the process.
	Delete(ctx context.Context, id string) error
}

// ScenarioStore defines the interface for loading scenario templates.
// Scenarios are immutable; stores may cache them freely.
type ScenarioStore interface {
	// Load retrieves a scenario by ID.
	// Returns domain.ErrScenarioNotFound if it does not exist.
	Load(ctx context.Context, id string) (*domain.Scenario, error)
}
