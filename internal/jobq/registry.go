package jobq

import (
	"context"
	"fmt"
)

// HandlerFunc is the body of one job command. A nil return deletes the
// job; an error disables it.
type HandlerFunc func(ctx context.Context, args []string) error

// IgnorableFunc decides at dequeue time whether a job has become moot
// (for example, an optimize request for an image deleted meanwhile).
// Ignored jobs are deleted without running.
type IgnorableFunc func(ctx context.Context, args []string) bool

// Descriptor is the static shape of a command: how urgently it runs and
// whether equal work collapses in the queue.
type Descriptor struct {
	Priority Priority
	// Fingerprinted commands enqueue at most one non-disabled job per
	// (command, args) at a time.
	Fingerprinted bool
	Ignorable     IgnorableFunc
}

// command binds a name to its descriptor and handler.
type command struct {
	name       string
	descriptor Descriptor
	run        HandlerFunc
}

// Registry is the closed command table. Workers refuse jobs whose
// command is not registered.
type Registry struct {
	commands map[string]*command
}

// NewRegistry returns an empty [Registry].
func NewRegistry() *Registry {
	return &Registry{commands: map[string]*command{}}
}

// Register binds a command name. Registering a name twice is a
// programming error and panics at wire-up time.
func (registry *Registry) Register(name string, descriptor Descriptor, run HandlerFunc) {
	if _, exists := registry.commands[name]; exists {
		panic(fmt.Sprintf("jobq: command %q registered twice", name))
	}
	registry.commands[name] = &command{name: name, descriptor: descriptor, run: run}
}

func (registry *Registry) get(name string) (*command, error) {
	cmd, ok := registry.commands[name]
	if !ok {
		return nil, fmt.Errorf("jobq: unknown command %q", name)
	}
	return cmd, nil
}

// Descriptor returns the registered descriptor for a command.
func (registry *Registry) Descriptor(name string) (Descriptor, error) {
	cmd, err := registry.get(name)
	if err != nil {
		return Descriptor{}, err
	}
	return cmd.descriptor, nil
}
