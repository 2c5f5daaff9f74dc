package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubJob struct {
	name string
}

func (s *stubJob) Name() string              { return s.name }
func (s *stubJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrder(t *testing.T) {
	registry := NewRegistry()
	snapshot := &stubJob{name: "leaderboard_snapshot"}
	retention := &stubJob{name: "outbox_retention"}
	require.NoError(t, registry.Register(snapshot))
	require.NoError(t, registry.Register(retention))

	jobs := registry.Jobs()
	require.Len(t, jobs, 2)
	assert.Same(t, snapshot, jobs[0])
	assert.Same(t, retention, jobs[1])
	assert.Equal(t, []string{"leaderboard_snapshot", "outbox_retention"}, registry.Names())

	jobs[0] = nil
	assert.NotNil(t, registry.Jobs()[0])
}

func TestRegistryRejectsDuplicatesAndBlanks(t *testing.T) {
	registry := NewRegistry()
	require.NoError(t, registry.Register(&stubJob{name: "outbox_retention"}))

	assert.Error(t, registry.Register(&stubJob{name: "outbox_retention"}))
	assert.Error(t, registry.Register(&stubJob{name: "  "}))
	assert.Error(t, registry.Register(nil))
	assert.Len(t, registry.Jobs(), 1)
}

func TestNewRegistrySkipsInvalidJobs(t *testing.T) {
	registry := NewRegistry(&stubJob{name: "a"}, nil, &stubJob{name: "a"}, &stubJob{name: "b"})
	assert.Equal(t, []string{"a", "b"}, registry.Names())
}
