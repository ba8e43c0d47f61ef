package tracker

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tha-hammer/silmari/internal/graph"
	"github.com/tha-hammer/silmari/internal/session"
	"github.com/tha-hammer/silmari/internal/types"
)

// scriptedRunner maps the joined command line to a canned outcome.
type scriptedRunner struct {
	responses map[string]session.RunResult
	errs      map[string]error
	calls     []session.Command
}

func key(cmd session.Command) string {
	out := cmd.Name
	for _, a := range cmd.Args {
		out += " " + a
	}
	return out
}

func (s *scriptedRunner) Run(ctx context.Context, cmd session.Command) (session.RunResult, error) {
	s.calls = append(s.calls, cmd)
	k := key(cmd)
	if err, ok := s.errs[k]; ok {
		return s.responses[k], err
	}
	return s.responses[k], nil
}

func TestCLIListParsesItems(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]session.RunResult{
		"si list --json": {Stdout: `[
			{"id":"si-001","title":"Add auth","type":"feature","status":"open","priority":1,"depends_on":["si-000"]},
			{"id":"si-000","title":"Scaffold","type":"task","status":"closed","priority":0}
		]`},
	}}
	cli := NewCLI(runner, "si", "/repo")

	items, err := cli.List(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "si-001", items[0].ID)
	assert.Equal(t, graph.ItemTypeFeature, items[0].Type)
	assert.Equal(t, graph.StatusOpen, items[0].Status)
	assert.Equal(t, graph.Priority(1), items[0].Priority)
	assert.Equal(t, []string{"si-000"}, items[0].DependsOn)

	require.Len(t, runner.calls, 1)
	assert.Equal(t, "/repo", runner.calls[0].Dir)
}

func TestCLIListWithStatusFilter(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]session.RunResult{
		"si list --json --status open": {Stdout: `[]`},
	}}
	cli := NewCLI(runner, "si", "")

	items, err := cli.List(context.Background(), graph.StatusOpen)
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NotNil(t, items, "empty result is an empty slice, not an error")
}

func TestCLIListEmptyOutput(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]session.RunResult{
		"si list --json": {Stdout: "\n"},
	}}
	cli := NewCLI(runner, "si", "")

	items, err := cli.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestCLIListCommandFailureIsDistinctFromEmpty(t *testing.T) {
	k := "si list --json"
	runner := &scriptedRunner{
		responses: map[string]session.RunResult{k: {Stderr: "database locked", ExitCode: 1}},
		errs:      map[string]error{k: types.NewError(types.EXECUTION_NON_ZERO_EXIT, "si exited with code 1")},
	}
	cli := NewCLI(runner, "si", "")

	items, err := cli.List(context.Background(), "")
	require.Error(t, err)
	assert.Nil(t, items)
	assert.Equal(t, types.TRACKER_COMMAND_FAILED, types.CodeOf(err))
	assert.Contains(t, err.Error(), "database locked")
}

func TestCLIListParseFailure(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]session.RunResult{
		"si list --json": {Stdout: "not json"},
	}}
	cli := NewCLI(runner, "si", "")

	_, err := cli.List(context.Background(), "")
	require.Error(t, err)
	assert.Equal(t, types.TRACKER_PARSE_FAILED, types.CodeOf(err))
}

func TestCLIShow(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]session.RunResult{
		"si show si-007 --json": {Stdout: `{"id":"si-007","title":"Fix race","type":"bug","status":"in_progress","priority":0}`},
	}}
	cli := NewCLI(runner, "si", "")

	item, err := cli.Show(context.Background(), "si-007")
	require.NoError(t, err)
	assert.Equal(t, "si-007", item.ID)
	assert.Equal(t, graph.ItemTypeBug, item.Type)
}

func TestCLIShowNotFound(t *testing.T) {
	k := "si show nope --json"
	runner := &scriptedRunner{
		responses: map[string]session.RunResult{k: {Stderr: "item nope not found", ExitCode: 1}},
		errs:      map[string]error{k: types.NewError(types.EXECUTION_NON_ZERO_EXIT, "si exited with code 1")},
	}
	cli := NewCLI(runner, "si", "")

	_, err := cli.Show(context.Background(), "nope")
	require.Error(t, err)
	assert.Equal(t, types.TRACKER_ITEM_NOT_FOUND, types.CodeOf(err))
}

func TestCLICreate(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]session.RunResult{
		"si create --type task --title Wire config --priority 2 --json": {Stdout: `{"id":"si-101"}`},
	}}
	cli := NewCLI(runner, "si", "")

	id, err := cli.Create(context.Background(), graph.ItemTypeTask, "Wire config", 2)
	require.NoError(t, err)
	assert.Equal(t, "si-101", id)
}

func TestCLIStatusMutations(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]session.RunResult{}}
	cli := NewCLI(runner, "si", "")
	ctx := context.Background()

	require.NoError(t, cli.UpdateStatus(ctx, "si-001", graph.StatusInProgress))
	require.NoError(t, cli.Close(ctx, "si-001", "verified and done"))
	require.NoError(t, cli.Block(ctx, "si-002", "tests failed: TestAuth"))
	require.NoError(t, cli.AddDependency(ctx, "si-003", "si-001"))
	require.NoError(t, cli.Sync(ctx))

	require.Len(t, runner.calls, 5)
	assert.Equal(t, []string{"update", "si-001", "--status", "in_progress"}, runner.calls[0].Args)
	assert.Equal(t, []string{"close", "si-001", "--reason", "verified and done"}, runner.calls[1].Args)
	assert.Equal(t, []string{"update", "si-002", "--status", "blocked", "--reason", "tests failed: TestAuth"}, runner.calls[2].Args)
	assert.Equal(t, []string{"dep", "add", "si-003", "si-001"}, runner.calls[3].Args)
	assert.Equal(t, []string{"sync"}, runner.calls[4].Args)
}

func TestSnapshotBuildsGraph(t *testing.T) {
	runner := &scriptedRunner{responses: map[string]session.RunResult{
		"si list --json": {Stdout: `[
			{"id":"a","title":"A","type":"task","status":"closed","priority":1},
			{"id":"b","title":"B","type":"task","status":"open","priority":1,"depends_on":["a"]}
		]`},
	}}
	cli := NewCLI(runner, "si", "")

	g, err := Snapshot(context.Background(), cli)
	require.NoError(t, err)
	assert.Equal(t, 2, g.Len())

	ready, err := graph.ReadySet(g)
	require.NoError(t, err)
	require.Len(t, ready, 1)
	assert.Equal(t, "b", ready[0].ID)
}
