package refine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apresai/promptpatterns/internal/completion"
	"github.com/apresai/promptpatterns/internal/progress"
)

// scriptedClient replays responses in call order and records every request.
type scriptedClient struct {
	responses []string
	failAt    int // 1-based call index that fails; 0 never fails
	failErr   error
	requests  []completion.Request
}

func (c *scriptedClient) Complete(_ context.Context, req completion.Request) (string, error) {
	c.requests = append(c.requests, req)
	n := len(c.requests)
	if c.failAt == n {
		return "", c.failErr
	}
	if n > len(c.responses) {
		return "", fmt.Errorf("unexpected call %d", n)
	}
	return c.responses[n-1], nil
}

func (c *scriptedClient) Model() string { return "scripted" }

func (c *scriptedClient) temperatures() []float64 {
	out := make([]float64, len(c.requests))
	for i, r := range c.requests {
		out[i] = r.Temperature
	}
	return out
}

var quietLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

func critiqueJSON(a, b int) string {
	return fmt.Sprintf("```json\n{\"A\": {\"score\": %d, \"feedback\": \"fa\"}, \"B\": {\"score\": %d, \"feedback\": \"fb\"}}\n```", a, b)
}

func testTask(rounds int) Task {
	return Task{
		Name:           "unit",
		Objective:      "Write a tagline",
		Role:           "You are a copywriter.",
		Criteria:       "A: accuracy\nB: brevity",
		CriterionNames: []string{"A", "B"},
		Rounds:         rounds,
	}
}

func TestRun_TwoRounds(t *testing.T) {
	client := &scriptedClient{responses: []string{
		"draft0",
		critiqueJSON(5, 6),
		"draft1",
		critiqueJSON(7, 8),
		"draft2",
		critiqueJSON(9, 9),
	}}

	res, err := New(client, WithLogger(quietLogger)).Run(context.Background(), testTask(2))
	require.NoError(t, err)

	assert.Equal(t, []float64{0.8, 0.3, 0.5, 0.3, 0.5, 0.3}, client.temperatures())
	assert.Equal(t, "draft2", res.FinalDraft)

	require.Len(t, res.Trace, 3)
	for i, rec := range res.Trace {
		assert.Equal(t, i+1, rec.Round)
	}
	assert.Equal(t, KindCritique, res.Trace[0].Kind)
	assert.Equal(t, KindCritique, res.Trace[1].Kind)
	assert.Equal(t, KindFinal, res.Trace[2].Kind)

	assert.Equal(t, map[string]int{"A": 5, "B": 6}, map[string]int(res.Trace[0].Scores))
	assert.Equal(t, 5.5, res.Trace[0].Average)
	assert.Equal(t, 7.5, res.Trace[1].Average)
	assert.Equal(t, 9.0, res.Trace[2].Average)

	first, last, delta, ok := res.Improvement()
	assert.True(t, ok)
	assert.Equal(t, 5.5, first)
	assert.Equal(t, 9.0, last)
	assert.Equal(t, 3.5, delta)
}

func TestRun_RequestShapes(t *testing.T) {
	task := testTask(1)
	client := &scriptedClient{responses: []string{"draft0", "CRITIQUE-TEXT", "draft1", critiqueJSON(8, 8)}}

	_, err := New(client, WithLogger(quietLogger)).Run(context.Background(), task)
	require.NoError(t, err)
	require.Len(t, client.requests, 4)

	gen := client.requests[0]
	assert.Equal(t, task.Role, gen.System)
	assert.Equal(t, task.Objective, gen.User)
	assert.Equal(t, 1024, gen.MaxTokens)

	crit := client.requests[1]
	assert.Equal(t, critiqueSystem, crit.System)
	assert.Equal(t, 2048, crit.MaxTokens)
	assert.Contains(t, crit.User, task.Criteria)
	assert.Contains(t, crit.User, "draft0")
	assert.Contains(t, crit.User, `{"score": N, "feedback": "..."}`)

	ref := client.requests[2]
	assert.Equal(t, task.Role+" Carefully incorporate all feedback.", ref.System)
	assert.Equal(t, 1024, ref.MaxTokens)
	assert.Contains(t, ref.User, "draft0")
	assert.Contains(t, ref.User, "CRITIQUE-TEXT")
	assert.Contains(t, ref.User, task.Objective)

	final := client.requests[3]
	assert.Equal(t, finalSystem, final.System)
	assert.Equal(t, 2048, final.MaxTokens)
	assert.Contains(t, final.User, "draft1")
	assert.True(t, strings.HasSuffix(final.User, "Output JSON with scores and feedback."))
}

func TestRun_ZeroRounds(t *testing.T) {
	client := &scriptedClient{responses: []string{"only draft", critiqueJSON(6, 7)}}

	res, err := New(client, WithLogger(quietLogger)).Run(context.Background(), testTask(0))
	require.NoError(t, err)

	assert.Len(t, client.requests, 2)
	require.Len(t, res.Trace, 1)
	assert.Equal(t, 1, res.Trace[0].Round)
	assert.Equal(t, KindFinal, res.Trace[0].Kind)
	assert.Equal(t, "only draft", res.FinalDraft)

	_, _, _, ok := res.Improvement()
	assert.False(t, ok)
}

func TestRun_UnparseableCritiqueStillProceeds(t *testing.T) {
	client := &scriptedClient{responses: []string{"d0", "Looks fine to me.", "d1", "no json either"}}

	res, err := New(client, WithLogger(quietLogger)).Run(context.Background(), testTask(1))
	require.NoError(t, err)
	require.Len(t, res.Trace, 2)
	for _, rec := range res.Trace {
		assert.Empty(t, rec.Scores)
		assert.NotNil(t, rec.Scores)
		assert.Equal(t, 0.0, rec.Average)
	}
	assert.Equal(t, "d1", res.FinalDraft)
}

func TestRun_ClientErrorAborts(t *testing.T) {
	quota := &completion.QuotaError{Model: "scripted", Attempts: 3, Err: errors.New("throttled")}

	for failAt := 1; failAt <= 6; failAt++ {
		t.Run(fmt.Sprintf("call_%d", failAt), func(t *testing.T) {
			client := &scriptedClient{
				responses: []string{"d0", critiqueJSON(1, 1), "d1", critiqueJSON(2, 2), "d2", critiqueJSON(3, 3)},
				failAt:    failAt,
				failErr:   quota,
			}

			res, err := New(client, WithLogger(quietLogger)).Run(context.Background(), testTask(2))
			assert.Nil(t, res)
			require.Error(t, err)
			assert.Len(t, client.requests, failAt, "no calls after the failure")

			var qe *completion.QuotaError
			assert.True(t, errors.As(err, &qe))
			var se *StageError
			require.True(t, errors.As(err, &se))
		})
	}
}

func TestRun_StageErrorNamesStep(t *testing.T) {
	client := &scriptedClient{
		responses: []string{"d0", critiqueJSON(1, 1)},
		failAt:    3,
		failErr:   &completion.TransportError{Model: "scripted", Err: errors.New("reset")},
	}
	_, err := New(client, WithLogger(quietLogger)).Run(context.Background(), testTask(1))

	var se *StageError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, progress.StageRefine, se.Stage)
	assert.Equal(t, 1, se.Round)
	assert.ErrorIs(t, err, completion.ErrTransport)
	assert.Contains(t, err.Error(), "[refine round 1]")
}

func TestRun_InvalidTask(t *testing.T) {
	client := &scriptedClient{}
	tests := []struct {
		name string
		task Task
	}{
		{"missing objective", Task{Role: "r", Rounds: 1}},
		{"missing role", Task{Objective: "o", Rounds: 1}},
		{"negative rounds", Task{Objective: "o", Role: "r", Rounds: -1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(client).Run(context.Background(), tt.task)
			assert.ErrorContains(t, err, "invalid refine task")
		})
	}
	assert.Empty(t, client.requests)
}

func TestRun_ElapsedUsesClock(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	clock := func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * 1234567 * time.Microsecond)
	}
	client := &scriptedClient{responses: []string{"d0", critiqueJSON(4, 4), "d1", critiqueJSON(5, 5)}}

	res, err := New(client, WithLogger(quietLogger), WithClock(clock)).Run(context.Background(), testTask(1))
	require.NoError(t, err)
	for _, rec := range res.Trace {
		assert.Equal(t, 1.23, rec.ElapsedSeconds)
	}
	assert.Equal(t, 2.46, res.TotalElapsed())
}

func TestRun_ProgressEvents(t *testing.T) {
	var stages []progress.Stage
	cb := func(e progress.Event) { stages = append(stages, e.Stage) }
	client := &scriptedClient{responses: []string{"d0", critiqueJSON(4, 4), "d1", critiqueJSON(5, 5)}}

	_, err := New(client, WithLogger(quietLogger), WithProgress(cb)).Run(context.Background(), testTask(1))
	require.NoError(t, err)
	assert.Equal(t, []progress.Stage{
		progress.StageGenerate, progress.StageGenerate,
		progress.StageCritique, progress.StageRefine,
		progress.StageFinal,
	}, stages)
}
