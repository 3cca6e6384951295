package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/unicode/norm"

	"github.com/apresai/promptpatterns/internal/completion"
)

type stubClient struct {
	reply string
	err   error
	got   completion.Request
}

func (s *stubClient) Complete(_ context.Context, req completion.Request) (string, error) {
	s.got = req
	return s.reply, s.err
}

func (s *stubClient) Model() string { return "stub" }

func TestCountChars(t *testing.T) {
	assert.Equal(t, 0, CountChars(""))
	assert.Equal(t, 10, CountChars("hello world\n"))
	assert.Equal(t, 6, CountChars("서버 장애\n발생"))

	decomposed := norm.NFD.String("서버")
	assert.Equal(t, 2, CountChars(decomposed))
}

func TestAvgSentenceLen(t *testing.T) {
	tests := []struct {
		text string
		want float64
	}{
		{"", 0},
		{"...", 0},
		{"One two three. Four five!", 2.5},
		{"Is it up? Yes it is. Done", 2.3},
		{"No terminator here", 3},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, AvgSentenceLen(tt.text), tt.text)
	}
}

func TestEvaluatePreservation(t *testing.T) {
	client := &stubClient{reply: "Here you go: {\"preservation\": 5, \"no_distortion\": 4, \"tone_shift\": 3}"}

	p, err := EvaluatePreservation(context.Background(), client, "orig", "new")
	require.NoError(t, err)
	assert.Equal(t, Preservation{Preservation: 5, NoDistortion: 4, ToneShift: 3}, p)
	assert.False(t, p.Empty())

	assert.Equal(t, 200, client.got.MaxTokens)
	assert.Equal(t, 0.2, client.got.Temperature)
	assert.Contains(t, client.got.User, "## Original\norig")
	assert.Contains(t, client.got.User, "## Transformed\nnew")
}

func TestEvaluatePreservation_Unparseable(t *testing.T) {
	p, err := EvaluatePreservation(context.Background(), &stubClient{reply: "I cannot rate this."}, "a", "b")
	require.NoError(t, err)
	assert.True(t, p.Empty())
}

func TestEvaluatePreservation_ClientError(t *testing.T) {
	_, err := EvaluatePreservation(context.Background(), &stubClient{err: &completion.QuotaError{Err: errors.New("x")}}, "a", "b")
	assert.ErrorIs(t, err, completion.ErrQuota)
}
