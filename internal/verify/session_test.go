package verify

import (
	"context"
	"errors"
	"image/color"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"signoff/internal/imaging"
	"signoff/internal/inference"
	"signoff/internal/inference/mocks"
	"signoff/internal/signatory"
	"signoff/pkg/domerrors"
)

type stubRoster struct {
	snap signatory.Snapshot
	err  error
}

func (s *stubRoster) List(context.Context) (signatory.Snapshot, error) {
	return s.snap, s.err
}

func janeRoster() *stubRoster {
	return &stubRoster{snap: signatory.Snapshot{
		"Jane Smith": {Name: "Jane Smith", MaxAmount: 5000},
	}}
}

func testInvoice(t *testing.T) *imaging.Canonical {
	t.Helper()
	return testCanonical(t, color.RGBA{R: 240, G: 240, B: 240, A: 255})
}

func TestSessionVerify(t *testing.T) {
	ctx := context.Background()

	t.Run("classifies a successful reply", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)
		client.EXPECT().Complete(gomock.Any(), gomock.Any()).
			Return("Amount 300, signed by Jane Smith. STATUS: valid", nil)

		session := NewSession(janeRoster(), client, WithLogger(discardLogger()))
		result, err := session.Verify(ctx, testInvoice(t))
		require.NoError(t, err)

		assert.Equal(t, VerdictValid, result.Verdict)
		assert.Equal(t, "Jane Smith", result.MatchedSignatory)
		assert.Contains(t, result.RawText, "STATUS: valid")
		assert.NotEmpty(t, result.AttemptID)
		assert.False(t, result.CompletedAt.IsZero())
		assert.False(t, result.FromCache)

		state, last := session.Status()
		assert.Equal(t, StateComplete, state)
		require.NotNil(t, last)
		assert.Equal(t, result.AttemptID, last.AttemptID)
	})

	t.Run("transport failure becomes the error verdict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)
		client.EXPECT().Complete(gomock.Any(), gomock.Any()).
			Return("", domerrors.New(domerrors.CodeInference, "service down"))

		session := NewSession(janeRoster(), client, WithLogger(discardLogger()))
		result, err := session.Verify(ctx, testInvoice(t))
		require.NoError(t, err)

		assert.Equal(t, VerdictError, result.Verdict)
		assert.Empty(t, result.RawText)
		assert.Contains(t, result.ErrorDetail, "service down")
		assert.Empty(t, result.MatchedSignatory)

		state, _ := session.Status()
		assert.Equal(t, StateError, state)
	})

	t.Run("roster load failure never reaches the model", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl) // no Complete expectation: any call fails the test

		roster := &stubRoster{err: errors.New("registry unreadable")}
		session := NewSession(roster, client, WithLogger(discardLogger()))
		result, err := session.Verify(ctx, testInvoice(t))
		require.NoError(t, err)

		assert.Equal(t, VerdictError, result.Verdict)
		assert.Contains(t, result.ErrorDetail, "registry unreadable")
	})

	t.Run("second start while busy is rejected without disturbing the attempt", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)

		started := make(chan struct{})
		release := make(chan struct{})
		client.EXPECT().Complete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(context.Context, inference.Request) (string, error) {
				close(started)
				<-release
				return "STATUS: valid", nil
			})

		session := NewSession(janeRoster(), client, WithLogger(discardLogger()))

		type outcome struct {
			result Result
			err    error
		}
		done := make(chan outcome, 1)
		go func() {
			result, err := session.Verify(ctx, testInvoice(t))
			done <- outcome{result, err}
		}()

		<-started
		_, err := session.Verify(ctx, testInvoice(t))
		require.Error(t, err)
		assert.True(t, domerrors.HasCode(err, domerrors.CodeVerificationBusy))

		close(release)
		first := <-done
		require.NoError(t, first.err)
		assert.Equal(t, VerdictValid, first.result.Verdict)

		state, _ := session.Status()
		assert.Equal(t, StateComplete, state)
	})

	t.Run("timeout surfaces as the error verdict", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)
		client.EXPECT().Complete(gomock.Any(), gomock.Any()).
			DoAndReturn(func(callCtx context.Context, _ inference.Request) (string, error) {
				<-callCtx.Done()
				return "", callCtx.Err()
			})

		session := NewSession(janeRoster(), client,
			WithLogger(discardLogger()),
			WithTimeout(10*time.Millisecond))
		result, err := session.Verify(ctx, testInvoice(t))
		require.NoError(t, err)

		assert.Equal(t, VerdictError, result.Verdict)
		assert.Contains(t, result.ErrorDetail, "context deadline exceeded")
	})
}

func TestSessionResultCache(t *testing.T) {
	ctx := context.Background()

	t.Run("identical attempts hit the cache", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)
		client.EXPECT().Complete(gomock.Any(), gomock.Any()).
			Return("Signed by Jane Smith. STATUS: valid", nil).
			Times(1)

		session := NewSession(janeRoster(), client,
			WithLogger(discardLogger()),
			WithCache(NewMemoryCache()))

		invoice := testInvoice(t)
		first, err := session.Verify(ctx, invoice)
		require.NoError(t, err)
		second, err := session.Verify(ctx, invoice)
		require.NoError(t, err)

		assert.False(t, first.FromCache)
		assert.True(t, second.FromCache)
		assert.Equal(t, first.Verdict, second.Verdict)
		assert.Equal(t, first.RawText, second.RawText)
		assert.NotEqual(t, first.AttemptID, second.AttemptID)
	})

	t.Run("error verdicts are not cached", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockClient(ctrl)
		gomock.InOrder(
			client.EXPECT().Complete(gomock.Any(), gomock.Any()).
				Return("", errors.New("flaky network")),
			client.EXPECT().Complete(gomock.Any(), gomock.Any()).
				Return("STATUS: valid", nil),
		)

		session := NewSession(janeRoster(), client,
			WithLogger(discardLogger()),
			WithCache(NewMemoryCache()))

		invoice := testInvoice(t)
		first, err := session.Verify(ctx, invoice)
		require.NoError(t, err)
		assert.Equal(t, VerdictError, first.Verdict)

		second, err := session.Verify(ctx, invoice)
		require.NoError(t, err)
		assert.Equal(t, VerdictValid, second.Verdict)
		assert.False(t, second.FromCache)
	})
}

func TestSessionProgressMilestones(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	client := mocks.NewMockClient(ctrl)
	client.EXPECT().Complete(gomock.Any(), gomock.Any()).
		Return("STATUS: valid", nil).
		Times(1)

	var stages []Stage
	session := NewSession(janeRoster(), client,
		WithLogger(discardLogger()),
		WithCache(NewMemoryCache()),
		WithProgress(func(stage Stage) { stages = append(stages, stage) }))

	invoice := testInvoice(t)
	_, err := session.Verify(ctx, invoice)
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageComposing, StageAwaitingModel, StageClassifying, StageDone}, stages)

	stages = nil
	_, err = session.Verify(ctx, invoice)
	require.NoError(t, err)
	assert.Equal(t, []Stage{StageComposing, StageDone}, stages, "cache hits skip the model stages")
}
