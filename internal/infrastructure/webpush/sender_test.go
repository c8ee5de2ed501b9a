package webpush

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"

	wp "github.com/SherClockHolmes/webpush-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zeni-bff/internal/domain"
)

type mockSender struct{ mock.Mock }

func (m *mockSender) Send(_ context.Context, payload []byte, sub *wp.Subscription, _ *wp.Options) (*http.Response, error) {
	args := m.Called(string(payload), sub.Endpoint)
	code := args.Int(0)
	return &http.Response{StatusCode: code, Body: io.NopCloser(strings.NewReader(""))}, args.Error(1)
}

func subscription(t *testing.T, endpoint string) string {
	t.Helper()
	b, err := json.Marshal(wp.Subscription{Endpoint: endpoint, Keys: wp.Keys{P256dh: "p", Auth: "a"}})
	require.NoError(t, err)
	return string(b)
}

func newTestSender(ms *mockSender) *Sender {
	s, _ := NewSender("pub", "priv", "mailto:ops@example.com", 2)
	s.sender = ms
	return s
}

func TestNewSender_RequiresKeys(t *testing.T) {
	_, err := NewSender("", "", "mailto:x@y.z", 1)
	assert.Error(t, err)
}

func TestSend_ClassifiesResponses(t *testing.T) {
	ms := &mockSender{}
	ms.On("Send", mock.Anything, "https://push.example/ok").Return(http.StatusCreated, nil)
	ms.On("Send", mock.Anything, "https://push.example/gone").Return(http.StatusGone, nil)
	ms.On("Send", mock.Anything, "https://push.example/missing").Return(http.StatusNotFound, nil)
	ms.On("Send", mock.Anything, "https://push.example/busy").Return(http.StatusTooManyRequests, nil)
	s := newTestSender(ms)

	gone := subscription(t, "https://push.example/gone")
	missing := subscription(t, "https://push.example/missing")
	report, err := s.Send(context.Background(), []string{
		subscription(t, "https://push.example/ok"),
		gone,
		missing,
		subscription(t, "https://push.example/busy"),
		"not-json",
	}, domain.PushMessage{Title: "T", Body: "B"})
	require.NoError(t, err)
	assert.Equal(t, 1, report.Sent)
	assert.Equal(t, 4, report.Failed)
	assert.ElementsMatch(t, []string{gone, missing}, report.Gone)
}

func TestSubscriptionGoneIsTokenGone(t *testing.T) {
	assert.ErrorIs(t, ErrSubscriptionGone, domain.ErrTokenGone)
}

func TestSend_PayloadCarriesData(t *testing.T) {
	ms := &mockSender{}
	ms.On("Send", mock.MatchedBy(func(p string) bool {
		var got payload
		return json.Unmarshal([]byte(p), &got) == nil && got.Title == "T" && got.Data["notificationId"] == "n1"
	}), mock.Anything).Return(http.StatusCreated, nil).Once()
	s := newTestSender(ms)

	_, err := s.Send(context.Background(), []string{subscription(t, "https://push.example/ok")},
		domain.PushMessage{Title: "T", Body: "B", Data: map[string]string{"notificationId": "n1"}})
	require.NoError(t, err)
	ms.AssertExpectations(t)
}
