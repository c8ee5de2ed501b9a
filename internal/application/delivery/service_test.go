package delivery

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/zeni-bff/internal/application/notification"
	"github.com/zeni-bff/internal/domain"
	"github.com/zeni-bff/internal/infrastructure/memory"
)

// --- mocks ---

type mockLedger struct{ mock.Mock }

func (m *mockLedger) RecordForRecipients(ctx context.Context, userIDs []string, d notification.Draft) ([]domain.Notification, error) {
	args := m.Called(ctx, userIDs, d)
	list, _ := args.Get(0).([]domain.Notification)
	return list, args.Error(1)
}
func (m *mockLedger) TokensFor(ctx context.Context, userIDs []string) ([]string, error) {
	args := m.Called(ctx, userIDs)
	tokens, _ := args.Get(0).([]string)
	return tokens, args.Error(1)
}
func (m *mockLedger) AllTokens(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	tokens, _ := args.Get(0).([]string)
	return tokens, args.Error(1)
}

func (m *mockLedger) ForgetTokens(ctx context.Context, tokens []string) (int, error) {
	args := m.Called(ctx, tokens)
	return args.Int(0), args.Error(1)
}

type mockPush struct{ mock.Mock }

func (m *mockPush) Send(ctx context.Context, tokens []string, msg domain.PushMessage) (domain.PushReport, error) {
	args := m.Called(ctx, tokens, msg)
	return args.Get(0).(domain.PushReport), args.Error(1)
}

type mockBroadcaster struct{ mock.Mock }

func (m *mockBroadcaster) Broadcast(msg domain.LiveMessage, userIDs []string) int {
	return m.Called(msg, userIDs).Int(0)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var t0 = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

func newService(l ledger, p pushSender, b broadcaster) Service {
	return NewService(ServiceDeps{Ledger: l, Push: p, Broadcaster: b, Clock: fixedClock{t0}})
}

func stored(n int) []domain.Notification { return make([]domain.Notification, n) }

// --- Send ---

func TestSend_Validation(t *testing.T) {
	svc := newService(nil, nil, nil)
	for _, req := range []SendRequest{
		{Body: "b"},
		{Title: "t"},
		{Title: " ", Body: "b"},
		{Title: "t", Body: "b", Channel: "carrier-pigeon"},
	} {
		_, err := svc.Send(context.Background(), req)
		assert.True(t, errors.Is(err, domain.ErrBadRequest), "%+v", req)
	}
}

func TestSend_BothNoRecipients(t *testing.T) {
	l := &mockLedger{}
	l.On("RecordForRecipients", mock.Anything, []string{}, mock.MatchedBy(func(d notification.Draft) bool {
		return d.Channel == domain.ChannelBoth && d.TargetAudience == domain.AudienceAll && d.CreatedAt.Equal(t0)
	})).Return(stored(3), nil)
	l.On("AllTokens", mock.Anything).Return([]string{"a", "b"}, nil)
	p := &mockPush{}
	p.On("Send", mock.Anything, []string{"a", "b"}, mock.MatchedBy(func(m domain.PushMessage) bool {
		return m.Data["channel"] == domain.ChannelBoth && m.Data["targetAudience"] == domain.AudienceAll && m.Data["notificationId"] != ""
	})).Return(domain.PushReport{Sent: 2}, nil)
	b := &mockBroadcaster{}
	b.On("Broadcast", mock.MatchedBy(func(m domain.LiveMessage) bool {
		return m.Type == domain.LiveNotification
	}), []string(nil)).Return(4)

	res, err := newService(l, p, b).Send(context.Background(), SendRequest{Title: "Hello", Body: "World"})
	require.NoError(t, err)
	assert.Equal(t, 3, res.StoredForUsers)
	assert.Equal(t, Channels{FCM: true, InApp: true}, res.Channels)
	assert.Equal(t, Channels{FCM: true, InApp: true}, res.Delivered)
	assert.Equal(t, &PushOutcome{Success: true, Sent: 2}, res.Push)
	assert.Equal(t, 4, res.LiveRecipients)
	assert.Equal(t, t0, res.SentAt)
	l.AssertExpectations(t)
	p.AssertExpectations(t)
	b.AssertExpectations(t)
}

func TestSend_MobileNeverBroadcasts(t *testing.T) {
	l := &mockLedger{}
	l.On("RecordForRecipients", mock.Anything, []string{"u1"}, mock.Anything).Return(stored(1), nil)
	l.On("TokensFor", mock.Anything, []string{"u1"}).Return([]string{"t1"}, nil)
	p := &mockPush{}
	p.On("Send", mock.Anything, []string{"t1"}, mock.Anything).Return(domain.PushReport{Sent: 1}, nil)
	b := &mockBroadcaster{}

	res, err := newService(l, p, b).Send(context.Background(), SendRequest{
		Title: "t", Body: "b", Channel: domain.ChannelMobile, UserIDs: []string{"u1", "u1"},
	})
	require.NoError(t, err)
	assert.False(t, res.Channels.InApp)
	b.AssertNotCalled(t, "Broadcast", mock.Anything, mock.Anything)
}

func TestSend_InAppNeverPushes(t *testing.T) {
	l := &mockLedger{}
	l.On("RecordForRecipients", mock.Anything, []string{"u1"}, mock.Anything).Return(stored(1), nil)
	p := &mockPush{}
	b := &mockBroadcaster{}
	b.On("Broadcast", mock.Anything, []string{"u1"}).Return(1)

	res, err := newService(l, p, b).Send(context.Background(), SendRequest{
		Title: "t", Body: "b", Channel: domain.ChannelInApp, UserIDs: []string{"u1"},
	})
	require.NoError(t, err)
	assert.Nil(t, res.Push)
	assert.False(t, res.Channels.FCM)
	p.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
	l.AssertNotCalled(t, "TokensFor", mock.Anything, mock.Anything)
}

func TestSend_PushFailureDoesNotAbort(t *testing.T) {
	l := &mockLedger{}
	l.On("RecordForRecipients", mock.Anything, mock.Anything, mock.Anything).Return(stored(2), nil)
	l.On("AllTokens", mock.Anything).Return([]string{"a"}, nil)
	p := &mockPush{}
	p.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(domain.PushReport{Failed: 1}, errors.New("quota exceeded"))
	b := &mockBroadcaster{}
	b.On("Broadcast", mock.Anything, mock.Anything).Return(2)

	res, err := newService(l, p, b).Send(context.Background(), SendRequest{Title: "t", Body: "b"})
	require.NoError(t, err)
	assert.Equal(t, &PushOutcome{Reason: "quota exceeded", Failed: 1}, res.Push)
	assert.False(t, res.Delivered.FCM)
	assert.True(t, res.Delivered.InApp)
	assert.Equal(t, 2, res.StoredForUsers)
}

func TestSend_NoTokensSkipsProvider(t *testing.T) {
	l := &mockLedger{}
	l.On("RecordForRecipients", mock.Anything, mock.Anything, mock.Anything).Return(stored(0), nil)
	l.On("AllTokens", mock.Anything).Return([]string(nil), nil)
	p := &mockPush{}

	res, err := newService(l, p, nil).Send(context.Background(), SendRequest{Title: "t", Body: "b", Channel: domain.ChannelMobile})
	require.NoError(t, err)
	assert.Equal(t, &PushOutcome{Success: true}, res.Push)
	assert.Zero(t, res.StoredForUsers)
	p.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

func TestSend_NoProviderConfigured(t *testing.T) {
	l := &mockLedger{}
	l.On("RecordForRecipients", mock.Anything, mock.Anything, mock.Anything).Return(stored(1), nil)
	l.On("AllTokens", mock.Anything).Return([]string{"a"}, nil)

	res, err := newService(l, nil, nil).Send(context.Background(), SendRequest{Title: "t", Body: "b", Channel: domain.ChannelMobile})
	require.NoError(t, err)
	assert.False(t, res.Push.Success)
	assert.Equal(t, ErrPushUnavailable.Error(), res.Push.Reason)
}

func TestSend_LedgerFailureAborts(t *testing.T) {
	l := &mockLedger{}
	l.On("RecordForRecipients", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("disk full"))
	p := &mockPush{}

	_, err := newService(l, p, nil).Send(context.Background(), SendRequest{Title: "t", Body: "b"})
	assert.Error(t, err)
	p.AssertNotCalled(t, "Send", mock.Anything, mock.Anything, mock.Anything)
}

// --- SendTestPush ---

func TestSendTestPush_TokenWins(t *testing.T) {
	l := &mockLedger{}
	p := &mockPush{}
	p.On("Send", mock.Anything, []string{"tok"}, domain.PushMessage{
		Title: defaultTestTitle, Body: defaultTestBody, Data: map[string]string{"test": "true"},
	}).Return(domain.PushReport{Sent: 1}, nil)

	res, err := newService(l, p, nil).SendTestPush(context.Background(), TestPushRequest{Token: "tok", UserID: "u1"})
	require.NoError(t, err)
	assert.Equal(t, 1, res.TokensTried)
	assert.Equal(t, PushOutcome{Success: true, Sent: 1}, res.Result)
	l.AssertNotCalled(t, "TokensFor", mock.Anything, mock.Anything)
	l.AssertNotCalled(t, "RecordForRecipients", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendTestPush_UserThenAll(t *testing.T) {
	l := &mockLedger{}
	l.On("TokensFor", mock.Anything, []string{"u1"}).Return([]string{"a", "b"}, nil)
	l.On("AllTokens", mock.Anything).Return([]string{"a", "b", "c"}, nil)
	p := &mockPush{}
	p.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(domain.PushReport{Sent: 1}, nil)
	svc := newService(l, p, nil)

	res, err := svc.SendTestPush(context.Background(), TestPushRequest{UserID: "u1", Title: "Custom"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.TokensTried)

	res, err = svc.SendTestPush(context.Background(), TestPushRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, res.TokensTried)
}

func TestSendTestPush_NoTokens(t *testing.T) {
	l := &mockLedger{}
	l.On("AllTokens", mock.Anything).Return([]string{}, nil)

	res, err := newService(l, &mockPush{}, nil).SendTestPush(context.Background(), TestPushRequest{})
	require.NoError(t, err)
	assert.Equal(t, 0, res.TokensTried)
	assert.Equal(t, PushOutcome{Success: true}, res.Result)
}

// --- end to end with the in-memory ledger ---

type recordingBroadcaster struct {
	filters [][]string
}

func (r *recordingBroadcaster) Broadcast(_ domain.LiveMessage, userIDs []string) int {
	r.filters = append(r.filters, userIDs)
	return 0
}

func TestFlow_BroadcastToKnownUsers(t *testing.T) {
	ctx := context.Background()
	ledgerSvc := notification.NewService(memory.NewNotificationRepo(), memory.NewDeviceRepo(), fixedClock{t0})
	_, err := ledgerSvc.RegisterDevice(ctx, domain.RegisterDeviceRequest{UserID: "u1", Token: "a"})
	require.NoError(t, err)
	_, err = ledgerSvc.RegisterDevice(ctx, domain.RegisterDeviceRequest{UserID: "u2", Token: "b"})
	require.NoError(t, err)

	p := &mockPush{}
	p.On("Send", mock.Anything, mock.MatchedBy(func(tokens []string) bool { return len(tokens) == 2 }), mock.Anything).
		Return(domain.PushReport{Sent: 2}, nil)
	b := &recordingBroadcaster{}

	res, err := newService(ledgerSvc, p, b).Send(ctx, SendRequest{Title: "Hello", Body: "World", Channel: domain.ChannelBoth})
	require.NoError(t, err)
	assert.Equal(t, 2, res.StoredForUsers)
	assert.Equal(t, 2, res.Push.Sent)
	require.Len(t, b.filters, 1)
	assert.Nil(t, b.filters[0])

	for _, uid := range []string{"u1", "u2"} {
		list, err := ledgerSvc.List(ctx, uid, notification.ListOptions{})
		require.NoError(t, err)
		require.Len(t, list, 1)
		assert.Equal(t, "Hello", list[0].Title)
		assert.False(t, list[0].Read)
	}
}

func TestSend_ForgetsGoneTokens(t *testing.T) {
	l := &mockLedger{}
	l.On("RecordForRecipients", mock.Anything, mock.Anything, mock.Anything).Return(stored(1), nil)
	l.On("AllTokens", mock.Anything).Return([]string{"a", "b"}, nil)
	l.On("ForgetTokens", mock.Anything, []string{"b"}).Return(1, nil).Once()
	p := &mockPush{}
	p.On("Send", mock.Anything, mock.Anything, mock.Anything).Return(domain.PushReport{Sent: 1, Failed: 1, Gone: []string{"b"}}, nil)

	res, err := newService(l, p, nil).Send(context.Background(), SendRequest{Title: "t", Body: "b", Channel: domain.ChannelMobile})
	require.NoError(t, err)
	assert.Equal(t, &PushOutcome{Success: true, Sent: 1, Failed: 1}, res.Push)
	l.AssertExpectations(t)
}

func TestSend_ForgetFailureKeepsOutcome(t *testing.T) {
	l := &mockLedger{}
	l.On("RecordForRecipients", mock.Anything, mock.Anything, mock.Anything).Return(stored(1), nil)
	l.On("AllTokens", mock.Anything).Return([]string{"a"}, nil)
	l.On("ForgetTokens", mock.Anything, []string{"a"}).Return(0, errors.New("throttled"))
	p := &mockPush{}
	p.On("Send", mock.Anything, mock.Anything, mock.Anything).
		Return(domain.PushReport{Failed: 1, Gone: []string{"a"}}, errors.New("push rejected for every token"))

	res, err := newService(l, p, nil).Send(context.Background(), SendRequest{Title: "t", Body: "b", Channel: domain.ChannelMobile})
	require.NoError(t, err)
	assert.Equal(t, &PushOutcome{Reason: "push rejected for every token", Failed: 1}, res.Push)
	l.AssertExpectations(t)
}

func TestFlow_GoneTokenIsNotRetried(t *testing.T) {
	ctx := context.Background()
	ledgerSvc := notification.NewService(memory.NewNotificationRepo(), memory.NewDeviceRepo(), fixedClock{t0})
	_, err := ledgerSvc.RegisterDevice(ctx, domain.RegisterDeviceRequest{UserID: "u1", Token: "live"})
	require.NoError(t, err)
	_, err = ledgerSvc.RegisterDevice(ctx, domain.RegisterDeviceRequest{UserID: "u2", Token: "stale"})
	require.NoError(t, err)

	p := &mockPush{}
	p.On("Send", mock.Anything, mock.MatchedBy(func(tokens []string) bool { return len(tokens) == 2 }), mock.Anything).
		Return(domain.PushReport{Sent: 1, Failed: 1, Gone: []string{"stale"}}, nil).Once()
	p.On("Send", mock.Anything, []string{"live"}, mock.Anything).
		Return(domain.PushReport{Sent: 1}, nil).Once()
	svc := newService(ledgerSvc, p, nil)
	req := SendRequest{Title: "t", Body: "b", Channel: domain.ChannelMobile}

	_, err = svc.Send(ctx, req)
	require.NoError(t, err)
	res, err := svc.Send(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Push.Sent)
	p.AssertExpectations(t)
}
