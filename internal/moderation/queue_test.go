package moderation

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/mymmrac/telego"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"classifieds-bot/internal/auth"
	"classifieds-bot/internal/database"
	"classifieds-bot/internal/locales"
	"classifieds-bot/internal/submissions"
)

// --- Mocks ---

// MockBot is a mock implementing the telegoapi.BotAPI interface
type MockBot struct {
	mock.Mock
}

func (m *MockBot) SendMessage(ctx context.Context, params *telego.SendMessageParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendPhoto(ctx context.Context, params *telego.SendPhotoParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) SendMediaGroup(ctx context.Context, params *telego.SendMediaGroupParams) ([]telego.Message, error) {
	args := m.Called(ctx, params)
	if msgs, ok := args.Get(0).([]telego.Message); ok {
		return msgs, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) EditMessageText(ctx context.Context, params *telego.EditMessageTextParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) EditMessageReplyMarkup(ctx context.Context, params *telego.EditMessageReplyMarkupParams) (*telego.Message, error) {
	args := m.Called(ctx, params)
	if msg, ok := args.Get(0).(*telego.Message); ok {
		return msg, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBot) AnswerCallbackQuery(ctx context.Context, params *telego.AnswerCallbackQueryParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

func (m *MockBot) SetMyCommands(ctx context.Context, params *telego.SetMyCommandsParams) error {
	args := m.Called(ctx, params)
	return args.Error(0)
}

// --- Test Suite Setup ---

const (
	testChannelID   = int64(-100123456)
	testAdminID     = int64(1111)
	testOtherAdmin  = int64(2222)
	testSubmitterID = int64(98765)
)

type testQueueSuite struct {
	mockBot *MockBot
	store   *submissions.Store
	queue   *Queue
}

func setupTestQueueSuite(t *testing.T) *testQueueSuite {
	t.Helper()
	locales.Init("en")

	mockBot := new(MockBot)
	store := submissions.NewStore()
	checker, err := auth.NewAdminChecker([]int64{testAdminID, testOtherAdmin})
	require.NoError(t, err)

	queue := NewQueue(mockBot, checker, testChannelID, store, database.NewNoopListingRepository())
	return &testQueueSuite{mockBot: mockBot, store: store, queue: queue}
}

func completedSubmission(t *testing.T, photos ...string) *submissions.Submission {
	t.Helper()
	sub := submissions.New(testSubmitterID, testSubmitterID, "seller", "old bike")
	sub.ImprovedText = "Old bike, rides fine"
	sub.Address = "5 Main St"
	sub.Price = "1200"
	sub.Photos = photos
	sub.Status = submissions.StatusPending
	sub.Step = submissions.StepSubmitted
	return sub
}

// submitAndCaptureTicket drives SubmitForReview and extracts the ticket ID
// from the approve button of the first review keyboard.
func (s *testQueueSuite) submitAndCaptureTicket(t *testing.T, sub *submissions.Submission) string {
	t.Helper()
	require.NoError(t, s.store.Create(sub))

	var ticketID string
	capture := func(markup telego.ReplyMarkup) {
		keyboard, ok := markup.(*telego.InlineKeyboardMarkup)
		if !ok || keyboard == nil || len(keyboard.InlineKeyboard) == 0 {
			return
		}
		data := keyboard.InlineKeyboard[0][0].CallbackData
		parts := strings.Split(data, ":")
		if len(parts) == 3 {
			ticketID = parts[1]
		}
	}

	s.mockBot.On("SendPhoto", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			if params, ok := args.Get(1).(*telego.SendPhotoParams); ok && params.ReplyMarkup != nil {
				capture(params.ReplyMarkup)
			}
		}).
		Return(&telego.Message{MessageID: 700}, nil)
	s.mockBot.On("SendMediaGroup", mock.Anything, mock.Anything).
		Return([]telego.Message{{MessageID: 700}}, nil)
	s.mockBot.On("SendMessage", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			if params, ok := args.Get(1).(*telego.SendMessageParams); ok && params.ReplyMarkup != nil {
				capture(params.ReplyMarkup)
			}
		}).
		Return(&telego.Message{MessageID: 701}, nil)
	s.mockBot.On("EditMessageReplyMarkup", mock.Anything, mock.Anything).
		Return(&telego.Message{}, nil)

	require.NoError(t, s.queue.SubmitForReview(context.Background(), sub))
	require.NotEmpty(t, ticketID, "review keyboard with a ticket ID was not sent")
	return ticketID
}

// --- Tests ---

func TestSubmitForReviewNotifiesAllAdmins(t *testing.T) {
	s := setupTestQueueSuite(t)
	s.submitAndCaptureTicket(t, completedSubmission(t, "photo-1"))

	// One review copy per admin, photo plus keyboard in one message.
	s.mockBot.AssertNumberOfCalls(t, "SendPhoto", 2)
	s.mockBot.AssertNotCalled(t, "SendMediaGroup", mock.Anything, mock.Anything)
}

func TestSubmitForReviewAlbumUsesControlMessage(t *testing.T) {
	s := setupTestQueueSuite(t)
	s.submitAndCaptureTicket(t, completedSubmission(t, "photo-1", "photo-2"))

	// Albums cannot carry a keyboard, so each admin gets the album plus a
	// separate control message.
	s.mockBot.AssertNumberOfCalls(t, "SendMediaGroup", 2)
	s.mockBot.AssertNumberOfCalls(t, "SendMessage", 2)
}

func TestDecideUnauthorized(t *testing.T) {
	s := setupTestQueueSuite(t)
	ticketID := s.submitAndCaptureTicket(t, completedSubmission(t, "photo-1"))

	err := s.queue.Decide(context.Background(), ticketID, int64(555), DecisionApproved)
	assert.ErrorIs(t, err, ErrUnauthorized)

	// The submitter's slot is untouched.
	_, ok := s.store.Get(testSubmitterID)
	assert.True(t, ok)
}

func TestDecideUnknownTicket(t *testing.T) {
	s := setupTestQueueSuite(t)
	err := s.queue.Decide(context.Background(), "no-such-ticket", testAdminID, DecisionApproved)
	assert.ErrorIs(t, err, ErrTicketNotFound)
}

func TestDecideApprovePublishesAndFreesSlot(t *testing.T) {
	s := setupTestQueueSuite(t)
	ticketID := s.submitAndCaptureTicket(t, completedSubmission(t, "photo-1"))

	require.NoError(t, s.queue.Decide(context.Background(), ticketID, testAdminID, DecisionApproved))

	// Review copies to two admins plus the channel post.
	s.mockBot.AssertNumberOfCalls(t, "SendPhoto", 3)
	_, ok := s.store.Get(testSubmitterID)
	assert.False(t, ok, "approval must free the submitter's slot")

	// A late tap reports the decision instead of rerunning it.
	err := s.queue.Decide(context.Background(), ticketID, testOtherAdmin, DecisionRejected)
	assert.ErrorIs(t, err, ErrAlreadyDecided)
}

func TestDecideRejectSkipsChannel(t *testing.T) {
	s := setupTestQueueSuite(t)
	ticketID := s.submitAndCaptureTicket(t, completedSubmission(t, "photo-1"))

	require.NoError(t, s.queue.Decide(context.Background(), ticketID, testAdminID, DecisionRejected))

	// Only the two review copies; nothing goes to the channel.
	s.mockBot.AssertNumberOfCalls(t, "SendPhoto", 2)
	_, ok := s.store.Get(testSubmitterID)
	assert.False(t, ok, "rejection must free the submitter's slot")
}

func TestDecideConcurrentExactlyOnce(t *testing.T) {
	s := setupTestQueueSuite(t)
	ticketID := s.submitAndCaptureTicket(t, completedSubmission(t, "photo-1"))

	var wg sync.WaitGroup
	results := make(chan error, 2)
	for _, actor := range []int64{testAdminID, testOtherAdmin} {
		wg.Add(1)
		go func(actor int64) {
			defer wg.Done()
			results <- s.queue.Decide(context.Background(), ticketID, actor, DecisionApproved)
		}(actor)
	}
	wg.Wait()
	close(results)

	var won, lost int
	for err := range results {
		switch {
		case err == nil:
			won++
		case errors.Is(err, ErrAlreadyDecided):
			lost++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, won, "exactly one decision may win")
	assert.Equal(t, 1, lost)

	// Exactly one channel post: two review copies plus one publication.
	s.mockBot.AssertNumberOfCalls(t, "SendPhoto", 3)
}

func TestPublishFailureKeepsTicketRetryable(t *testing.T) {
	locales.Init("en")
	mockBot := new(MockBot)
	store := submissions.NewStore()
	checker, err := auth.NewAdminChecker([]int64{testAdminID})
	require.NoError(t, err)
	queue := NewQueue(mockBot, checker, testChannelID, store, database.NewNoopListingRepository())

	sub := completedSubmission(t, "photo-1")
	require.NoError(t, store.Create(sub))

	var ticketID string
	mockBot.On("SendPhoto", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			params := args.Get(1).(*telego.SendPhotoParams)
			if keyboard, ok := params.ReplyMarkup.(*telego.InlineKeyboardMarkup); ok && keyboard != nil {
				parts := strings.Split(keyboard.InlineKeyboard[0][0].CallbackData, ":")
				if len(parts) == 3 {
					ticketID = parts[1]
				}
			}
		}).
		Return(&telego.Message{MessageID: 700}, nil).Once()
	require.NoError(t, queue.SubmitForReview(context.Background(), sub))
	require.NotEmpty(t, ticketID)

	// First publish attempt fails.
	mockBot.On("SendPhoto", mock.Anything, mock.Anything).
		Return(nil, errors.New("telegram: bad gateway")).Once()
	err = queue.Decide(context.Background(), ticketID, testAdminID, DecisionApproved)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAlreadyDecided)

	// The submission is still pending; a retry can now succeed.
	_, ok := store.Get(testSubmitterID)
	assert.True(t, ok, "a failed publish must not free the slot")

	mockBot.On("SendPhoto", mock.Anything, mock.Anything).
		Return(&telego.Message{MessageID: 800}, nil)
	mockBot.On("SendMessage", mock.Anything, mock.Anything).
		Return(&telego.Message{MessageID: 801}, nil)
	mockBot.On("EditMessageReplyMarkup", mock.Anything, mock.Anything).
		Return(&telego.Message{}, nil)
	require.NoError(t, queue.Decide(context.Background(), ticketID, testAdminID, DecisionApproved))

	_, ok = store.Get(testSubmitterID)
	assert.False(t, ok)
}

func TestHandleCallbackQueryRouting(t *testing.T) {
	s := setupTestQueueSuite(t)
	ctx := context.Background()

	// Foreign data is not claimed.
	processed, err := s.queue.HandleCallbackQuery(ctx, telego.CallbackQuery{ID: "q1", Data: "text:keep"})
	require.NoError(t, err)
	assert.False(t, processed)

	// A decision callback from an admin is claimed and answered.
	ticketID := s.submitAndCaptureTicket(t, completedSubmission(t, "photo-1"))
	s.mockBot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)

	processed, err = s.queue.HandleCallbackQuery(ctx, telego.CallbackQuery{
		ID:   "q2",
		From: telego.User{ID: testAdminID},
		Data: callbackData(ticketID, actionReject),
	})
	require.NoError(t, err)
	assert.True(t, processed)

	_, ok := s.store.Get(testSubmitterID)
	assert.False(t, ok)
}

func TestHandleCallbackQueryNonAdminAnswered(t *testing.T) {
	s := setupTestQueueSuite(t)
	ticketID := s.submitAndCaptureTicket(t, completedSubmission(t, "photo-1"))
	s.mockBot.On("AnswerCallbackQuery", mock.Anything, mock.Anything).Return(nil)

	processed, err := s.queue.HandleCallbackQuery(context.Background(), telego.CallbackQuery{
		ID:   "q3",
		From: telego.User{ID: int64(555)},
		Data: callbackData(ticketID, actionApprove),
	})
	require.NoError(t, err)
	assert.True(t, processed)

	// The ticket is still pending for a real admin.
	require.NoError(t, s.queue.Decide(context.Background(), ticketID, testAdminID, DecisionRejected))
}
