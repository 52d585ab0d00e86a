package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/require"

	"github.com/madtank/workoutbot/internal/conversation"
	"github.com/madtank/workoutbot/internal/training"
)

type sentMessage struct {
	chatID int64
	text   string
}

type fakeClient struct {
	mu      sync.Mutex
	batches [][]tgbotapi.Update
	configs []tgbotapi.UpdateConfig
	sent    []sentMessage
	getErr  error
	sendErr error
}

func (c *fakeClient) GetUpdates(config tgbotapi.UpdateConfig) ([]tgbotapi.Update, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.configs = append(c.configs, config)
	if c.getErr != nil {
		return nil, c.getErr
	}
	if len(c.batches) == 0 {
		return nil, nil
	}
	batch := c.batches[0]
	c.batches = c.batches[1:]
	return batch, nil
}

func (c *fakeClient) Send(chattable tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return tgbotapi.Message{}, c.sendErr
	}
	msg := chattable.(tgbotapi.MessageConfig)
	c.sent = append(c.sent, sentMessage{chatID: msg.ChatID, text: msg.Text})
	return tgbotapi.Message{}, nil
}

func (c *fakeClient) polls() []tgbotapi.UpdateConfig {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]tgbotapi.UpdateConfig(nil), c.configs...)
}

func textUpdate(id int, userID, chatID int64, text string) tgbotapi.Update {
	return tgbotapi.Update{
		UpdateID: id,
		Message: &tgbotapi.Message{
			From: &tgbotapi.User{ID: userID},
			Chat: &tgbotapi.Chat{ID: chatID},
			Text: text,
		},
	}
}

func TestHandleUpdatesAnswersAndAdvancesOffset(t *testing.T) {
	store := conversation.NewManager()
	p, _ := newTestProcessor(store)
	client := &fakeClient{batches: [][]tgbotapi.Update{{
		textUpdate(10, 1, 100, "/START"),
		{UpdateID: 12},
		textUpdate(11, 2, 200, "/HELP"),
		textUpdate(13, 1, 100, ""),
	}}}
	poller := NewPoller(client, p, WithLongPoll(30, 50))

	next, err := poller.HandleUpdates(context.Background(), 10)
	require.NoError(t, err)
	require.Equal(t, 14, next)

	require.Equal(t, 10, client.configs[0].Offset)
	require.Equal(t, 30, client.configs[0].Timeout)
	require.Equal(t, 50, client.configs[0].Limit)

	require.Len(t, client.sent, 2)
	require.Equal(t, int64(100), client.sent[0].chatID)
	require.Contains(t, client.sent[0].text, "Choose a workout")
	require.Equal(t, int64(200), client.sent[1].chatID)

	uc, _ := store.GetOrCreate(context.Background(), 1)
	require.Equal(t, training.ChooseTraining, uc.State)
}

func TestHandleUpdatesEmptyBatchKeepsOffset(t *testing.T) {
	p, _ := newTestProcessor(conversation.NewManager())
	poller := NewPoller(&fakeClient{}, p)

	next, err := poller.HandleUpdates(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, 42, next)
}

func TestHandleUpdatesFetchError(t *testing.T) {
	p, _ := newTestProcessor(conversation.NewManager())
	poller := NewPoller(&fakeClient{getErr: errors.New("timeout")}, p)

	next, err := poller.HandleUpdates(context.Background(), 7)
	require.Error(t, err)
	require.Equal(t, 7, next)
}

func TestHandleUpdatesDeliveryFailureKeepsState(t *testing.T) {
	store := conversation.NewManager()
	p, _ := newTestProcessor(store)
	client := &fakeClient{
		batches: [][]tgbotapi.Update{{textUpdate(1, 5, 5, "/START")}},
		sendErr: errors.New("forbidden"),
	}
	poller := NewPoller(client, p)

	next, err := poller.HandleUpdates(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 2, next)

	uc, _ := store.GetOrCreate(context.Background(), 5)
	require.Equal(t, training.ChooseTraining, uc.State)
}

func TestHandleUpdatesSkipsFailedTurn(t *testing.T) {
	store := &flakyStore{Manager: conversation.NewManager(), failGet: true}
	p, _ := newTestProcessor(store)
	client := &fakeClient{batches: [][]tgbotapi.Update{{
		textUpdate(1, 5, 5, "/START"),
		textUpdate(2, 6, 6, "/START"),
	}}}
	poller := NewPoller(client, p)

	next, err := poller.HandleUpdates(context.Background(), 0)
	require.NoError(t, err)
	require.Equal(t, 3, next)
	require.Len(t, client.sent, 1)
	require.Equal(t, int64(6), client.sent[0].chatID)
}

func TestRunStopsOnCancel(t *testing.T) {
	p, _ := newTestProcessor(conversation.NewManager())
	client := &fakeClient{batches: [][]tgbotapi.Update{{textUpdate(3, 1, 1, "/HELP")}}}
	poller := NewPoller(client, p, WithInterval(time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- poller.Run(ctx, 0) }()

	require.Eventually(t, func() bool { return len(client.polls()) >= 2 }, time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("poller did not stop")
	}
	require.Equal(t, 4, client.polls()[1].Offset)
}
