package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/emo/internal/assistant"
	"github.com/xaenox/emo/internal/quiz"
	"github.com/xaenox/emo/internal/reminder"
	"github.com/xaenox/emo/internal/session"
	"github.com/xaenox/emo/internal/storage"
)

// Telegram rejects longer messages.
const maxMessageRunes = 4096

// Chatter runs one assistant turn.
type Chatter interface {
	Chat(ctx context.Context, sess *session.Session, message string) assistant.Reply
}

// AlertSource yields the current deadline alerts.
type AlertSource interface {
	Alerts(ctx context.Context) []reminder.Alert
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Deps struct {
	Engine   Chatter
	Sessions *session.Store
	Tasks    storage.TaskStore
	Alerts   AlertSource
	// OwnerChatID receives proactive alerts. Zero disables them.
	OwnerChatID      int64
	ReminderInterval time.Duration
}

type Bot struct {
	client   *tgbotapi.BotAPI
	api      sender
	engine   Chatter
	sessions *session.Store
	tasks    storage.TaskStore
	alerts   AlertSource
	owner    int64
	interval time.Duration
	notified *alertTracker
	logger   *zap.Logger
}

func New(token string, deps Deps, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}
	b := newBot(api, deps, logger)
	b.client = api
	return b, nil
}

func newBot(api sender, deps Deps, logger *zap.Logger) *Bot {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.Sessions == nil {
		deps.Sessions = session.NewStore()
	}
	if deps.ReminderInterval <= 0 {
		deps.ReminderInterval = time.Minute
	}
	return &Bot{
		api:      api,
		engine:   deps.Engine,
		sessions: deps.Sessions,
		tasks:    deps.Tasks,
		alerts:   deps.Alerts,
		owner:    deps.OwnerChatID,
		interval: deps.ReminderInterval,
		notified: newAlertTracker(),
		logger:   logger,
	}
}

// Start handles updates until ctx is cancelled. Every message is handled in
// its own goroutine.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.client.GetUpdatesChan(u)
	defer b.client.StopReceivingUpdates()

	b.logger.Info("Bot started", zap.String("username", b.client.Self.UserName))
	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

// RunReminders scans the task store every interval and pushes new URGENT and
// OVERDUE alerts to the owner chat.
func (b *Bot) RunReminders(ctx context.Context) error {
	if b.owner == 0 || b.alerts == nil {
		b.logger.Info("Proactive reminders disabled")
		return nil
	}
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		b.pushAlerts(ctx)
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Bot) pushAlerts(ctx context.Context) {
	fresh := b.notified.fresh(b.alerts.Alerts(ctx))
	if len(fresh) == 0 {
		return
	}
	lines := []string{"⏰ Deadline reminder:"}
	for _, a := range fresh {
		lines = append(lines, "• "+a.Line())
	}
	b.sendMessage(b.owner, strings.Join(lines, "\n"))
	b.logger.Info("Sent deadline alerts", zap.Int("count", len(fresh)))
}

func sessionID(chatID int64) string {
	return "tg-" + strconv.FormatInt(chatID, 10)
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	content := message.Text
	if message.Caption != "" {
		content = message.Caption
	}
	if strings.TrimSpace(content) == "" {
		return
	}

	chatID := message.Chat.ID
	if _, err := b.api.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("Failed to send typing action", zap.Error(err))
	}

	sess := b.sessions.Get(sessionID(chatID))
	reply := b.engine.Chat(ctx, sess, content)
	b.logger.Info("Answered message",
		zap.Int64("chat_id", chatID),
		zap.String("query_type", string(reply.QueryType)),
		zap.Strings("tools", reply.ToolsUsed))

	if id, ok := quiz.ParseMarker(reply.Response); ok {
		if q, found := sess.Quiz(id); found {
			b.sendQuiz(chatID, q)
			return
		}
	}
	b.sendReply(chatID, message.MessageID, reply.Response)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "new":
		b.sessions.Reset(sessionID(message.Chat.ID))
		b.sendMessage(message.Chat.ID, "🆕 Started a new conversation.")
	case "tasks":
		b.handleTasks(ctx, message)
	case "done":
		b.handleDone(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Hi, I'm Emo! 👋
I can keep your to-do list, remember things for you, read web pages, videos and news, and search your email.

Just talk to me. Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/new - Start a new conversation
/tasks - Show your pending tasks
/done N - Mark task N as done

You can also ask in plain words:
- "add task: call mom tomorrow at 5pm"
- "find emails from Ann today"
- "summarize https://example.com"
- "quiz me on Go channels"`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleTasks(ctx context.Context, message *tgbotapi.Message) {
	pending, err := b.tasks.ListPending(ctx)
	if err != nil {
		b.logger.Error("Failed to list tasks",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't load your tasks.")
		return
	}
	if len(pending) == 0 {
		b.sendMessage(message.Chat.ID, "📋 Your to-do list is empty.")
		return
	}

	response := "*Your tasks:*\n"
	for i, task := range pending {
		line := fmt.Sprintf("%d. %s", i+1, task.Text)
		if task.Deadline != nil {
			line += " ⏰ " + task.Deadline.Format("2006-01-02 15:04")
		}
		response += escapeMarkdown(line) + "\n"
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, response)
	msg.ParseMode = tgbotapi.ModeMarkdownV2
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send tasks",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleDone(ctx context.Context, message *tgbotapi.Message) {
	index, err := strconv.Atoi(strings.TrimSpace(message.CommandArguments()))
	if err != nil || index < 1 {
		b.sendMessage(message.Chat.ID, "Usage: /done N")
		return
	}
	task, err := b.tasks.CompleteByIndex(ctx, index)
	if err != nil {
		b.logger.Warn("Failed to complete task",
			zap.Error(err),
			zap.Int("index", index))
		b.sendErrorMessage(message.Chat.ID, fmt.Sprintf("Task #%d not found.", index))
		return
	}
	b.sendMessage(message.Chat.ID, fmt.Sprintf("✅ Completed: '%s'", task.Text))
}

func (b *Bot) sendQuiz(chatID int64, q *quiz.Quiz) {
	b.sendMessage(chatID, fmt.Sprintf("📝 %s (%d questions)", q.Title, len(q.Questions)))
	for _, c := range quizMessages(chatID, q) {
		if _, err := b.api.Send(c); err != nil {
			b.logger.Error("Failed to send quiz question",
				zap.Error(err),
				zap.String("quiz_id", q.ID))
		}
	}
}

// quizMessages renders choice questions as Telegram quiz polls. Questions a
// poll cannot carry are sent as plain text.
func quizMessages(chatID int64, q *quiz.Quiz) []tgbotapi.Chattable {
	out := make([]tgbotapi.Chattable, 0, len(q.Questions))
	for i, question := range q.Questions {
		options := question.Options
		if question.Type == quiz.TrueFalse && len(options) == 0 {
			options = []string{"True", "False"}
		}
		correct, ok := question.CorrectOption()
		if !ok || len(options) < 2 || len(options) > 10 || correct < 0 || correct >= len(options) {
			text := fmt.Sprintf("%d. %s", i+1, question.Question)
			out = append(out, tgbotapi.NewMessage(chatID, text))
			continue
		}

		trimmed := make([]string, len(options))
		for j, o := range options {
			trimmed[j] = clip(o, 100)
		}
		poll := tgbotapi.NewPoll(chatID, clip(fmt.Sprintf("%d. %s", i+1, question.Question), 300), trimmed...)
		poll.Type = "quiz"
		poll.IsAnonymous = false
		poll.CorrectOptionID = int64(correct)
		poll.Explanation = clip(question.Explanation, 200)
		out = append(out, poll)
	}
	return out
}

// alertTracker remembers which tasks were already pushed. Tasks that leave
// the alert list are forgotten.
type alertTracker struct {
	mu   sync.Mutex
	sent map[string]bool
}

func newAlertTracker() *alertTracker {
	return &alertTracker{sent: make(map[string]bool)}
}

func (t *alertTracker) fresh(alerts []reminder.Alert) []reminder.Alert {
	t.mu.Lock()
	defer t.mu.Unlock()

	current := make(map[string]bool, len(alerts))
	var out []reminder.Alert
	for _, a := range alerts {
		if a.Urgency != reminder.Urgent && a.Urgency != reminder.Overdue {
			continue
		}
		current[a.Task.ID] = true
		if t.sent[a.Task.ID] {
			continue
		}
		out = append(out, a)
	}
	for id := range current {
		t.sent[id] = true
	}
	for id := range t.sent {
		if !current[id] {
			delete(t.sent, id)
		}
	}
	return out
}

// escapeMarkdown escapes special characters for MarkdownV2.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

// sendReply tries Markdown first and falls back to plain text, since model
// output is not always valid Markdown.
func (b *Bot) sendReply(chatID int64, replyTo int, text string) {
	for _, part := range splitMessage(text, maxMessageRunes) {
		msg := tgbotapi.NewMessage(chatID, part)
		msg.ParseMode = tgbotapi.ModeMarkdown
		msg.ReplyToMessageID = replyTo
		if _, err := b.api.Send(msg); err == nil {
			continue
		}
		msg.ParseMode = ""
		if _, err := b.api.Send(msg); err != nil {
			b.logger.Error("Failed to send reply",
				zap.Error(err),
				zap.Int64("chat_id", chatID))
		}
	}
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// splitMessage cuts text into parts of at most n runes, preferring line breaks.
func splitMessage(text string, n int) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return []string{"(empty)"}
	}
	var parts []string
	for r := []rune(text); len(r) > 0; {
		if len(r) <= n {
			parts = append(parts, string(r))
			break
		}
		cut := n
		for i := n; i > n/2; i-- {
			if r[i-1] == '\n' {
				cut = i
				break
			}
		}
		parts = append(parts, strings.TrimRight(string(r[:cut]), "\n"))
		r = r[cut:]
	}
	return parts
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
