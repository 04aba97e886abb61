// Package telegram provides Telegram Bot API integration using go-telegram/bot library.
package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"tunesmith/internal/chat"
	"tunesmith/internal/core"
	"tunesmith/internal/i18n"
	"tunesmith/pkg/text"
)

// Config holds Telegram-specific configuration
type Config struct {
	BotToken      string
	AllowedUserID int64 // 0 allows everyone
	Language      string
}

// Orchestrator is the part of the pipeline the frontend drives.
type Orchestrator interface {
	Run(ctx context.Context, request string, progress core.ProgressFunc) (*core.Result, error)
}

// Frontend implements the chat.Frontend interface for Telegram
type Frontend struct {
	config       *Config
	logger       *zap.Logger
	bot          *bot.Bot
	parser       *text.Parser
	localizer    *i18n.Localizer
	formatter    *chat.Formatter
	orchestrator Orchestrator
	profile      core.ProfileStore
}

// NewFrontend creates a new Telegram frontend
func NewFrontend(config *Config, orchestrator Orchestrator, profile core.ProfileStore,
	logger *zap.Logger) *Frontend {
	language := config.Language
	if language == "" {
		language = i18n.DefaultLanguage
	}
	localizer := i18n.NewLocalizer(language)

	return &Frontend{
		config:       config,
		logger:       logger,
		parser:       text.NewParser(),
		localizer:    localizer,
		formatter:    chat.NewFormatter(localizer),
		orchestrator: orchestrator,
		profile:      profile,
	}
}

// Start initializes the Telegram bot and blocks, processing updates until the
// context is cancelled.
func (f *Frontend) Start(ctx context.Context) error {
	opts := []bot.Option{
		bot.WithDefaultHandler(f.handleUpdate),
	}

	b, err := bot.New(f.config.BotToken, opts...)
	if err != nil {
		return fmt.Errorf("failed to create telegram bot: %w", err)
	}

	f.bot = b

	f.logger.Info("Telegram frontend started",
		zap.Int64("allowed_user_id", f.config.AllowedUserID))

	f.bot.Start(ctx)
	return nil
}

// SendText sends a text message to the specified chat
func (f *Frontend) SendText(ctx context.Context, chatID, messageText string) (string, error) {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid chat ID: %w", err)
	}

	// Disable link previews since replies carry playlist links which don't
	// render well in Telegram's preview system
	disabled := true
	msg, err := f.bot.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: chatIDInt,
		Text:   messageText,
		LinkPreviewOptions: &models.LinkPreviewOptions{
			IsDisabled: &disabled,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to send message: %w", err)
	}

	return strconv.Itoa(msg.ID), nil
}

// EditMessage edits an existing message by ID
func (f *Frontend) EditMessage(ctx context.Context, chatID, messageID, newText string) error {
	chatIDInt, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}

	msgIDInt, err := strconv.Atoi(messageID)
	if err != nil {
		return fmt.Errorf("invalid message ID: %w", err)
	}

	if _, err := f.bot.EditMessageText(ctx, &bot.EditMessageTextParams{
		ChatID:    chatIDInt,
		MessageID: msgIDInt,
		Text:      newText,
	}); err != nil {
		return fmt.Errorf("failed to edit message: %w", err)
	}

	return nil
}

// handleUpdate processes incoming Telegram updates
func (f *Frontend) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update.Message != nil {
		f.handleMessage(ctx, update.Message)
	}
}

// handleMessage processes incoming messages
func (f *Frontend) handleMessage(ctx context.Context, msg *models.Message) {
	if msg.From == nil || msg.From.IsBot || msg.Text == "" {
		return
	}

	chatID := strconv.FormatInt(msg.Chat.ID, 10)

	if f.config.AllowedUserID != 0 && msg.From.ID != f.config.AllowedUserID {
		f.logger.Warn("Rejected message from unauthorized user",
			zap.Int64("user_id", msg.From.ID))
		f.reply(ctx, chatID, f.localizer.T("error.unauthorized"))
		return
	}

	message := &chat.Message{
		ID:         strconv.Itoa(msg.ID),
		ChatID:     chatID,
		SenderID:   msg.From.ID,
		SenderName: displayName(msg.From),
		Text:       msg.Text,
		Raw:        msg,
	}

	if f.parser.IsCommand(message.Text) {
		f.handleCommand(ctx, message)
		return
	}

	f.handleRequest(ctx, message)
}

func (f *Frontend) handleCommand(ctx context.Context, msg *chat.Message) {
	command, args, _ := strings.Cut(msg.Text, " ")

	switch command {
	case "/start":
		f.reply(ctx, msg.ChatID, f.localizer.T("bot.startup"))

	case "/taste":
		f.handleTaste(ctx, msg, args)

	case "/profile":
		f.handleProfile(ctx, msg)

	case "/myid":
		f.reply(ctx, msg.ChatID, f.localizer.T("myid.reply", msg.SenderID))

	default:
		// Unknown commands go through the pipeline as free text
		f.handleRequest(ctx, msg)
	}
}

func (f *Frontend) handleTaste(ctx context.Context, msg *chat.Message, args string) {
	key, value, err := f.parser.ParseTasteArgs(args)
	if err != nil {
		f.reply(ctx, msg.ChatID, f.localizer.T("error.taste.usage"))
		return
	}

	if err := f.profile.Set(ctx, key, value); err != nil {
		f.logger.Error("Failed to save taste preference", zap.Error(err))
		f.reply(ctx, msg.ChatID, f.localizer.T("error.taste.save"))
		return
	}

	f.reply(ctx, msg.ChatID, f.localizer.T("profile.saved", key, value))
}

func (f *Frontend) handleProfile(ctx context.Context, msg *chat.Message) {
	profile, err := f.profile.Get(ctx)
	if err != nil {
		f.logger.Error("Failed to load taste profile", zap.Error(err))
		f.reply(ctx, msg.ChatID, f.localizer.T("error.generic"))
		return
	}

	if len(profile) == 0 {
		f.reply(ctx, msg.ChatID, f.localizer.T("profile.empty"))
		return
	}

	lines := []string{f.localizer.T("profile.header")}
	for key, value := range profile {
		lines = append(lines, f.localizer.T("profile.entry", key, value))
	}
	f.reply(ctx, msg.ChatID, strings.Join(lines, "\n"))
}

// handleRequest runs one free-text request through the pipeline, streaming
// progress by editing a single status message. The user always gets a
// terminal reply, a generic error at worst.
func (f *Frontend) handleRequest(ctx context.Context, msg *chat.Message) {
	request := f.parser.NormalizeRequest(msg.Text)
	if request == "" {
		return
	}

	statusID, err := f.SendText(ctx, msg.ChatID, f.localizer.T("bot.working"))
	if err != nil {
		f.logger.Error("Failed to send status message", zap.Error(err))
	}

	progress := func(status string) {
		if statusID == "" {
			return
		}
		if err := f.EditMessage(ctx, msg.ChatID, statusID, status); err != nil {
			f.logger.Debug("Failed to update status message", zap.Error(err))
		}
	}

	result, err := f.orchestrator.Run(ctx, request, progress)
	if err != nil {
		f.logger.Error("Pipeline failed", zap.Error(err))
		f.deliver(ctx, msg.ChatID, statusID, f.localizer.T("error.generic"))
		return
	}

	f.deliver(ctx, msg.ChatID, statusID, f.formatter.FormatResult(result))
}

// deliver replaces the status message with the final text, falling back to a
// fresh message when editing fails.
func (f *Frontend) deliver(ctx context.Context, chatID, statusID, finalText string) {
	if statusID != "" {
		if err := f.EditMessage(ctx, chatID, statusID, finalText); err == nil {
			return
		}
	}
	f.reply(ctx, chatID, finalText)
}

func (f *Frontend) reply(ctx context.Context, chatID, replyText string) {
	if _, err := f.SendText(ctx, chatID, replyText); err != nil {
		f.logger.Error("Failed to send reply", zap.Error(err))
	}
}

func displayName(user *models.User) string {
	name := user.FirstName
	if user.LastName != "" {
		name += " " + user.LastName
	}
	if name == "" {
		name = user.Username
	}
	return name
}
