package chat

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/firestige/taskctl/internal/log"
)

// TelegramDriver is the polling I/O driver for the chat controller
// (spec.md §4.7's "conversational surface over an external messaging
// protocol (polling-based)"), grounded in original_source's use of
// python-telegram-bot's Updater/CommandHandler.
type TelegramDriver struct {
	token string

	mu      sync.Mutex
	bot     *tgbotapi.BotAPI
	ctrl    *Controller
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewTelegramDriver builds a driver for the given bot token (already
// decoded from its double-base64 obfuscated config form). The
// Controller is wired to this driver as its Outbound.
func NewTelegramDriver(token string, runner Runner, allowedUsers []string) *TelegramDriver {
	d := &TelegramDriver{token: token}
	d.ctrl = New(runner, d, allowedUsers)
	return d
}

// Start connects to the Telegram Bot API and launches the long-poll
// loop. Calling Start while already running logs a warning and does
// nothing.
func (d *TelegramDriver) Start() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.running {
		log.GetLogger().Warn("telegram: start called while already running, ignoring")
		return nil
	}

	bot, err := tgbotapi.NewBotAPI(d.token)
	if err != nil {
		return err
	}
	d.bot = bot
	d.stopCh = make(chan struct{})
	d.doneCh = make(chan struct{})
	d.running = true
	go d.poll(d.stopCh, d.doneCh)
	return nil
}

// Stop signals the poll loop and waits for it to exit. Idempotent.
func (d *TelegramDriver) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	stopCh := d.stopCh
	doneCh := d.doneCh
	d.running = false
	d.mu.Unlock()

	close(stopCh)
	<-doneCh
}

// Running reports whether the poll loop is active.
func (d *TelegramDriver) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

func (d *TelegramDriver) poll(stopCh, doneCh chan struct{}) {
	defer close(doneCh)

	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := d.bot.GetUpdatesChan(cfg)

	for {
		select {
		case <-stopCh:
			return
		case upd := <-updates:
			d.handle(upd)
		}
	}
}

func (d *TelegramDriver) handle(upd tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			log.GetLogger().Errorf("chat: surface fault handling update: %v", r)
		}
	}()

	if upd.CallbackQuery != nil {
		cq := upd.CallbackQuery
		d.ctrl.HandleUpdate(Update{
			ChatID:       cq.Message.Chat.ID,
			UserID:       cq.From.ID,
			IsCallback:   true,
			CallbackData: cq.Data,
			MessageID:    cq.Message.MessageID,
		})
		return
	}
	if upd.Message != nil {
		d.ctrl.HandleUpdate(Update{
			ChatID: upd.Message.Chat.ID,
			UserID: upd.Message.From.ID,
			Text:   upd.Message.Text,
		})
	}
}

// SendText implements Outbound.
func (d *TelegramDriver) SendText(chatID int64, text string) {
	if _, err := d.bot.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		log.GetLogger().WithError(err).Warn("chat: send failed")
	}
}

// SendKeyboard implements Outbound.
func (d *TelegramDriver) SendKeyboard(chatID int64, text string, rows [][]Button) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ReplyMarkup = toInlineKeyboard(rows)
	if _, err := d.bot.Send(msg); err != nil {
		log.GetLogger().WithError(err).Warn("chat: send keyboard failed")
	}
}

// EditRemoveKeyboard implements Outbound.
func (d *TelegramDriver) EditRemoveKeyboard(chatID int64, messageID int) {
	edit := tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}})
	if _, err := d.bot.Send(edit); err != nil {
		log.GetLogger().WithError(err).Warn("chat: edit keyboard failed")
	}
}

func toInlineKeyboard(rows [][]Button) tgbotapi.InlineKeyboardMarkup {
	keyboard := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		btnRow := make([]tgbotapi.InlineKeyboardButton, 0, len(row))
		for _, b := range row {
			btnRow = append(btnRow, tgbotapi.NewInlineKeyboardButtonData(b.Label, b.Data))
		}
		keyboard = append(keyboard, btnRow)
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: keyboard}
}
