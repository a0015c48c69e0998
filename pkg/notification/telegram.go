// Package notification provides the Telegram surface of the suite: outbound
// signal updates plus the admin command handlers.
package notification

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	tb "gopkg.in/tucnak/telebot.v2"

	"github.com/raykavin/signalrun/pkg/account"
	"github.com/raykavin/signalrun/pkg/core"
	"github.com/raykavin/signalrun/pkg/giveaway"
	"github.com/raykavin/signalrun/pkg/logger"
)

// Command patterns for signal management
var (
	addSignalRegexp = regexp.MustCompile(
		`/addsignal\s+(?P<symbol>\w+)\s+(?P<direction>(?i:buy|sell))\s+(?P<entry>\d+(?:\.\d+)?)\s+(?P<stop>\d+(?:\.\d+)?)\s+(?P<targets>\d+(?:\.\d+)?(?:,\d+(?:\.\d+)?){0,2})`)
	removeSignalRegexp = regexp.MustCompile(`/removesignal\s+(?P<id>[\w-]+)`)
	verifyRegexp       = regexp.MustCompile(`/verify\s+(?P<login>\d+)`)
)

// Telegram implements core.NotifierWithStart over telebot.
type Telegram struct {
	settings core.TelegramSettings
	storage  core.SignalStorage
	accounts *account.Service  // nil when MT5 validation is disabled
	giveaway *giveaway.Service // nil when the giveaway is disabled
	client   *tb.Bot
	menu     *tb.ReplyMarkup
	log      logger.Logger
}

// Option configures a Telegram instance.
type Option func(t *Telegram)

// WithAccountService enables the /verify command.
func WithAccountService(svc *account.Service) Option {
	return func(t *Telegram) { t.accounts = svc }
}

// WithGiveawayService enables the giveaway commands.
func WithGiveawayService(svc *giveaway.Service) Option {
	return func(t *Telegram) { t.giveaway = svc }
}

// NewTelegram creates and initializes the Telegram service.
func NewTelegram(settings core.TelegramSettings, storage core.SignalStorage, log logger.Logger, options ...Option) (*Telegram, error) {
	menu := &tb.ReplyMarkup{ResizeReplyKeyboard: true}
	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	userMiddleware := createAuthMiddleware(poller, settings, log)

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    userMiddleware,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	setupKeyboard(menu)
	if err := setupCommands(client); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot := &Telegram{
		settings: settings,
		storage:  storage,
		client:   client,
		menu:     menu,
		log:      log,
	}

	for _, option := range options {
		option(bot)
	}

	registerHandlers(client, bot)

	return bot, nil
}

// createAuthMiddleware validates that updates come from authorized users.
// Giveaway join stays open to everyone.
func createAuthMiddleware(poller *tb.LongPoller, settings core.TelegramSettings, log logger.Logger) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			log.Error("message or sender is nil ", u)
			return false
		}

		if strings.HasPrefix(u.Message.Text, "/giveaway_join") {
			return true
		}

		if slices.Contains(settings.Users, int(u.Message.Sender.ID)) {
			return true
		}

		log.Error("unauthorized user ", u.Message.Sender.ID)
		return false
	})
}

func setupKeyboard(menu *tb.ReplyMarkup) {
	var (
		signalsBtn = menu.Text("/signals")
		addBtn     = menu.Text("/addsignal")
		removeBtn  = menu.Text("/removesignal")
		verifyBtn  = menu.Text("/verify")
		joinBtn    = menu.Text("/giveaway_join")
		drawBtn    = menu.Text("/giveaway_draw")
	)

	menu.Reply(
		menu.Row(signalsBtn, addBtn, removeBtn),
		menu.Row(verifyBtn, joinBtn, drawBtn),
	)
}

func setupCommands(client *tb.Bot) error {
	return client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/signals", Description: "List active signals"},
		{Text: "/addsignal", Description: "Register a new signal"},
		{Text: "/removesignal", Description: "Remove a signal by id"},
		{Text: "/verify", Description: "Validate an MT5 account login"},
		{Text: "/giveaway_join", Description: "Enter the current giveaway"},
		{Text: "/giveaway_draw", Description: "Draw a giveaway winner"},
	})
}

func registerHandlers(client *tb.Bot, bot *Telegram) {
	client.Handle("/help", bot.HelpHandle)
	client.Handle("/signals", bot.SignalsHandle)
	client.Handle("/addsignal", bot.AddSignalHandle)
	client.Handle("/removesignal", bot.RemoveSignalHandle)
	client.Handle("/verify", bot.VerifyHandle)
	client.Handle("/giveaway_join", bot.GiveawayJoinHandle)
	client.Handle("/giveaway_draw", bot.GiveawayDrawHandle)
}

// Start begins the Telegram receive loop and greets authorized users.
func (t *Telegram) Start() {
	go t.client.Start()
	t.sendMessageWithOptions("Signal bot initialized.", t.menu)
}

// Notify sends a message to all authorized users.
func (t *Telegram) Notify(text string) {
	for _, user := range t.settings.Users {
		if _, err := t.client.Send(&tb.User{ID: int64(user)}, text); err != nil {
			t.log.WithError(err).Error("failed to send notification")
		}
	}
}

// OnSignal announces a newly registered signal.
func (t *Telegram) OnSignal(signal *core.Signal) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🆕 NEW SIGNAL - %s\n-----\n", signal.Symbol)
	fmt.Fprintf(&sb, "Direction: `%s`\n", signal.Direction)
	fmt.Fprintf(&sb, "Entry: `%.5f`\n", signal.EntryPrice)
	fmt.Fprintf(&sb, "Stop: `%.5f`\n", signal.StopLoss)
	for i, tp := range signal.TakeProfits {
		fmt.Fprintf(&sb, "TP%d: `%.5f`\n", i+1, tp)
	}
	t.Notify(sb.String())
}

// OnError notifies users about errors.
func (t *Telegram) OnError(err error) {
	var sb strings.Builder
	sb.WriteString("🛑 ERROR\n-----\n")
	sb.WriteString(err.Error())
	t.Notify(sb.String())
}

func (t *Telegram) sendMessageWithOptions(text string, options ...interface{}) {
	for _, user := range t.settings.Users {
		if _, err := t.client.Send(&tb.User{ID: int64(user)}, text, options...); err != nil {
			t.log.WithError(err).Error("failed to send notification with options")
		}
	}
}

func (t *Telegram) sendMessage(to *tb.User, text string, options ...interface{}) {
	if _, err := t.client.Send(to, text, options...); err != nil {
		t.log.WithError(err).Error("failed to send message")
	}
}

// HelpHandle displays available commands.
func (t *Telegram) HelpHandle(m *tb.Message) {
	commands, err := t.client.GetCommands()
	if err != nil {
		t.log.WithError(err).Error("failed to get commands")
		t.OnError(err)
		return
	}

	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, fmt.Sprintf("/%s - %s", command.Text, command.Description))
	}

	t.sendMessage(m.Sender, strings.Join(lines, "\n"))
}

// SignalsHandle lists the active signals.
func (t *Telegram) SignalsHandle(m *tb.Message) {
	signals, err := t.storage.Signals()
	if err != nil {
		t.OnError(err)
		return
	}
	if len(signals) == 0 {
		t.sendMessage(m.Sender, "No active signals.")
		return
	}

	var sb strings.Builder
	sb.WriteString("*ACTIVE SIGNALS*\n")
	for _, signal := range signals {
		fmt.Fprintf(&sb, "`%s`\n%s %s entry `%.5f` stop `%.5f` tp `%v`\n-----\n",
			signal.ID, signal.Direction, signal.Symbol,
			signal.EntryPrice, signal.StopLoss, signal.TakeProfits)
	}
	t.sendMessage(m.Sender, sb.String())
}

// AddSignalHandle registers a new signal from a command message.
func (t *Telegram) AddSignalHandle(m *tb.Message) {
	match := addSignalRegexp.FindStringSubmatch(m.Text)
	if len(match) == 0 {
		t.sendMessage(m.Sender,
			"Invalid command.\nExample of usage:\n`/addsignal EURUSD BUY 1.0750 1.0720 1.0800,1.0850`")
		return
	}

	if err := t.processAddSignal(m.Sender, match); err != nil {
		var vErr *core.ValidationError
		if errors.As(err, &vErr) {
			t.sendMessage(m.Sender, fmt.Sprintf("Rejected: %s", vErr))
			return
		}
		t.OnError(err)
	}
}

func (t *Telegram) processAddSignal(sender *tb.User, match []string) error {
	command := extractCommandParams(addSignalRegexp, match)

	direction, err := core.ParseDirection(command["direction"])
	if err != nil {
		return err
	}

	entry, err := strconv.ParseFloat(command["entry"], 64)
	if err != nil {
		return fmt.Errorf("failed to parse entry: %w", err)
	}
	stop, err := strconv.ParseFloat(command["stop"], 64)
	if err != nil {
		return fmt.Errorf("failed to parse stop: %w", err)
	}

	var targets []float64
	for _, raw := range strings.Split(command["targets"], ",") {
		tp, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("failed to parse target %q: %w", raw, err)
		}
		targets = append(targets, tp)
	}

	signal := &core.Signal{
		Symbol:      strings.ToUpper(command["symbol"]),
		Direction:   direction,
		EntryPrice:  entry,
		StopLoss:    stop,
		TakeProfits: targets,
	}

	id, err := t.storage.Add(signal)
	if err != nil {
		return err
	}

	t.log.Infof("[TELEGRAM]: SIGNAL REGISTERED: %s", signal)
	t.sendMessage(sender, fmt.Sprintf("Signal registered with id `%s`", id))
	t.OnSignal(signal)
	return nil
}

// RemoveSignalHandle removes a signal by id.
func (t *Telegram) RemoveSignalHandle(m *tb.Message) {
	match := removeSignalRegexp.FindStringSubmatch(m.Text)
	if len(match) == 0 {
		t.sendMessage(m.Sender, "Invalid command.\nExample of usage:\n`/removesignal EURUSD-BUY-20240101120000`")
		return
	}

	id := extractCommandParams(removeSignalRegexp, match)["id"]
	removed, err := t.storage.Remove(id)
	if err != nil {
		t.OnError(err)
		return
	}
	if !removed {
		t.sendMessage(m.Sender, "No signal with that id.")
		return
	}
	t.sendMessage(m.Sender, fmt.Sprintf("Signal `%s` removed.", id))
}

// VerifyHandle validates an MT5 account login.
func (t *Telegram) VerifyHandle(m *tb.Message) {
	if t.accounts == nil {
		t.sendMessage(m.Sender, "Account verification is not enabled.")
		return
	}

	match := verifyRegexp.FindStringSubmatch(m.Text)
	if len(match) == 0 {
		t.sendMessage(m.Sender, "Invalid command.\nExample of usage:\n`/verify 123456`")
		return
	}

	login, err := strconv.ParseInt(extractCommandParams(verifyRegexp, match)["login"], 10, 64)
	if err != nil {
		t.sendMessage(m.Sender, "Invalid login.")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	acc, err := t.accounts.Verify(ctx, login)
	if errors.Is(err, account.ErrAccountNotFound) {
		t.sendMessage(m.Sender, "Account not found or disabled.")
		return
	}
	if err != nil {
		t.OnError(err)
		return
	}

	t.sendMessage(m.Sender, fmt.Sprintf("✅ Account `%d` verified.\nName: %s", acc.Login, acc.Name))
}

// GiveawayJoinHandle enters the sender into the giveaway.
func (t *Telegram) GiveawayJoinHandle(m *tb.Message) {
	if t.giveaway == nil {
		t.sendMessage(m.Sender, "No giveaway is running.")
		return
	}

	added, err := t.giveaway.Join(m.Sender.ID, m.Sender.Username)
	if err != nil {
		t.OnError(err)
		return
	}
	if !added {
		t.sendMessage(m.Sender, "You are already in.")
		return
	}
	t.sendMessage(m.Sender, "🎉 You joined the giveaway. Good luck!")
}

// GiveawayDrawHandle draws a winner. Restricted to authorized users.
func (t *Telegram) GiveawayDrawHandle(m *tb.Message) {
	if t.giveaway == nil {
		t.sendMessage(m.Sender, "No giveaway is running.")
		return
	}

	winner, err := t.giveaway.Draw()
	if errors.Is(err, giveaway.ErrNoParticipants) {
		t.sendMessage(m.Sender, "Nobody has joined yet.")
		return
	}
	if err != nil {
		t.OnError(err)
		return
	}

	t.Notify(fmt.Sprintf("🏆 Giveaway winner: @%s", winner.Username))
}

// extractCommandParams extracts named groups from regex matches.
func extractCommandParams(regex *regexp.Regexp, match []string) map[string]string {
	command := make(map[string]string)
	for i, name := range regex.SubexpNames() {
		if i != 0 && name != "" {
			command[name] = match[i]
		}
	}
	return command
}
