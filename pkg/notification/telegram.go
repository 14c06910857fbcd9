package notification

import (
	"fmt"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/jpillora/backoff"
	"github.com/raykavin/trailstop/pkg/core"
	"github.com/raykavin/trailstop/pkg/logger"
	tb "gopkg.in/tucnak/telebot.v2"
)

var orderRegexp = regexp.MustCompile(`/order\s+(?P<id>\d+)`)

const sendAttempts = 3

// TelegramSettings configures the Telegram bot
type TelegramSettings struct {
	Token string
	Users []int
}

// sender is the part of the bot client used to deliver messages
type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// Telegram implements core.Notifier and answers order queries from authorized users
type Telegram struct {
	settings    TelegramSettings
	orders      OrderReader
	defaultMenu *tb.ReplyMarkup
	client      *tb.Bot
	sender      sender
	retry       *backoff.Backoff
	log         logger.Logger
}

// NewTelegram creates and initializes a new Telegram service
func NewTelegram(orders OrderReader, settings TelegramSettings, log logger.Logger) (*Telegram, error) {
	menu := &tb.ReplyMarkup{ResizeReplyKeyboard: true}
	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	client, err := tb.NewBot(tb.Settings{
		ParseMode: tb.ModeMarkdown,
		Token:     settings.Token,
		Poller:    createAuthMiddleware(poller, settings, log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	menu.Reply(menu.Row(menu.Text("/markets"), menu.Text("/help")))
	if err := client.SetCommands([]tb.Command{
		{Text: "/help", Description: "Display help instructions"},
		{Text: "/markets", Description: "Serviced markets and tracked ticks"},
		{Text: "/order", Description: "Show an order: /order 12"},
	}); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	bot := newTelegram(client, orders, settings, log)
	bot.client = client
	bot.defaultMenu = menu

	client.Handle("/help", bot.HelpHandle)
	client.Handle("/markets", bot.MarketsHandle)
	client.Handle("/order", bot.OrderHandle)

	return bot, nil
}

func newTelegram(client sender, orders OrderReader, settings TelegramSettings, log logger.Logger) *Telegram {
	return &Telegram{
		settings: settings,
		orders:   orders,
		sender:   client,
		log:      log,
		retry: &backoff.Backoff{
			Min: 100 * time.Millisecond,
			Max: 1 * time.Second,
		},
	}
}

// createAuthMiddleware drops updates from users not listed in the settings
func createAuthMiddleware(poller *tb.LongPoller, settings TelegramSettings, log logger.Logger) *tb.MiddlewarePoller {
	return tb.NewMiddlewarePoller(poller, func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			log.Error("telegram: message or sender is nil")
			return false
		}

		if slices.Contains(settings.Users, int(u.Message.Sender.ID)) {
			return true
		}

		log.Errorf("telegram: unauthorized user %d", u.Message.Sender.ID)
		return false
	})
}

// Start begins polling and notifies all authorized users
func (t *Telegram) Start() {
	if t.client != nil {
		go t.client.Start()
	}
	t.broadcast("Trailing-stop engine started.", t.defaultMenu)
}

// Stop ends polling
func (t *Telegram) Stop() {
	if t.client != nil {
		t.client.Stop()
	}
}

// Notify sends a message to all authorized users
func (t *Telegram) Notify(text string) {
	t.broadcast(text)
}

func (t *Telegram) broadcast(text string, options ...interface{}) {
	for _, user := range t.settings.Users {
		t.send(&tb.User{ID: int64(user)}, text, options...)
	}
}

// send delivers a message, retrying with backoff when the API fails
func (t *Telegram) send(to tb.Recipient, text string, options ...interface{}) {
	options = slices.DeleteFunc(options, func(option interface{}) bool {
		menu, ok := option.(*tb.ReplyMarkup)
		return ok && menu == nil
	})

	retry := *t.retry
	retry.Reset()

	for attempt := 1; ; attempt++ {
		_, err := t.sender.Send(to, text, options...)
		if err == nil {
			return
		}
		if attempt == sendAttempts {
			t.log.WithError(err).Errorf("telegram: failed to send message to %s", to.Recipient())
			return
		}
		time.Sleep(retry.Duration())
	}
}

// HelpHandle lists the available commands
func (t *Telegram) HelpHandle(m *tb.Message) {
	t.send(m.Sender, strings.Join([]string{
		"/markets - serviced markets and tracked ticks",
		"/order <id> - show an order",
	}, "\n"))
}

// MarketsHandle lists the serviced markets
func (t *Telegram) MarketsHandle(m *tb.Message) {
	t.send(m.Sender, t.marketsMessage())
}

func (t *Telegram) marketsMessage() string {
	markets := t.orders.Markets()
	if len(markets) == 0 {
		return "No markets serviced."
	}

	slices.SortFunc(markets, func(a, b core.Market) int {
		return strings.Compare(string(a.ID), string(b.ID))
	})

	var sb strings.Builder
	sb.WriteString("*MARKETS*\n")
	for _, market := range markets {
		fmt.Fprintf(&sb, "%s: tick `%d`\n", market.ID, market.LastTrackedTick)
	}
	return sb.String()
}

// OrderHandle shows an order and the canonical order it was merged into
func (t *Telegram) OrderHandle(m *tb.Message) {
	t.send(m.Sender, t.orderMessage(m.Text))
}

func (t *Telegram) orderMessage(text string) string {
	match := orderRegexp.FindStringSubmatch(text)
	if len(match) == 0 {
		return "Invalid command.\nExample of usage:\n`/order 12`"
	}

	id, err := strconv.ParseUint(match[orderRegexp.SubexpIndex("id")], 10, 64)
	if err != nil {
		return "Invalid order id."
	}

	canonical, err := t.orders.Resolve(core.OrderID(id))
	if err != nil {
		return fmt.Sprintf("Order %d not found.", id)
	}

	order, _ := t.orders.Order(canonical)
	if canonical != core.OrderID(id) {
		return fmt.Sprintf("Order %d was merged into %d\n`%s`", id, canonical, order)
	}
	return fmt.Sprintf("`%s`", order)
}

// OnOrder notifies users about placements, fills, withdrawals and claims
func (t *Telegram) OnOrder(event core.OrderEvent) {
	title := eventTitle(event)
	if title == "" {
		return
	}
	t.Notify(fmt.Sprintf("%s\n-----\n%s", title, event))
}

// OnError notifies users about errors
func (t *Telegram) OnError(err error) {
	t.Notify(errorMessage(err))
}
