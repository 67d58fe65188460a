package push

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"

	"github.com/unionportal/internal/logger"
	"github.com/unionportal/internal/model"
	"github.com/unionportal/internal/repository"
)

// Notifier рассылает Web Push по всем подпискам (анонсы новостей и событий).
type Notifier struct {
	subs    *repository.SubscriptionRepository
	keys    *VAPIDKeys
	subject string
}

// NewNotifier создаёт рассыльщик. subject — mailto: или URL сайта для VAPID-заголовка.
func NewNotifier(subs *repository.SubscriptionRepository, keys *VAPIDKeys, subject string) *Notifier {
	if subject == "" {
		subject = "mailto:admin@unionportal.local"
	}
	return &Notifier{subs: subs, keys: keys, subject: subject}
}

// Payload — тело пуш-уведомления (читается service worker'ом на фронте).
type Payload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Broadcast отправляет уведомление всем подписчикам. Мёртвые endpoint'ы
// (404/410) удаляются из базы по ходу. Вызывается асинхронно — ошибки в лог.
func (n *Notifier) Broadcast(ctx context.Context, p Payload) {
	if n.keys == nil || n.keys.PrivateKey == "" {
		return
	}
	subs, err := n.subs.ListAll(ctx)
	if err != nil {
		logger.Errorf("push broadcast: list subscriptions: %v", err)
		return
	}
	body, err := json.Marshal(p)
	if err != nil {
		logger.Errorf("push broadcast: marshal payload: %v", err)
		return
	}
	for _, sub := range subs {
		n.send(ctx, sub, body)
	}
}

func (n *Notifier) send(ctx context.Context, sub model.PushSubscription, body []byte) {
	s := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}
	resp, err := webpush.SendNotificationWithContext(ctx, body, s, &webpush.Options{
		Subscriber:      n.subject,
		VAPIDPublicKey:  n.keys.PublicKey,
		VAPIDPrivateKey: n.keys.PrivateKey,
		TTL:             3600,
		HTTPClient:      &http.Client{Timeout: 10 * time.Second},
	})
	if err != nil {
		logger.Errorf("push send endpoint=%s: %v", maskEndpoint(sub.Endpoint), err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone {
		// Подписка протухла — браузер её отозвал.
		if err := n.subs.Delete(ctx, sub.Endpoint); err != nil {
			logger.Errorf("push delete stale subscription: %v", err)
		}
		return
	}
	if resp.StatusCode >= 400 {
		logger.Errorf("push send endpoint=%s: status %d", maskEndpoint(sub.Endpoint), resp.StatusCode)
	}
}

func maskEndpoint(s string) string {
	if len(s) <= 40 {
		return s
	}
	return s[:40] + "..."
}
