package push

import (
	"time"

	"github.com/imroc/req/v3"
	"github.com/kataras/golog"
	"github.com/pkg/errors"
)

var _ = RawPusher(&Webhook{})

// Webhook posts raw messages to a user-supplied URL. Failures are the
// caller's to log, a webhook must never fail an API request.
type Webhook struct {
	url    string
	log    *golog.Logger
	client *req.Client
}

func NewWebhook(url string) RawPusher {
	client := req.C().
		SetTimeout(10 * time.Second).
		SetCommonHeader("Content-Type", "application/json")
	return &Webhook{
		url:    url,
		log:    golog.Child("[webhook]"),
		client: client,
	}
}

func (m *Webhook) PushRaw(r *RawMessage) error {
	m.log.Infof("sending webhook data %s", r.Type)
	resp, err := m.client.R().SetBody(r).Post(m.url)
	if err != nil {
		return errors.Wrap(err, "send webhook request")
	}
	if resp.IsErrorState() {
		return errors.Errorf("webhook server replied %s", resp.Status)
	}
	m.log.Debugf("raw response from server: %s", resp.String())
	return nil
}
