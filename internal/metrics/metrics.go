// Package metrics counts bot deliveries and serves them with a health probe.
package metrics

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"loggingbot/pkg/botlog"
)

const namespace = "loggingbot"

// Send operations, used as the "op" label.
const (
	OpMessage  = "message"
	OpPhoto    = "photo"
	OpDocument = "document"
	OpDial     = "dial"
)

// Metrics owns a private registry so tests and multiple instances never
// collide on the global one.
type Metrics struct {
	reg   *prometheus.Registry
	sends *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		sends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transport_sends_total",
			Help:      "Bot API calls by operation and result.",
		}, []string{"op", "result"}),
	}
	m.reg.MustRegister(
		m.sends,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Sends returns the counter vector; exposed for tests.
func (m *Metrics) Sends() *prometheus.CounterVec { return m.sends }

func (m *Metrics) observe(op string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sends.WithLabelValues(op, result).Inc()
}

// Dialer wraps dial so every transport it returns is counted.
func (m *Metrics) Dialer(dial botlog.Dialer) botlog.Dialer {
	return func(token string) (botlog.Transport, error) {
		tr, err := dial(token)
		m.observe(OpDial, err)
		if err != nil {
			return nil, err
		}
		return &countingTransport{next: tr, m: m}, nil
	}
}

type countingTransport struct {
	next botlog.Transport
	m    *Metrics
}

func (t *countingTransport) SendMessage(ctx context.Context, to botlog.Recipient, text string) error {
	err := t.next.SendMessage(ctx, to, text)
	t.m.observe(OpMessage, err)
	return err
}

func (t *countingTransport) SendPhoto(ctx context.Context, to botlog.Recipient, png []byte) error {
	err := t.next.SendPhoto(ctx, to, png)
	t.m.observe(OpPhoto, err)
	return err
}

func (t *countingTransport) SendDocument(ctx context.Context, to botlog.Recipient, name string, data []byte) error {
	err := t.next.SendDocument(ctx, to, name, data)
	t.m.observe(OpDocument, err)
	return err
}
