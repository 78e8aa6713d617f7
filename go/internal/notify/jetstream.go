package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/mcdev12/turntimer/go/internal/turnclock"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog/log"
)

// Subject categories. Every event lands on <prefix>.<category>.<type>.
const (
	CategoryClock  = "clock"
	CategoryGame   = "game"
	CategoryLedger = "ledger"
)

// Header names carried on every published message
const (
	HeaderEventType = "Turntimer-Event-Type"
	HeaderCategory  = "Turntimer-Category"
)

var ErrUnroutable = errors.New("no subject for event type")

var categories = map[string]string{
	string(turnclock.EventTick):          CategoryClock,
	string(turnclock.EventTurnAdvanced):  CategoryClock,
	string(turnclock.EventLowTime):       CategoryClock,
	string(turnclock.EventTurnExpired):   CategoryClock,
	string(turnclock.EventStateChanged):  CategoryClock,
	string(turnclock.EventRosterChanged): CategoryClock,
	EventGameStarted:                     CategoryGame,
	EventGameEnded:                       CategoryGame,
	EventGameRecorded:                    CategoryLedger,
	EventGameDeleted:                     CategoryLedger,
}

// CategoryOf returns the subject category for an event type
func CategoryOf(eventType string) (string, bool) {
	c, ok := categories[eventType]
	return c, ok
}

type JetStreamConfig struct {
	URL             string
	StreamName      string
	SubjectPrefix   string
	MaxReconnects   int
	ReconnectWait   time.Duration
	MaxAge          time.Duration
	Replicas        int
	DuplicateWindow time.Duration // Msg-ID dedupe window, keyed on the envelope ID

	// TickSampleInterval is the minimum spacing between published ticks,
	// measured on envelope timestamps. Zero publishes every tick.
	TickSampleInterval time.Duration
}

func DefaultJetStreamConfig() JetStreamConfig {
	return JetStreamConfig{
		URL:                nats.DefaultURL,
		StreamName:         "TURNTIMER_EVENTS",
		SubjectPrefix:      "turntimer.events",
		MaxReconnects:      -1,
		ReconnectWait:      2 * time.Second,
		MaxAge:             24 * time.Hour,
		Replicas:           1,
		DuplicateWindow:    2 * time.Minute,
		TickSampleInterval: 10 * time.Second,
	}
}

// streamClient is the part of jetstream.JetStream the publisher needs
type streamClient interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	PublishMsg(ctx context.Context, msg *nats.Msg, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// JetStreamPublisher publishes clock, game and ledger envelopes to one
// JetStream stream, split by subject category
type JetStreamPublisher struct {
	nc     *nats.Conn
	js     streamClient
	config JetStreamConfig

	mu         sync.Mutex
	lastTick   time.Time
	duplicates uint64
	sampled    uint64
}

func NewJetStreamPublisher(cfg JetStreamConfig) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(cfg.URL, connectOptions(cfg)...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p, err := newJetStreamPublisher(ctx, js, nc, cfg)
	if err != nil {
		nc.Close()
		return nil, err
	}
	return p, nil
}

func newJetStreamPublisher(ctx context.Context, js streamClient, nc *nats.Conn, cfg JetStreamConfig) (*JetStreamPublisher, error) {
	p := &JetStreamPublisher{nc: nc, js: js, config: cfg}
	if _, err := js.CreateOrUpdateStream(ctx, p.streamConfig()); err != nil {
		return nil, fmt.Errorf("ensure stream %s: %w", cfg.StreamName, err)
	}
	log.Info().
		Str("stream", cfg.StreamName).
		Strs("subjects", p.streamConfig().Subjects).
		Msg("JetStream stream ready")
	return p, nil
}

func connectOptions(cfg JetStreamConfig) []nats.Option {
	return []nats.Option{
		nats.Name("turntimer"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			log.Error().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
		nats.ErrorHandler(func(nc *nats.Conn, sub *nats.Subscription, err error) {
			log.Error().Err(err).Msg("NATS error")
		}),
	}
}

func (p *JetStreamPublisher) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:        p.config.StreamName,
		Description: "Turn timer clock, game and ledger events",
		Subjects: []string{
			p.config.SubjectPrefix + "." + CategoryClock + ".>",
			p.config.SubjectPrefix + "." + CategoryGame + ".>",
			p.config.SubjectPrefix + "." + CategoryLedger + ".>",
		},
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     p.config.MaxAge,
		Storage:    jetstream.FileStorage,
		Replicas:   p.config.Replicas,
		Duplicates: p.config.DuplicateWindow,
	}
}

// Subject returns the subject an event type is published on
func (p *JetStreamPublisher) Subject(eventType string) (string, error) {
	category, ok := CategoryOf(eventType)
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnroutable, eventType)
	}
	return fmt.Sprintf("%s.%s.%s", p.config.SubjectPrefix, category, eventType), nil
}

// Publish sends env to its category subject. Ticks closer than
// TickSampleInterval to the last published tick are dropped without error.
func (p *JetStreamPublisher) Publish(ctx context.Context, env Envelope) error {
	subject, err := p.Subject(env.Type)
	if err != nil {
		return err
	}
	if env.Type == string(turnclock.EventTick) && !p.takeTick(env.Timestamp) {
		return nil
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	category, _ := CategoryOf(env.Type)
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, env.ID)
	msg.Header.Set(nats.ExpectedStreamHdr, p.config.StreamName)
	msg.Header.Set(HeaderEventType, env.Type)
	msg.Header.Set(HeaderCategory, category)

	ack, err := p.js.PublishMsg(ctx, msg)
	if err != nil {
		return fmt.Errorf("publish %s to JetStream: %w", env.Type, err)
	}

	if ack.Duplicate {
		p.mu.Lock()
		p.duplicates++
		p.mu.Unlock()
		log.Debug().
			Str("subject", subject).
			Str("event_id", env.ID).
			Msg("JetStream dropped duplicate event")
		return nil
	}

	log.Debug().
		Str("subject", subject).
		Str("event_id", env.ID).
		Str("sequence", strconv.FormatUint(ack.Sequence, 10)).
		Msg("published to JetStream")
	return nil
}

// takeTick reports whether a tick stamped at is due for publishing
func (p *JetStreamPublisher) takeTick(at time.Time) bool {
	if p.config.TickSampleInterval <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.lastTick.IsZero() && at.Sub(p.lastTick) < p.config.TickSampleInterval {
		p.sampled++
		return false
	}
	p.lastTick = at
	return true
}

// Counts returns how many duplicates the server reported and how many ticks
// were dropped by sampling
func (p *JetStreamPublisher) Counts() (duplicates, sampled uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.duplicates, p.sampled
}

// Connected reports whether the NATS connection is up
func (p *JetStreamPublisher) Connected() bool {
	return p.nc != nil && p.nc.IsConnected()
}

func (p *JetStreamPublisher) Close() error {
	if p.nc != nil {
		p.nc.Close()
	}
	return nil
}
