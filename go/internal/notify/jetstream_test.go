package notify

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mcdev12/turntimer/go/internal/turnclock"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// fakeStream records stream setup and published messages. Like the server it
// acknowledges a repeated Msg-ID as a duplicate and does not store it.
type fakeStream struct {
	streams    []jetstream.StreamConfig
	msgs       []*nats.Msg
	seen       map[string]bool
	createErr  error
	publishErr error
}

func (f *fakeStream) CreateOrUpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.streams = append(f.streams, cfg)
	return nil, nil
}

func (f *fakeStream) PublishMsg(_ context.Context, msg *nats.Msg, _ ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.publishErr != nil {
		return nil, f.publishErr
	}
	if f.seen == nil {
		f.seen = make(map[string]bool)
	}
	id := msg.Header.Get(nats.MsgIdHdr)
	if f.seen[id] {
		return &jetstream.PubAck{Stream: "TURNTIMER_EVENTS", Sequence: uint64(len(f.msgs)), Duplicate: true}, nil
	}
	f.seen[id] = true
	f.msgs = append(f.msgs, msg)
	return &jetstream.PubAck{Stream: "TURNTIMER_EVENTS", Sequence: uint64(len(f.msgs))}, nil
}

func newTestPublisher(t *testing.T, f *fakeStream, cfg JetStreamConfig) *JetStreamPublisher {
	t.Helper()
	p, err := newJetStreamPublisher(context.Background(), f, nil, cfg)
	if err != nil {
		t.Fatalf("new publisher: %v", err)
	}
	return p
}

func envelopeAt(t *testing.T, eventType string, at time.Time) Envelope {
	t.Helper()
	env, err := NewEnvelope(eventType, map[string]int{"round": 1}, at)
	if err != nil {
		t.Fatalf("new envelope: %v", err)
	}
	return env
}

func TestJetStreamPublisher_StreamCoversCategories(t *testing.T) {
	f := &fakeStream{}
	newTestPublisher(t, f, DefaultJetStreamConfig())

	if len(f.streams) != 1 {
		t.Fatalf("expected one stream setup, got %d", len(f.streams))
	}
	sc := f.streams[0]
	want := []string{"turntimer.events.clock.>", "turntimer.events.game.>", "turntimer.events.ledger.>"}
	if strings.Join(sc.Subjects, ",") != strings.Join(want, ",") {
		t.Fatalf("subjects = %v, want %v", sc.Subjects, want)
	}
	if sc.Name != "TURNTIMER_EVENTS" || sc.Duplicates != 2*time.Minute {
		t.Fatalf("unexpected stream config %+v", sc)
	}
}

func TestJetStreamPublisher_StreamSetupError(t *testing.T) {
	f := &fakeStream{createErr: errors.New("no responders")}
	if _, err := newJetStreamPublisher(context.Background(), f, nil, DefaultJetStreamConfig()); err == nil || !strings.Contains(err.Error(), "TURNTIMER_EVENTS") {
		t.Fatalf("expected wrapped stream error, got %v", err)
	}
}

func TestJetStreamPublisher_RoutesByCategory(t *testing.T) {
	f := &fakeStream{}
	p := newTestPublisher(t, f, DefaultJetStreamConfig())
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	cases := []struct {
		eventType string
		subject   string
		category  string
	}{
		{string(turnclock.EventTurnAdvanced), "turntimer.events.clock.turn_advanced", CategoryClock},
		{string(turnclock.EventTurnExpired), "turntimer.events.clock.turn_expired", CategoryClock},
		{EventGameStarted, "turntimer.events.game.game_started", CategoryGame},
		{EventGameRecorded, "turntimer.events.ledger.game_recorded", CategoryLedger},
		{EventGameDeleted, "turntimer.events.ledger.game_deleted", CategoryLedger},
	}
	for _, tc := range cases {
		env := envelopeAt(t, tc.eventType, now)
		if err := p.Publish(context.Background(), env); err != nil {
			t.Fatalf("publish %s: %v", tc.eventType, err)
		}
		msg := f.msgs[len(f.msgs)-1]
		if msg.Subject != tc.subject {
			t.Fatalf("%s: subject = %q, want %q", tc.eventType, msg.Subject, tc.subject)
		}
		if got := msg.Header.Get(HeaderCategory); got != tc.category {
			t.Fatalf("%s: category header = %q, want %q", tc.eventType, got, tc.category)
		}
		if got := msg.Header.Get(nats.ExpectedStreamHdr); got != "TURNTIMER_EVENTS" {
			t.Fatalf("%s: expected stream header = %q", tc.eventType, got)
		}
		var decoded Envelope
		if err := json.Unmarshal(msg.Data, &decoded); err != nil || decoded.ID != env.ID {
			t.Fatalf("%s: body does not carry the envelope: %s (%v)", tc.eventType, msg.Data, err)
		}
	}

	if err := p.Publish(context.Background(), envelopeAt(t, "snapshot", now)); !errors.Is(err, ErrUnroutable) {
		t.Fatalf("expected ErrUnroutable, got %v", err)
	}
	if len(f.msgs) != len(cases) {
		t.Fatalf("unroutable event should not be sent, have %d messages", len(f.msgs))
	}
}

func TestJetStreamPublisher_RedeliveryIsDeduplicated(t *testing.T) {
	f := &fakeStream{}
	p := newTestPublisher(t, f, DefaultJetStreamConfig())
	env := envelopeAt(t, EventGameRecorded, time.Now())

	for i := 0; i < 2; i++ {
		if err := p.Publish(context.Background(), env); err != nil {
			t.Fatalf("publish %d: %v", i, err)
		}
	}
	if len(f.msgs) != 1 {
		t.Fatalf("expected one stored message, got %d", len(f.msgs))
	}
	if got := f.msgs[0].Header.Get(nats.MsgIdHdr); got != env.ID {
		t.Fatalf("Msg-ID = %q, want envelope ID %q", got, env.ID)
	}
	if dups, _ := p.Counts(); dups != 1 {
		t.Fatalf("expected one duplicate, got %d", dups)
	}
}

func TestJetStreamPublisher_SamplesTicks(t *testing.T) {
	f := &fakeStream{}
	cfg := DefaultJetStreamConfig()
	cfg.TickSampleInterval = 10 * time.Second
	p := newTestPublisher(t, f, cfg)

	start := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	for s := 0; s < 25; s++ {
		if err := p.Publish(context.Background(), envelopeAt(t, string(turnclock.EventTick), start.Add(time.Duration(s)*time.Second))); err != nil {
			t.Fatalf("publish tick %d: %v", s, err)
		}
	}
	if len(f.msgs) != 3 {
		t.Fatalf("expected ticks at 0s, 10s and 20s, got %d messages", len(f.msgs))
	}
	if _, sampled := p.Counts(); sampled != 22 {
		t.Fatalf("expected 22 sampled ticks, got %d", sampled)
	}

	if err := p.Publish(context.Background(), envelopeAt(t, string(turnclock.EventLowTime), start.Add(21*time.Second))); err != nil {
		t.Fatalf("publish low_time: %v", err)
	}
	if len(f.msgs) != 4 {
		t.Fatalf("other clock events must not be sampled, got %d messages", len(f.msgs))
	}
}

func TestJetStreamPublisher_ZeroIntervalPublishesEveryTick(t *testing.T) {
	f := &fakeStream{}
	cfg := DefaultJetStreamConfig()
	cfg.TickSampleInterval = 0
	p := newTestPublisher(t, f, cfg)

	at := time.Now()
	for s := 0; s < 5; s++ {
		if err := p.Publish(context.Background(), envelopeAt(t, string(turnclock.EventTick), at.Add(time.Duration(s)*time.Second))); err != nil {
			t.Fatalf("publish tick %d: %v", s, err)
		}
	}
	if len(f.msgs) != 5 {
		t.Fatalf("expected every tick, got %d", len(f.msgs))
	}
}

func TestJetStreamPublisher_PublishError(t *testing.T) {
	f := &fakeStream{}
	p := newTestPublisher(t, f, DefaultJetStreamConfig())
	errNoResponse := errors.New("no response from stream")
	f.publishErr = errNoResponse

	err := p.Publish(context.Background(), envelopeAt(t, EventGameEnded, time.Now()))
	if !errors.Is(err, errNoResponse) || !strings.Contains(err.Error(), EventGameEnded) {
		t.Fatalf("expected wrapped publish error, got %v", err)
	}
	if p.Connected() {
		t.Fatalf("publisher without a connection should not report connected")
	}
}
