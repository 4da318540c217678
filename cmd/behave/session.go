package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/srg/blebehave/internal/central"
	"github.com/srg/blebehave/internal/device"
	"github.com/srg/blebehave/internal/eventloop"
	"github.com/srg/blebehave/internal/radio"
	"github.com/srg/blebehave/internal/radio/goble"
	"github.com/srg/blebehave/pkg/config"
)

// radioDevice is the radio a session drives.
type radioDevice interface {
	radio.Radio
	Start(h radio.Handler)
	Close()
}

// newRadio creates the platform radio (can be overridden in tests)
var newRadio = func(logger *logrus.Logger) (radioDevice, error) {
	r, err := goble.New(logger)
	if err != nil {
		return nil, err
	}
	return r, nil
}

type eventKind int

const (
	evSearchExpired eventKind = iota
	evState
	evConnected
	evDebug
	evText
	evRetryExhausted
)

// event is an orchestrator callback forwarded from the loop to the command goroutine.
type event struct {
	kind     eventKind
	state    device.State
	identity device.Identity
	id       uuid.UUID
	text     string
	err      *central.RetryError
}

// session owns the event loop, the radio and the orchestrator of one command run.
type session struct {
	loop    *eventloop.Loop
	radio   radioDevice
	central *central.Central
	logger  *logrus.Logger
	events  chan event
	cancel  context.CancelFunc
}

func openSession(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*session, error) {
	r, err := newRadio(logger)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	loop := eventloop.New(eventloop.DefaultQueueSize, logger)
	loop.Start(ctx)

	s := &session{
		loop:   loop,
		radio:  r,
		logger: logger,
		events: make(chan event, 1024),
		cancel: cancel,
	}
	s.central = central.New(r, loop, cfg.CentralOptions(), logger)
	s.central.SetSink(s.sink())
	r.Start(radio.Serialize(loop, s.central))
	return s, nil
}

// emit never blocks the loop; a full queue drops the event.
func (s *session) emit(ev event) {
	select {
	case s.events <- ev:
	default:
		s.logger.WithField("kind", ev.kind).Warn("Event queue full, dropping event")
	}
}

func (s *session) sink() central.Sink {
	return central.Sink{
		SearchExpired: func() { s.emit(event{kind: evSearchExpired}) },
		StateChanged:  func(st device.State) { s.emit(event{kind: evState, state: st}) },
		Connected:     func(id device.Identity) { s.emit(event{kind: evConnected, identity: id}) },
		Debug:         func(msg string) { s.emit(event{kind: evDebug, text: msg}) },
		NotificationText: func(id uuid.UUID, text string) {
			s.emit(event{kind: evText, id: id, text: text})
		},
		RetryExhausted: func(err *central.RetryError) {
			s.emit(event{kind: evRetryExhausted, id: err.ID, err: err})
		},
	}
}

// do runs fn on the loop and waits for it.
func (s *session) do(ctx context.Context, fn func(c *central.Central)) error {
	if err := s.loop.Do(ctx, func() { fn(s.central) }); err != nil {
		if errors.Is(err, eventloop.ErrClosed) {
			return fmt.Errorf("session closed: %w", context.Canceled)
		}
		return err
	}
	return nil
}

// close disconnects everything, stops the radio and waits for the loop to exit.
func (s *session) close() {
	_ = s.loop.Do(context.Background(), func() {
		s.central.DisconnectAll()
		s.central.Close()
	})
	s.radio.Close()
	s.cancel()
	<-s.loop.Done()
}
