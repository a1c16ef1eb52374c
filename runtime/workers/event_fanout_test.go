package workers

import (
	"chat-session/domain"
	"chat-session/domain/event"
	"chat-session/mocks"
	"chat-session/observability"
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/mama165/sdk-go/logs"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestEventFanout_Fanout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	first := mocks.NewMockEventSink(ctrl)
	second := mocks.NewMockEventSink(ctrl)

	events := make(chan event.SessionEvent, 2)
	monitoring := observability.NewMonitoringManager(log)
	fanout := NewEventFanout(log, events, monitoring, time.Second).Add(first, second)

	evt := event.RoomChanged{From: domain.PublicRoomID, To: "room-42"}

	// Given both sinks receive the event in registration order
	gomock.InOrder(
		first.EXPECT().Consume(gomock.Any(), evt).Return(nil),
		second.EXPECT().Consume(gomock.Any(), evt).Return(nil),
	)

	// When the event is handled
	fanout.Fanout(context.Background(), evt)

	// Then nothing was dropped
	req.Zero(monitoring.GetLatest().ObserverDropped)
}

func TestEventFanout_SinkTimeout(t *testing.T) {
	req := require.New(t)
	log := logs.GetLoggerFromLevel(slog.LevelDebug)
	ctrl := gomock.NewController(t)
	slow := mocks.NewMockEventSink(ctrl)
	next := mocks.NewMockEventSink(ctrl)

	monitoring := observability.NewMonitoringManager(log)
	fanout := NewEventFanout(log, nil, monitoring, 20*time.Millisecond).Add(slow, next)

	// Given a sink waiting on its context
	slow.EXPECT().Consume(gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, evt event.SessionEvent) error {
			<-ctx.Done()
			return ctx.Err()
		})
	next.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil)

	start := time.Now()
	fanout.Fanout(context.Background(), event.ConnectionChanged{State: domain.Connected})

	// Then the slow sink was cut off and the next one still served
	req.Less(time.Since(start), 500*time.Millisecond)
	req.Equal(uint64(1), monitoring.GetLatest().ObserverDropped)
}

func TestEventFanout_Run_Stops_On_Close(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	sink := mocks.NewMockEventSink(ctrl)

	events := make(chan event.SessionEvent, 1)
	fanout := NewEventFanout(slog.Default(), events, observability.NewMonitoringManager(slog.Default()), 0).Add(sink)

	sink.EXPECT().Consume(gomock.Any(), gomock.Any()).Return(nil)
	events <- event.ConnectionChanged{State: domain.Disconnected}
	close(events)

	req.NoError(fanout.Run(context.Background()))
}
