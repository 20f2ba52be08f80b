package slackbot

import (
	"context"
	"log/slog"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/web3-frozen/crypto-alert/internal/dispatch"
)

// Adapter receives Slack events over Socket Mode and forwards them as dispatch events.
type Adapter struct {
	client *socketmode.Client
	logger *slog.Logger
}

// New wraps api, which must carry an app-level token.
func New(api *slack.Client, logger *slog.Logger) *Adapter {
	return &Adapter{
		client: socketmode.New(api),
		logger: logger,
	}
}

// Run connects to Slack and forwards events to out until ctx is done.
func (a *Adapter) Run(ctx context.Context, out chan<- dispatch.Event) error {
	go a.forward(ctx, out)
	a.logger.Info("slack socket mode starting")
	return a.client.RunContext(ctx)
}

func (a *Adapter) forward(ctx context.Context, out chan<- dispatch.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case evt, ok := <-a.client.Events:
			if !ok {
				return
			}
			switch evt.Type {
			case socketmode.EventTypeConnecting:
				a.logger.Info("connecting to slack")
			case socketmode.EventTypeConnectionError:
				a.logger.Warn("slack connection failed, retrying")
			case socketmode.EventTypeConnected:
				a.logger.Info("connected to slack")
			case socketmode.EventTypeEventsAPI:
				apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
				if !ok {
					continue
				}
				// Ack before handling so Slack does not redeliver while we post.
				if evt.Request != nil {
					a.client.Ack(*evt.Request)
				}
				ev, ok := Translate(apiEvent)
				if !ok {
					continue
				}
				select {
				case out <- ev:
				case <-ctx.Done():
					return
				}
			}
		}
	}
}

// Translate maps a Slack Events API callback to a dispatch event. It reports
// false for events the bot does not react to, including messages sent by bots.
func Translate(e slackevents.EventsAPIEvent) (dispatch.Event, bool) {
	if e.Type != slackevents.CallbackEvent {
		return dispatch.Event{}, false
	}

	var id string
	if cb, ok := e.Data.(*slackevents.EventsAPICallbackEvent); ok && cb != nil {
		id = cb.EventID
	}

	switch inner := e.InnerEvent.Data.(type) {
	case *slackevents.TeamJoinEvent:
		if inner.User == nil || inner.User.ID == "" {
			return dispatch.Event{}, false
		}
		return dispatch.Event{ID: id, Kind: dispatch.KindTeamJoin, Subject: inner.User.ID}, true
	case *slackevents.ReactionAddedEvent:
		return dispatch.Event{ID: id, Kind: dispatch.KindReactionAdded, Destination: inner.Item.Channel, Subject: inner.User}, true
	case *slackevents.PinAddedEvent:
		return dispatch.Event{ID: id, Kind: dispatch.KindPinAdded, Destination: inner.Channel, Subject: inner.User}, true
	case *slackevents.MessageEvent:
		if inner.BotID != "" || inner.SubType != "" || inner.User == "" {
			return dispatch.Event{}, false
		}
		return dispatch.Event{ID: id, Kind: dispatch.KindMessage, Destination: inner.Channel, Subject: inner.User, Text: inner.Text}, true
	}
	return dispatch.Event{}, false
}
