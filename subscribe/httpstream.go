package subscribe

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"net/http"
	"time"

	"github.com/CESNET/rousette-go/codec"
	"github.com/CESNET/rousette-go/datastore"
	"github.com/CESNET/rousette-go/event"
)

// Receive drives the long-lived GET on a subscription's notification
// stream (spec §4.7): it attaches the caller as the one live receiver,
// pumps engine notifications into an event.Stream as they arrive, and
// cleans up on either a server-side Terminate or a client disconnect.
//
// It blocks until the stream ends and always leaves the subscription in a
// well-defined state: Terminating if the engine closed it, Start (with a
// fresh inactivity window) if the client went away first.
func (m *Manager) Receive(ctx context.Context, w http.ResponseWriter, id, user string, keepAlive time.Duration) error {
	sub, err := m.Attach(id, user)
	if err != nil {
		return err
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	stream := event.New(keepAlive)
	pumpDone := make(chan struct{})
	go func() {
		for n := range sub.Events() {
			frame, err := encodeNotification(sub.Encoding, n)
			if err != nil {
				continue
			}
			stream.Enqueue(frame)
		}
		close(pumpDone)
		stream.Shutdown()
	}()

	runErr := stream.Run(ctx, w)

	select {
	case <-pumpDone:
		// engine closed Events(): the subscription ended server-side.
		sub.markTerminating()
	default:
		// client disconnected (or write failed) before the engine closed
		// its side; hand the subscription back for reattachment.
		m.OnClientDisconnect(id)
	}

	return runErr
}

// encodeNotification wraps one engine Notification in the RESTCONF/NETCONF
// notification envelope (RFC 8040 §6.3, RFC 5277 §4) in the subscription's
// negotiated encoding.
func encodeNotification(enc codec.Encoding, n datastore.Notification) ([]byte, error) {
	env := notificationEnvelope{
		EventTime: n.EventTime.UTC().Format(eventTimeFormat),
	}
	switch enc {
	case codec.XML:
		body, err := xml.Marshal(env)
		if err != nil {
			return nil, err
		}
		return event.Frame(string(body)), nil
	default:
		body, err := json.Marshal(map[string]notificationEnvelope{"ietf-restconf:notification": env})
		if err != nil {
			return nil, err
		}
		return event.Frame(string(body)), nil
	}
}

// eventTimeFormat is RFC 3339 with fractional seconds, per RFC 5277 §4's
// date-and-time leaf format (spec §1: "EventTimeFormat" ambient constant).
const eventTimeFormat = "2006-01-02T15:04:05.000Z07:00"

type notificationEnvelope struct {
	XMLName   xml.Name `xml:"urn:ietf:params:xml:ns:netconf:notification:1.0 notification" json:"-"`
	EventTime string   `xml:"eventTime" json:"eventTime"`
}
