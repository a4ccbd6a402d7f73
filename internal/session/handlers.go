package session

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/ack"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/heartbeat"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/logger"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/stomp"
	"github.com/life-stream-dev/life-stream-go-stomp-broker/internal/subscription"
)

func acceptsVersion(header string) bool {
	for _, version := range strings.Split(header, ",") {
		if strings.TrimSpace(version) == stomp.Version {
			return true
		}
	}
	return false
}

func (s *Session) handleConnect(frame *stomp.Frame) error {
	if s.State() == StateConnected {
		s.sendError("Already connected", "The session is already connected", frame)
		return ErrAlreadyConnected
	}

	versions := frame.Value(stomp.HeaderAcceptVersion)
	if !acceptsVersion(versions) {
		s.sendError("Supported version doesn't match", "Supported protocol version is "+stomp.Version, frame)
		return fmt.Errorf("%w: client accepts %q", ErrUnsupportedVersion, versions)
	}

	login := frame.Value(stomp.HeaderLogin)
	token, err := s.opts.Authenticator.Connect(login, frame.Value(stomp.HeaderPasscode))
	if err != nil {
		s.sendError("Bad credentials", "Username or passcode incorrect", frame)
		return fmt.Errorf("%w: login %q: %v", ErrBadCredentials, login, err)
	}

	var client *stomp.HeartBeat
	if value, ok := frame.Get(stomp.HeaderHeartBeat); ok {
		hb, err := stomp.ParseHeartBeat(value)
		if err != nil {
			logger.WarnF("[%s] Ignoring heart-beat header %q", s.id, value)
		}
		client = &hb
	}
	agreement := heartbeat.Negotiate(s.opts.HeartBeat, client)

	connected := stomp.NewConnectedFrame(stomp.Version)
	if agreement.Advertise {
		connected.Set(stomp.HeaderHeartBeat, agreement.Header.String())
	}
	if frame.Header.Contains(stomp.HeaderHost) {
		connected.Set(stomp.HeaderServer, s.opts.ServerName)
		connected.Set(stomp.HeaderSession, s.id)
	}

	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.state = StateConnected
	s.token = token
	s.login = login
	s.agreement = agreement
	s.scheduler = heartbeat.NewScheduler(s.id, agreement.Send, s.Send)
	scheduler := s.scheduler
	s.mu.Unlock()

	if err := s.Send(connected); err != nil {
		return err
	}
	scheduler.Start()

	logger.InfoF("[%s] Client %q connected (heart-beat send=%s receive=%s)", s.id, login, agreement.Send, agreement.Receive)
	return nil
}

func (s *Session) handleDisconnect(frame *stomp.Frame) error {
	removed := s.opts.Registry.RemoveAllForSession(s.id)
	s.sendReceipt(frame)
	logger.DebugF("[%s] Client disconnect, %d subscriptions removed", s.id, len(removed))
	return ErrDisconnected
}

// subscriptionID reads the id header, falling back to subscription-id.
func subscriptionID(frame *stomp.Frame) (int64, bool, error) {
	value, ok := frame.Get(stomp.HeaderID)
	if !ok {
		value, ok = frame.Get(stomp.HeaderSubscriptionID)
	}
	if !ok {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	return id, true, err
}

func (s *Session) handleSubscribe(frame *stomp.Frame) error {
	topic := frame.Value(stomp.HeaderDestination)
	if topic == "" {
		s.sendError("Missing destination", "SUBSCRIBE requires a destination header", frame)
		return nil
	}
	id, ok, err := subscriptionID(frame)
	if !ok || err != nil {
		s.sendError("Invalid subscription id", "SUBSCRIBE requires a numeric id header", frame)
		return nil
	}

	if !s.opts.Authenticator.CanSubscribe(s.tokenValue(), topic) {
		s.sendError("Can't subscribe", "You're not allowed to subscribe to the topic "+topic, frame)
		return nil
	}

	s.opts.Registry.AddSubscription(subscription.Subscription{
		ID:         id,
		Topic:      topic,
		AckMode:    stomp.ParseAckMode(frame.Value(stomp.HeaderAck)),
		Subscriber: s,
	})
	s.sendReceipt(frame)
	return nil
}

func (s *Session) handleUnsubscribe(frame *stomp.Frame) error {
	id, ok, err := subscriptionID(frame)
	if !ok || err != nil {
		s.sendError("Invalid subscription id", "UNSUBSCRIBE requires a numeric id header", frame)
		return nil
	}
	s.opts.Registry.RemoveSubscription(s.id, id)
	s.sendReceipt(frame)
	return nil
}

func (s *Session) handleSend(frame *stomp.Frame) error {
	topic := frame.Value(stomp.HeaderDestination)
	if topic == "" {
		s.sendError("Missing destination", "SEND requires a destination header", frame)
		return nil
	}
	if !s.opts.Authenticator.CanSend(s.tokenValue(), topic) {
		s.sendError("Can't send message", "You're not allowed to send a message to the topic "+topic, frame)
		return nil
	}

	subscriptions := s.opts.Registry.SubscriptionsForTopic(topic)
	if len(subscriptions) == 0 {
		s.opts.Recorder.MessagePublished(0)
		s.sendReceipt(frame)
		return nil
	}

	messageID := s.opts.MessageIDs.Next()

	// The wait is registered before any MESSAGE leaves so an early ACK
	// always finds it.
	var waiters []ack.Waiter
	for _, sub := range subscriptions {
		if sub.NeedsAck() {
			waiters = append(waiters, ack.Waiter{SessionID: sub.SessionID(), SubscriptionID: sub.ID})
		}
	}
	waiting := s.opts.Tracker.RegisterWait(messageID, waiters, s, frame)

	delivered := 0
	for _, sub := range subscriptions {
		message := stomp.NewMessageFrame(frame, messageID, sub.ID)
		if err := sub.Subscriber.Send(message); err != nil {
			logger.DebugF("[%s] Fail to deliver %s to %s/%d, details: %v", s.id, messageID, sub.SessionID(), sub.ID, err)
			if sub.NeedsAck() {
				s.opts.Tracker.Acknowledge(messageID, ack.Waiter{SessionID: sub.SessionID(), SubscriptionID: sub.ID})
			}
			continue
		}
		delivered++
	}
	s.opts.Recorder.MessagePublished(delivered)
	logger.DebugF("[%s] Message %s to %s delivered to %d of %d subscriptions", s.id, messageID, topic, delivered, len(subscriptions))

	if !waiting {
		s.sendReceipt(frame)
	}
	return nil
}

// handleAck serves ACK and NACK alike.
func (s *Session) handleAck(frame *stomp.Frame) error {
	messageID := frame.Value(stomp.HeaderMessageID)
	if messageID == "" {
		s.sendError("Missing message-id", string(frame.Command)+" requires a message-id header", frame)
		return nil
	}
	id, err := strconv.ParseInt(strings.TrimSpace(frame.Value(stomp.HeaderSubscription)), 10, 64)
	if err != nil {
		s.sendError("Invalid subscription id", string(frame.Command)+" requires a numeric subscription header", frame)
		return nil
	}

	s.opts.Tracker.Acknowledge(messageID, ack.Waiter{SessionID: s.id, SubscriptionID: id})
	s.sendReceipt(frame)
	return nil
}

func (s *Session) handleTransaction(frame *stomp.Frame) error {
	s.sendError("Transactions are not supported", "The command '"+string(frame.Command)+"' is not supported by this server", frame)
	return nil
}

func (s *Session) handleHeartBeat(*stomp.Frame) error {
	return nil
}

func (s *Session) handleUnknown(frame *stomp.Frame) error {
	s.sendError("Unknown command", "The command '"+string(frame.Command)+"' is unknown and can't be managed", frame)
	return nil
}
