package core

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/obinexus/polycall-core/internal/logger"
	"github.com/obinexus/polycall-core/internal/session"
	"github.com/obinexus/polycall-core/internal/wire"
	"github.com/obinexus/polycall-core/pkg/bufpool"
)

// connEndpoint adapts a net.Conn to session.Endpoint.
type connEndpoint struct {
	conn net.Conn
}

func (e *connEndpoint) Send(ctx context.Context, frame []byte) error {
	if deadline, ok := ctx.Deadline(); ok {
		_ = e.conn.SetWriteDeadline(deadline)
	} else {
		_ = e.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	}
	_, err := e.conn.Write(frame)
	return err
}

// handleConn drives one connection end to end: construct a session,
// register per-type handlers on a wire.Dispatcher, then read frames off
// the socket until it closes or the context is cancelled (teacher idiom:
// `internal/protocol/portmap/server.go`'s handleTCPConn read loop).
func (r *Runtime) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	id := conn.RemoteAddr().String()
	endpoint := &connEndpoint{conn: conn}

	ctx = logger.WithContext(ctx, logger.NewLogContext(id).WithComponent("core"))

	subscriptions := make(map[uint64]struct{})

	sess, err := session.New(id, endpoint, r.verifier, uint32(r.cfg.Core.MaxMessageSize.Uint64()), session.Callbacks{
		OnStateChange: func(old, new string) {
			logger.InfoCtx(ctx, "session state change", logger.StateFrom(old), logger.StateTo(new))
		},
		OnError: func(msg string) {
			logger.WarnCtx(ctx, "session error", logger.Err(fmt.Errorf("%s", msg)))
		},
	})
	if err != nil {
		logger.ErrorCtx(ctx, "session construction failed", logger.Err(err))
		return
	}
	r.registerSession(sess)
	defer func() {
		for subID := range subscriptions {
			_ = r.PubSub.Unsubscribe(subID)
		}
		r.unregisterSession(id)
	}()

	disp := wire.NewDispatcher(nil)
	disp.On(wire.TypeHandshake, func(ctx context.Context, sessionID string, msg wire.Message) error {
		return sess.Handshake()
	})
	disp.On(wire.TypeAuth, func(ctx context.Context, sessionID string, msg wire.Message) error {
		if err := sess.Authenticate(ctx, string(msg.Payload), msg.Payload); err != nil {
			return err
		}
		// AUTH->READY follows a successful authenticate with no separate
		// wire message (spec §4.6 names no READY-triggering message type).
		return sess.Ready()
	})
	disp.On(wire.TypeHeartbeat, func(ctx context.Context, sessionID string, msg wire.Message) error {
		return sess.Send(ctx, wire.TypeHeartbeat, msg.Payload, 0)
	})
	disp.On(wire.TypeError, func(ctx context.Context, sessionID string, msg wire.Message) error {
		return sess.Fail(string(msg.Payload))
	})
	disp.On(wire.TypeCommand, func(ctx context.Context, sessionID string, msg wire.Message) error {
		return r.handleCommand(ctx, sess, msg.Payload)
	})
	disp.On(wire.TypePublish, func(ctx context.Context, sessionID string, msg wire.Message) error {
		var env publishEnvelope
		if err := decodeEnvelope(msg.Payload, &env); err != nil {
			return err
		}
		r.PubSub.Publish(env.Topic, env.Data)
		return nil
	})
	disp.On(wire.TypeSubscribe, func(ctx context.Context, sessionID string, msg wire.Message) error {
		var env subscribeEnvelope
		if err := decodeEnvelope(msg.Payload, &env); err != nil {
			return err
		}
		subID, err := r.PubSub.Subscribe(env.Topic, func(topic string, data []byte) {
			payload, err := encodeEnvelope(publishEnvelope{Topic: topic, Data: data})
			if err != nil {
				return
			}
			sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			defer cancel()
			_ = sess.TrySend(sendCtx, wire.TypePublish, payload, 0)
		}, nil)
		if err != nil {
			return err
		}
		subscriptions[subID] = struct{}{}
		ack, err := encodeEnvelope(subscribeAckEnvelope{SubscriptionID: subID})
		if err != nil {
			return err
		}
		return sess.Send(ctx, wire.TypeResponse, ack, 0)
	})
	disp.On(wire.TypeUnsubscribe, func(ctx context.Context, sessionID string, msg wire.Message) error {
		var env unsubscribeEnvelope
		if err := decodeEnvelope(msg.Payload, &env); err != nil {
			return err
		}
		delete(subscriptions, env.SubscriptionID)
		return r.PubSub.Unsubscribe(env.SubscriptionID)
	})

	r.readLoop(ctx, conn, sess, disp, id)
}

// readLoop decodes length-prefixed wire frames off conn and routes each
// through disp until the connection closes, the context is cancelled, or
// a header announces a payload larger than max_message_size. A frame that
// fails to decode is logged and dropped and the loop reads the next one
// (spec §7's "drop malformed frames" policy); its bytes have already been
// consumed, so the stream stays in sync.
func (r *Runtime) readLoop(ctx context.Context, conn net.Conn, sess *session.Session, disp *wire.Dispatcher, sessionID string) {
	br := bufio.NewReader(conn)
	header := make([]byte, wire.HeaderSize)
	lc := logger.FromContext(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Minute))
		if _, err := io.ReadFull(br, header); err != nil {
			if err != io.EOF {
				logger.DebugCtx(ctx, "read header failed", logger.Err(err))
			}
			return
		}
		payloadLen := binary.LittleEndian.Uint32(header[8:12])
		if uint64(payloadLen) > r.cfg.Core.MaxMessageSize.Uint64() {
			logger.WarnCtx(ctx, "frame exceeds max message size")
			return
		}
		frame := bufpool.Get(wire.HeaderSize + int(payloadLen))
		copy(frame, header)
		if payloadLen > 0 {
			if _, err := io.ReadFull(br, frame[wire.HeaderSize:]); err != nil {
				logger.DebugCtx(ctx, "read payload failed", logger.Err(err))
				bufpool.Put(frame)
				return
			}
		}

		msg, err := wire.Decode(frame, uint32(r.cfg.Core.MaxMessageSize.Uint64()))
		bufpool.Put(frame)
		if err != nil {
			logger.WarnCtx(ctx, "dropping malformed frame", logger.Err(err))
			continue
		}

		frameCtx := ctx
		if lc != nil {
			frameCtx = logger.WithContext(ctx, lc.WithSequence(msg.Header.Sequence))
		}

		if err := disp.Dispatch(frameCtx, sessionID, msg); err != nil {
			logger.WarnCtx(frameCtx, "dispatch failed", logger.MsgType(uint8(msg.Header.Type)), logger.Err(err))
			_ = sess.Send(frameCtx, wire.TypeError, []byte(err.Error()), 0)
			if sess.Current() == session.StateReady {
				_ = sess.Fail(err.Error())
			}
		}
	}
}

// handleCommand decodes a COMMAND payload, dispatches it through the FFI
// registry (C3), and writes the result back as a RESPONSE frame (spec
// §4.5: "COMMAND -> C3 dispatch").
func (r *Runtime) handleCommand(ctx context.Context, sess *session.Session, payload []byte) error {
	if err := sess.Command(payload); err != nil {
		return err
	}

	var env commandEnvelope
	if err := decodeEnvelope(payload, &env); err != nil {
		return err
	}
	args, err := argsToValues(env.Args)
	if err != nil {
		return err
	}

	result, callErr := r.FFI.CallFunction(ctx, env.Function, args, env.TargetLang)
	if callErr != nil {
		return sess.Send(ctx, wire.TypeError, []byte(callErr.Error()), 0)
	}

	resp, err := valueToResponse(result)
	if err != nil {
		return err
	}
	respPayload, err := encodeEnvelope(resp)
	if err != nil {
		return err
	}
	return sess.Send(ctx, wire.TypeResponse, respPayload, 0)
}
