package simulator

import (
	"context"

	"github.com/arloliu/secs-simulator/gem"
	"github.com/arloliu/secs-simulator/hsms"
)

// AutoReplyType identifies the rule that produced an auto-reply.
type AutoReplyType string

const (
	// AutoReplyTemplate is the only template matching the reply stream-function of the primary.
	AutoReplyTemplate AutoReplyType = "template"
	// AutoReplySxF0 is an SxF0 or S0F0 abort reply.
	AutoReplySxF0 AutoReplyType = "sxf0"
	// AutoReplyS9Fy is an S9Fy error report.
	AutoReplyS9Fy AutoReplyType = "s9fy"
)

// AutoReply is a message the simulator sends in response to a received primary.
type AutoReply struct {
	Type    AutoReplyType
	Message *hsms.DataMessage
	// Directed reports whether Message is the reply of the primary, carrying its system bytes.
	// S9Fy reports are new messages and aren't directed.
	Directed bool
}

// DecideAutoReply returns the messages the simulator answers primary with, in sending order.
//
// The rules are evaluated in order:
//  1. A primary of another device is answered with S9F1 when the S9Fy policy is enabled, and
//     no other rule applies.
//  2. When the auto-reply policy is enabled and exactly one template has the reply
//     stream-function of the primary, that template is the directed reply.
//  3. A primary expecting a reply with no template of its reply stream-function is answered:
//     if templates of the stream exist, with SxF0 (SxF0 policy) and S9F3 (S9Fy policy);
//     otherwise with S0F0 (SxF0 policy) and S9F5 (S9Fy policy). Both are sent when both
//     policies are enabled.
//
// Stream 9 messages and replies never get an auto-reply. Failures to build a message degrade to
// no auto-reply.
func (s *Simulator) DecideAutoReply(primary *hsms.DataMessage) []AutoReply {
	if !primary.IsPrimary() || gem.IsS9(primary) {
		return nil
	}

	stream := primary.StreamCode()
	function := primary.FunctionCode()
	header := primary.Header()

	if primary.SessionID() != s.comm.DeviceID() {
		if !s.autoReplyS9Fy.Load() {
			return nil
		}

		return s.appendS9Fy(nil, gem.S9F1(header))
	}

	// a reply function code exists for every odd function code but 255
	hasReplyCode := function < 255
	replyFunction := function + 1

	if s.autoReply.Load() && hasReplyCode {
		if tmpl, ok := s.pool.OnlyOneMatching(stream, replyFunction); ok {
			msg := tmpl.Message()
			msg.SetSessionID(primary.SessionID())
			_ = msg.SetSystemBytes(primary.SystemBytes())

			return []AutoReply{{Type: AutoReplyTemplate, Message: msg, Directed: true}}
		}
	}

	if !primary.WaitBit() || (hasReplyCode && s.pool.HasStreamFunction(stream, replyFunction)) {
		return nil
	}

	hasStream := s.pool.HasStream(stream)

	var replies []AutoReply
	if s.autoReplySxF0.Load() {
		abortStream := uint8(0)
		if hasStream {
			abortStream = stream
		}

		msg, err := gem.SxF0(abortStream).ToDataMessage(primary.SessionID(), primary.SystemBytes())
		if err != nil {
			s.logger.Error("failed to build abort reply", "error", err)
		} else {
			replies = append(replies, AutoReply{Type: AutoReplySxF0, Message: msg, Directed: true})
		}
	}

	if s.autoReplyS9Fy.Load() {
		if hasStream {
			replies = s.appendS9Fy(replies, gem.S9F3(header))
		} else {
			replies = s.appendS9Fy(replies, gem.S9F5(header))
		}
	}

	return replies
}

func (s *Simulator) appendS9Fy(replies []AutoReply, report *gem.Message) []AutoReply {
	msg, err := report.ToDataMessage(s.comm.DeviceID(), hsms.GenerateMsgSystemBytes())
	if err != nil {
		s.logger.Error("failed to build error report", "report", report.String(), "error", err)
		return replies
	}

	return append(replies, AutoReply{Type: AutoReplyS9Fy, Message: msg})
}

// autoRespond sends the auto-replies of primary and reports whether primary was answered by a
// directed reply.
func (s *Simulator) autoRespond(primary *hsms.DataMessage) bool {
	ctx := context.Background()
	answered := false

	for _, r := range s.DecideAutoReply(primary) {
		s.logger.Info("auto reply", hsms.MsgInfo(r.Message, "type", string(r.Type), "primary_id", primary.ID())...)
		s.metrics.AutoReplies.WithLabelValues(string(r.Type)).Inc()

		if r.Directed {
			if err := s.reply(ctx, primary, r.Message, "reply"); err == nil {
				answered = true
			}

			continue
		}

		s.sendUnsolicited(ctx, r.Message)
	}

	return answered
}

func (s *Simulator) sendS9F9(ctx context.Context, primary *hsms.DataMessage) {
	msg, err := gem.S9F9(primary.Header()).ToDataMessage(s.comm.DeviceID(), hsms.GenerateMsgSystemBytes())
	if err != nil {
		s.logger.Error("failed to build S9F9", "error", err)
		return
	}

	s.logger.Info("reply timeout, send S9F9", hsms.MsgInfo(primary)...)
	s.metrics.AutoReplies.WithLabelValues(string(AutoReplyS9Fy)).Inc()
	s.sendUnsolicited(ctx, msg)
}

func (s *Simulator) sendUnsolicited(ctx context.Context, msg *hsms.DataMessage) {
	if _, err := s.comm.Send(ctx, msg); err != nil {
		s.metrics.SendErrors.Inc()
		s.logger.Error("failed to send message", hsms.MsgInfo(msg, "error", err)...)

		return
	}

	s.metrics.MessagesSent.WithLabelValues("unsolicited").Inc()
	s.sent.notify(msg)
}
