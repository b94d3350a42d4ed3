package broker

import (
	"fmt"
	"sync/atomic"
	"time"
)

// MsgIntent classifies what kind of message a Msg carries.
type MsgIntent int

const (
	IntentCmd MsgIntent = iota
	IntentData
	IntentEvent
	IntentInvalid
	IntentDeadLetter
	IntentWiretap
)

func (i MsgIntent) String() string {
	switch i {
	case IntentCmd:
		return "CMD"
	case IntentData:
		return "DATA"
	case IntentEvent:
		return "EVENT"
	case IntentInvalid:
		return "INVALID"
	case IntentDeadLetter:
		return "DEADLETTER"
	case IntentWiretap:
		return "WIRETAP"
	default:
		return "UNKNOWN"
	}
}

// CmdReply enumerates replies to a CmdMsg.
type CmdReply int

const (
	CmdReplyDone CmdReply = iota
	CmdReplyUnknownCmd
)

var msgIDCounter atomic.Int64

// nextMsgID returns the next id in a single process-wide, strictly
// increasing, non-negative sequence.
func nextMsgID() int64 {
	return msgIDCounter.Add(1) - 1
}

// Msg is the common interface every broker message satisfies.
// Concrete variants embed MsgBase and add their own payload fields,
// mirroring the Python source's Msg subclasses without resorting to
// class inheritance.
type Msg interface {
	Base() *MsgBase
}

// MsgBase holds the fields common to every Msg variant.
type MsgBase struct {
	Intent    MsgIntent
	Sender    string
	Headers   map[string]any
	Timestamp time.Time
	MsgID     int64
}

func newBase(intent MsgIntent, sender string, headers map[string]any) MsgBase {
	if headers == nil {
		headers = make(map[string]any)
	}
	return MsgBase{
		Intent:  intent,
		Sender:  sender,
		Headers: headers,
		MsgID:   nextMsgID(),
	}
}

// Base returns the message's common fields.
func (b *MsgBase) Base() *MsgBase { return b }

// AddHeaders merges the given headers into the message.
func (b *MsgBase) AddHeaders(headers map[string]any) {
	for k, v := range headers {
		b.Headers[k] = v
	}
}

// CmdMsg invokes a command or functionality on the receiving side.
type CmdMsg struct {
	MsgBase
	Cmd     string
	CmdArgs map[string]any
}

// NewCmdMsg builds a CmdMsg. Use Producer.Invoke to build and publish
// in one step.
func NewCmdMsg(sender string, headers map[string]any, cmd string, cmdArgs map[string]any) *CmdMsg {
	if cmdArgs == nil {
		cmdArgs = make(map[string]any)
	}
	return &CmdMsg{
		MsgBase: newBase(IntentCmd, sender, headers),
		Cmd:     cmd,
		CmdArgs: cmdArgs,
	}
}

func (m *CmdMsg) String() string {
	return fmt.Sprintf("CmdMsg(msg_id=%d, sender=%q, cmd=%q, cmd_args=%v)", m.MsgID, m.Sender, m.Cmd, m.CmdArgs)
}

// DataMsg carries arbitrary application data.
type DataMsg struct {
	MsgBase
	Data any
}

// NewDataMsg builds a DataMsg.
func NewDataMsg(sender string, headers map[string]any, data any) *DataMsg {
	return &DataMsg{
		MsgBase: newBase(IntentData, sender, headers),
		Data:    data,
	}
}

func (m *DataMsg) String() string {
	return fmt.Sprintf("DataMsg(msg_id=%d, sender=%q, data=%v)", m.MsgID, m.Sender, m.Data)
}

// EventMsg reports that an event occurred, with optional data.
type EventMsg struct {
	MsgBase
	Event string
	Data  any
}

// NewEventMsg builds an EventMsg.
func NewEventMsg(sender string, headers map[string]any, event string, data any) *EventMsg {
	return &EventMsg{
		MsgBase: newBase(IntentEvent, sender, headers),
		Event:   event,
		Data:    data,
	}
}

func (m *EventMsg) String() string {
	return fmt.Sprintf("EventMsg(msg_id=%d, sender=%q, event=%q, data=%v)", m.MsgID, m.Sender, m.Event, m.Data)
}

// DeadLetterMsg wraps a message that could not be delivered because
// its target channel did not exist at publish time.
type DeadLetterMsg struct {
	MsgBase
	ChannelName string
	Msg         Msg
}

func newDeadLetterMsg(channelName string, msg Msg) *DeadLetterMsg {
	return &DeadLetterMsg{
		MsgBase:     newBase(IntentDeadLetter, "deadletter", nil),
		ChannelName: channelName,
		Msg:         msg,
	}
}

func (m *DeadLetterMsg) String() string {
	return fmt.Sprintf("DeadLetterMsg(msg_id=%d, channel_name=%q, msg=%v)", m.MsgID, m.ChannelName, m.Msg)
}

// WiretapMsg wraps a copy of a message published on some channel, for
// observers registered on the wiretap channel.
type WiretapMsg struct {
	MsgBase
	Channel *Channel
	Msg     Msg
}

func newWiretapMsg(channel *Channel, msg Msg) *WiretapMsg {
	return &WiretapMsg{
		MsgBase: newBase(IntentWiretap, "wiretap", nil),
		Channel: channel,
		Msg:     msg,
	}
}

func (m *WiretapMsg) String() string {
	return fmt.Sprintf("WiretapMsg(msg_id=%d, channel=%q, msg=%v)", m.MsgID, m.Channel.Name, m.Msg)
}
