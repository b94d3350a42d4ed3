package bridge

import (
	"testing"

	"github.com/fxamacker/cbor/v2"

	"github.com/oldline/p3gateway/pkg/broker"
)

func TestEncodeWireMsgDataMsg(t *testing.T) {
	msg := broker.NewDataMsg("gateway", map[string]any{"session": "abc"}, []byte{0x01, 0x02})

	encoded, err := encodeWireMsg(msg)
	if err != nil {
		t.Fatalf("encodeWireMsg: %v", err)
	}

	var decoded wireMsg
	if err := cbor.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("cbor.Unmarshal: %v", err)
	}
	if decoded.Intent != "DATA" || decoded.Sender != "gateway" {
		t.Fatalf("decoded = %+v", decoded)
	}
	if decoded.Headers["session"] != "abc" {
		t.Fatalf("headers = %+v", decoded.Headers)
	}
}

func TestBodyOfDeadLetterRecursesIntoWrapped(t *testing.T) {
	inner := broker.NewDataMsg("svc", nil, "payload")
	dl := &broker.DeadLetterMsg{ChannelName: "missing", Msg: inner}

	body, ok := bodyOf(dl).(map[string]any)
	if !ok {
		t.Fatalf("bodyOf(dead letter) = %T, want map[string]any", bodyOf(dl))
	}
	if body["channel_name"] != "missing" {
		t.Fatalf("channel_name = %v", body["channel_name"])
	}
	innerBody, ok := body["msg"].(map[string]any)
	if !ok {
		t.Fatalf("nested msg body = %T", body["msg"])
	}
	if innerBody["data"] != "payload" {
		t.Fatalf("inner data = %v", innerBody["data"])
	}
}

func TestBodyOfCmdMsg(t *testing.T) {
	msg := broker.NewCmdMsg("svc", nil, "reset", map[string]any{"force": true})
	body, ok := bodyOf(msg).(map[string]any)
	if !ok {
		t.Fatalf("bodyOf(cmd) = %T", bodyOf(msg))
	}
	if body["cmd"] != "reset" {
		t.Fatalf("cmd = %v", body["cmd"])
	}
}
