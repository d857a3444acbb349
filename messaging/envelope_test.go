package messaging

import (
	"encoding/json"
	"testing"
)

func TestEnvelopeRoundTrip(t *testing.T) {
	env := NewEnvelope(MsgStatusChanged, "plant-1", StatusChangedNotice{
		WorkOrderID: 42,
		Number:      "WO-1001",
		OldStatus:   "PLANNED",
		NewStatus:   "RELEASED",
		Actor:       "supervisor1",
	})

	data, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.MsgType != MsgStatusChanged {
		t.Errorf("msg_type = %s, want %s", decoded.MsgType, MsgStatusChanged)
	}
	if decoded.MsgID != env.MsgID {
		t.Errorf("msg_id not preserved")
	}
	if decoded.PlantID != "plant-1" {
		t.Errorf("plant_id = %s", decoded.PlantID)
	}

	p, ok := decoded.Payload.(StatusChangedNotice)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChangedNotice", decoded.Payload)
	}
	if p.WorkOrderID != 42 || p.NewStatus != "RELEASED" {
		t.Errorf("payload fields lost: %+v", p)
	}
}

func TestDecodeEnvelopeStageCompleted(t *testing.T) {
	env := NewEnvelope(MsgStageCompleted, "plant-1", StageCompletedNotice{
		WorkOrderID: 7,
		Number:      "WO-2002",
		StageCode:   "LAMINATION",
		StageIndex:  0,
		GoodQty:     1,
		IsComplete:  false,
		Actor:       "operator1",
	})
	data, err := env.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeEnvelope(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	p, ok := decoded.Payload.(StageCompletedNotice)
	if !ok {
		t.Fatalf("payload type = %T", decoded.Payload)
	}
	if p.StageCode != "LAMINATION" || p.GoodQty != 1 {
		t.Errorf("payload fields lost: %+v", p)
	}
}

func TestDecodeEnvelopeUnknownType(t *testing.T) {
	raw, _ := json.Marshal(map[string]any{
		"msg_type": "bogus_type",
		"msg_id":   "x",
		"payload":  map[string]any{},
	})
	if _, err := DecodeEnvelope(raw); err == nil {
		t.Fatal("expected error for unknown msg_type")
	}
}

func TestDecodeEnvelopeMalformed(t *testing.T) {
	if _, err := DecodeEnvelope([]byte("{not json")); err == nil {
		t.Fatal("expected error for malformed json")
	}
}
