package message

import (
	"github.com/AstraeusLabs/web-broadcast-assistant/ltv"
)

// NewReturnCode builds the RES frame answering a command: same subtype and
// sequence number, payload holding a single signed error-code record, zero
// for success.
func NewReturnCode(sub SubType, seqNo uint8, rc int32) Frame {
	return Frame{
		Type:    RES,
		SubType: sub,
		SeqNo:   seqNo,
		Payload: ltv.Encode([]ltv.Record{
			{Type: ltv.TypeErrorCode, Value: ltv.Int(rc)},
		}),
	}
}

// NewEvent builds an unsolicited EVT frame from LTV records.
func NewEvent(sub SubType, records ...ltv.Record) Frame {
	return Frame{
		Type:    EVT,
		SubType: sub,
		Payload: ltv.Encode(records),
	}
}

// ErrorRecord is the error-code record appended to events that carry an
// operation outcome.
func ErrorRecord(rc int32) ltv.Record {
	return ltv.Record{Type: ltv.TypeErrorCode, Value: ltv.Int(rc)}
}

// Records decodes the frame payload as LTV records.
func (f Frame) Records() []ltv.Record {
	return ltv.Decode(f.Payload)
}

// ReturnCode extracts the error-code record from the payload, 0 when absent.
func (f Frame) ReturnCode() int32 {
	return int32(ltv.IntOf(f.Records(), ltv.TypeErrorCode, 0))
}
