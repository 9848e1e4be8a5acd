package codec

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// EmergencyMessage 字段编号
const (
	emID        protowire.Number = 1
	emClass     protowire.Number = 2
	emTitle     protowire.Number = 3
	emBody      protowire.Number = 4
	emTimestamp protowire.Number = 5
	emPriority  protowire.Number = 6
	emLocation  protowire.Number = 7
	emExpiresAt protowire.Number = 8

	locLatitude  protowire.Number = 1
	locLongitude protowire.Number = 2
)

// FloodEnvelope 字段编号
const (
	envKind      protowire.Number = 1
	envPayload   protowire.Number = 2
	envTTL       protowire.Number = 3
	envTimestamp protowire.Number = 4
)

// MarshalEmergency 编码 EmergencyMessage
func MarshalEmergency(m *types.EmergencyMessage) []byte {
	b := make([]byte, 0, 64+len(m.Title)+len(m.Body))
	b = appendString(b, emID, m.ID)
	b = appendVarint(b, emClass, uint64(m.Class))
	b = appendString(b, emTitle, m.Title)
	b = appendString(b, emBody, m.Body)
	b = appendTime(b, emTimestamp, m.Timestamp)
	b = appendVarint(b, emPriority, uint64(m.Priority))
	if m.Location != nil {
		var loc []byte
		loc = appendDouble(loc, locLatitude, m.Location.Latitude)
		loc = appendDouble(loc, locLongitude, m.Location.Longitude)
		b = appendMessage(b, emLocation, loc)
	}
	b = appendTime(b, emExpiresAt, m.ExpiresAt)
	return b
}

// UnmarshalEmergency 解码 EmergencyMessage
func UnmarshalEmergency(b []byte) (*types.EmergencyMessage, error) {
	m := &types.EmergencyMessage{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case emID:
			return consumeString(num, typ, b, &m.ID)
		case emClass:
			return intField(num, typ, b, &m.Class)
		case emTitle:
			return consumeString(num, typ, b, &m.Title)
		case emBody:
			return consumeString(num, typ, b, &m.Body)
		case emTimestamp:
			return consumeTime(num, typ, b, &m.Timestamp)
		case emPriority:
			return intField(num, typ, b, &m.Priority)
		case emLocation:
			var raw []byte
			n, err := consumeBytes(num, typ, b, &raw)
			if err != nil {
				return 0, err
			}
			m.Location, err = unmarshalLocation(raw)
			return n, err
		case emExpiresAt:
			return consumeTime(num, typ, b, &m.ExpiresAt)
		}
		return 0, nil
	})
	if err != nil {
		return nil, deserializationError("emergency", err)
	}
	if m.ID == "" {
		return nil, deserializationError("emergency", errors.New("missing id"))
	}
	return m, nil
}

func unmarshalLocation(b []byte) (*types.Location, error) {
	loc := &types.Location{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case locLatitude:
			return consumeDouble(num, typ, b, &loc.Latitude)
		case locLongitude:
			return consumeDouble(num, typ, b, &loc.Longitude)
		}
		return 0, nil
	})
	return loc, err
}

// MarshalEnvelope 编码泛洪信封
func MarshalEnvelope(e *types.FloodEnvelope) []byte {
	b := make([]byte, 0, 32+len(e.Payload))
	b = appendString(b, envKind, e.Kind)
	b = appendBytes(b, envPayload, e.Payload)
	b = appendVarint(b, envTTL, uint64(e.TTL))
	b = appendTime(b, envTimestamp, e.Timestamp)
	return b
}

// UnmarshalEnvelope 解码泛洪信封
func UnmarshalEnvelope(b []byte) (*types.FloodEnvelope, error) {
	e := &types.FloodEnvelope{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case envKind:
			return consumeString(num, typ, b, &e.Kind)
		case envPayload:
			return consumeBytes(num, typ, b, &e.Payload)
		case envTTL:
			return intField(num, typ, b, &e.TTL)
		case envTimestamp:
			return consumeTime(num, typ, b, &e.Timestamp)
		}
		return 0, nil
	})
	if err != nil {
		return nil, deserializationError("envelope", err)
	}
	if e.Kind == "" {
		return nil, deserializationError("envelope", errors.New("missing kind"))
	}
	return e, nil
}
