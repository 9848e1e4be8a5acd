package codec

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// ErrNilMessage 序列化空消息
var ErrNilMessage = errors.New("codec: nil message")

// Message 字段编号
const (
	msgID        protowire.Number = 1
	msgType      protowire.Number = 2
	msgContent   protowire.Number = 3
	msgSender    protowire.Number = 4
	msgRecipient protowire.Number = 5
	msgTimestamp protowire.Number = 6
	msgEncrypted protowire.Number = 7
	msgStatus    protowire.Number = 8
	msgChannel   protowire.Number = 9
	msgRoute     protowire.Number = 10
)

// Serialize 将 Message 编码为字节
func Serialize(m *types.Message) ([]byte, error) {
	if m == nil {
		return nil, ErrNilMessage
	}
	b := make([]byte, 0, 64+len(m.Content))
	b = appendString(b, msgID, m.ID)
	b = appendVarint(b, msgType, uint64(m.Type))
	b = appendBytes(b, msgContent, m.Content)
	b = appendString(b, msgSender, m.Sender)
	b = appendString(b, msgRecipient, m.Recipient)
	b = appendTime(b, msgTimestamp, m.Timestamp)
	b = appendBool(b, msgEncrypted, m.Encrypted)
	b = appendVarint(b, msgStatus, uint64(m.Status))
	b = appendString(b, msgChannel, m.Channel)
	for _, hop := range m.Route {
		b = protowire.AppendTag(b, msgRoute, protowire.BytesType)
		b = protowire.AppendString(b, hop)
	}
	return b, nil
}

// Deserialize 从字节解码 Message
//
// 缺少 ID 或类型非法时返回 ErrDeserializationFailure。
func Deserialize(b []byte) (*types.Message, error) {
	m := &types.Message{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case msgID:
			return consumeString(num, typ, b, &m.ID)
		case msgType:
			return intField(num, typ, b, &m.Type)
		case msgContent:
			return consumeBytes(num, typ, b, &m.Content)
		case msgSender:
			return consumeString(num, typ, b, &m.Sender)
		case msgRecipient:
			return consumeString(num, typ, b, &m.Recipient)
		case msgTimestamp:
			return consumeTime(num, typ, b, &m.Timestamp)
		case msgEncrypted:
			var v uint64
			n, err := consumeVarint(num, typ, b, &v)
			m.Encrypted = protowire.DecodeBool(v)
			return n, err
		case msgStatus:
			return intField(num, typ, b, &m.Status)
		case msgChannel:
			return consumeString(num, typ, b, &m.Channel)
		case msgRoute:
			var hop string
			n, err := consumeString(num, typ, b, &hop)
			if err == nil {
				m.Route = append(m.Route, hop)
			}
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, deserializationError("message", err)
	}
	if m.ID == "" {
		return nil, deserializationError("message", errors.New("missing id"))
	}
	if !m.Type.Valid() {
		return nil, deserializationError("message", errors.New("invalid type "+m.Type.String()))
	}
	return m, nil
}
