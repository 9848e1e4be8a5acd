package codec

import (
	"errors"

	"google.golang.org/protobuf/encoding/protowire"

	"github.com/dep2p/go-blemesh/pkg/types"
)

// Hello 字段编号
const (
	helloSender protowire.Number = 1
	helloName   protowire.Number = 2
	helloRoutes protowire.Number = 3

	advDestination protowire.Number = 1
	advCost        protowire.Number = 2
)

// MarshalHello 编码 Hello
func MarshalHello(h *types.Hello) []byte {
	b := appendString(nil, helloSender, h.SenderID)
	b = appendString(b, helloName, h.DeviceName)
	for _, r := range h.Routes {
		adv := appendString(nil, advDestination, r.Destination)
		adv = appendVarint(adv, advCost, uint64(r.Cost))
		b = appendMessage(b, helloRoutes, adv)
	}
	return b
}

// UnmarshalHello 解码 Hello
func UnmarshalHello(b []byte) (*types.Hello, error) {
	h := &types.Hello{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case helloSender:
			return consumeString(num, typ, b, &h.SenderID)
		case helloName:
			return consumeString(num, typ, b, &h.DeviceName)
		case helloRoutes:
			var raw []byte
			n, err := consumeBytes(num, typ, b, &raw)
			if err != nil {
				return 0, err
			}
			var r types.HelloRoute
			err = walk(raw, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
				switch num {
				case advDestination:
					return consumeString(num, typ, b, &r.Destination)
				case advCost:
					return intField(num, typ, b, &r.Cost)
				}
				return 0, nil
			})
			if err == nil {
				h.Routes = append(h.Routes, r)
			}
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return nil, deserializationError("hello", err)
	}
	if h.SenderID == "" {
		return nil, deserializationError("hello", errors.New("missing sender"))
	}
	return h, nil
}
