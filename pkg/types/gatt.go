package types

import "encoding/base64"

// BLE GATT 服务布局
//
// 一个服务暴露三个逻辑通道：写通道（对端→本端密文）、
// 通知通道（本端→对端密文）、只读公钥通道。
const (
	ServiceUUID             = "6E400001-B5A3-F393-E0A9-E50E24DCCA9E"
	WriteCharacteristic     = "6E400002-B5A3-F393-E0A9-E50E24DCCA9E"
	NotifyCharacteristic    = "6E400003-B5A3-F393-E0A9-E50E24DCCA9E"
	PublicKeyCharacteristic = "6E400004-B5A3-F393-E0A9-E50E24DCCA9E"
)

// EncodeText 为文本型传输编码密文
func EncodeText(data []byte) string {
	return base64.StdEncoding.EncodeToString(data)
}

// DecodeText 解码文本型传输的密文
func DecodeText(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}
