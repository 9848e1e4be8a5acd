package types

// ============================================================================
//                              传输层事件
// ============================================================================

// TransportEvent 传输层事件
type TransportEvent interface {
	transportEvent()
}

// PeerDiscovered 扫描到设备广播
type PeerDiscovered struct {
	ID      string
	Name    string
	Address string
	RSSI    int
}

// PublicKeyReceived 读到对端的公钥通道
type PublicKeyReceived struct {
	PeerID string
	Key    []byte
}

// ConnectionChanged 连接状态变化
type ConnectionChanged struct {
	PeerID    string
	Connected bool

	// Initiator 本端是否为发起方
	Initiator bool
}

// ConnectingStarted 传输层开始建立连接（可选事件）
type ConnectingStarted struct {
	PeerID string
}

// DataReceived 通知通道收到密文
type DataReceived struct {
	PeerID string
	Data   []byte
}

func (PeerDiscovered) transportEvent()    {}
func (PublicKeyReceived) transportEvent() {}
func (ConnectionChanged) transportEvent() {}
func (ConnectingStarted) transportEvent() {}
func (DataReceived) transportEvent()      {}
