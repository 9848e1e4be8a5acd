package memory

import "errors"

var (
	// ErrDuplicateID 介质上已存在同 ID 设备
	ErrDuplicateID = errors.New("memory: duplicate device id")

	// ErrUnknownDevice 介质上没有该设备
	ErrUnknownDevice = errors.New("memory: unknown device")

	// ErrNotAdvertising 对端未在广播，无法连接
	ErrNotAdvertising = errors.New("memory: device is not advertising")

	// ErrNotConnected 未与对端建立连接
	ErrNotConnected = errors.New("memory: not connected")

	// ErrClosed 传输已关闭
	ErrClosed = errors.New("memory: transport closed")
)
