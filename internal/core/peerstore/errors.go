package peerstore

import "errors"

var (
	// ErrNilTransport 未提供传输
	ErrNilTransport = errors.New("peerstore: nil transport")

	// ErrNilKeyAgreement 未提供 KeyAgreement
	ErrNilKeyAgreement = errors.New("peerstore: nil key agreement")
)
