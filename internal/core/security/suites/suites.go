// Package suites 汇总内置密码学套件
package suites

import (
	"github.com/dep2p/go-blemesh/internal/core/security"
	"github.com/dep2p/go-blemesh/internal/core/security/p256"
	"github.com/dep2p/go-blemesh/internal/core/security/x25519"
	pkgif "github.com/dep2p/go-blemesh/pkg/interfaces"
)

// Default 默认套件名称
const Default = x25519.Name

// Builtin 内置套件
var Builtin = security.Registry{
	x25519.Name: x25519.New,
	p256.Name:   p256.New,
}

// Lookup 按名称获取内置套件，空名称返回默认套件
func Lookup(name string) (pkgif.Suite, error) {
	if name == "" {
		name = Default
	}
	return Builtin.Lookup(name)
}
