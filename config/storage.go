package config

import (
	"errors"
	"path/filepath"
)

// StorageConfig 存储配置
//
// 只保存对端信任历史，不保存消息。
//
//	${DataDir}/
//	└── blemesh.db/     # BadgerDB
type StorageConfig struct {
	// InMemory 使用内存模式，进程退出即丢失
	InMemory bool `json:"in_memory"`

	// DataDir 数据目录，仅在非内存模式下使用
	DataDir string `json:"data_dir"`
}

// DefaultStorageConfig 返回默认存储配置
func DefaultStorageConfig() StorageConfig {
	return StorageConfig{
		InMemory: true,
	}
}

// Validate 验证存储配置
func (c StorageConfig) Validate() error {
	if !c.InMemory && c.DataDir == "" {
		return errors.New("storage: data_dir cannot be empty")
	}
	return nil
}

// DBPath 返回 BadgerDB 路径
func (c StorageConfig) DBPath() string {
	return filepath.Join(c.DataDir, "blemesh.db")
}
