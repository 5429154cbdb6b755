package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/boltdb/bolt"

	"shooter/pkg/core"
	"shooter/pkg/logger"
	"shooter/pkg/protocol"
)

var poseBucket = []byte("pose")

var ErrClosed = errors.New("存储已关闭")

// BoltStore 按玩家名保存最后的位置，断线超时后写入，下次加入时恢复
type BoltStore struct {
	db *bolt.DB
}

// Open 打开（或创建）数据库文件
func Open(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0666, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("打开数据库 %s 失败: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(poseBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	db.NoSync = true
	return &BoltStore{db: db}, nil
}

// Save 覆盖保存。节奏提示不落盘。
func (s *BoltStore) Save(name string, state core.MotionState) error {
	if s.db == nil {
		return ErrClosed
	}
	state.TimingAdjustment = 0
	value := protocol.MarshalState(state)
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(poseBucket).Put([]byte(name), value)
	})
}

// Load 读取玩家上次的位置，不存在时 ok 为 false
func (s *BoltStore) Load(name string) (state core.MotionState, ok bool, err error) {
	if s.db == nil {
		return state, false, ErrClosed
	}
	err = s.db.View(func(tx *bolt.Tx) error {
		value := tx.Bucket(poseBucket).Get([]byte(name))
		if value == nil {
			return nil
		}
		state, err = protocol.UnmarshalState(value)
		if err != nil {
			return fmt.Errorf("玩家 %s 的位置已损坏: %w", name, err)
		}
		ok = true
		return nil
	})
	return state, ok, err
}

// Close 刷盘并关闭
func (s *BoltStore) Close() {
	if s.db == nil {
		return
	}
	if err := s.db.Sync(); err != nil {
		logger.Log.WithError(err).Warn("数据库刷盘失败")
	}
	s.db.Close()
	s.db = nil
}
