package repository

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	bolt "go.etcd.io/bbolt"

	"ai-chat/internal/domain"
)

// BoltMessageRepository guarda el historial en un archivo bbolt local.
// Hay un bucket por usuario; las claves empiezan con el created_at en
// nanosegundos big-endian para que el cursor recorra en orden cronologico.
type BoltMessageRepository struct {
	db *bolt.DB
}

var (
	boltRootBucket    = []byte("ai_conversation_history")
	errBoltMissingKey = errors.New("bolt create: user_id and id are required")
)

func NewBoltMessageRepository(db *bolt.DB) (*BoltMessageRepository, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(boltRootBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create root bucket: %w", err)
	}
	return &BoltMessageRepository{db: db}, nil
}

func (r *BoltMessageRepository) Create(ctx context.Context, message domain.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if strings.TrimSpace(message.UserID) == "" || message.ID == "" {
		return errBoltMissingKey
	}
	value, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return r.db.Update(func(tx *bolt.Tx) error {
		users, err := tx.Bucket(boltRootBucket).CreateBucketIfNotExists([]byte(message.UserID))
		if err != nil {
			return err
		}
		return users.Put(messageKey(message.CreatedAt, message.ID), value)
	})
}

func (r *BoltMessageRepository) ListByUser(ctx context.Context, userID, conversationID string) ([]domain.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var messages []domain.Message
	err := r.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltRootBucket).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		return b.ForEach(func(_, v []byte) error {
			var msg domain.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return fmt.Errorf("unmarshal message: %w", err)
			}
			if conversationID != "" && msg.ConversationID != conversationID {
				return nil
			}
			messages = append(messages, msg)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return messages, nil
}

func (r *BoltMessageRepository) DeleteConversation(ctx context.Context, userID, conversationID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	var deleted int64
	err := r.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(boltRootBucket).Bucket([]byte(userID))
		if b == nil {
			return nil
		}
		var keys [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var msg domain.Message
			if err := json.Unmarshal(v, &msg); err != nil {
				return fmt.Errorf("unmarshal message: %w", err)
			}
			if msg.ConversationID == conversationID {
				keys = append(keys, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
			deleted++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return deleted, nil
}

func messageKey(createdAt time.Time, id string) []byte {
	key := make([]byte, 8, 8+1+len(id))
	binary.BigEndian.PutUint64(key, uint64(createdAt.UTC().UnixNano()))
	key = append(key, '/')
	return append(key, id...)
}
