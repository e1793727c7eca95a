package kv

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/marcopiovanello/m3u8-dl/server/internal"

	bolt "go.etcd.io/bbolt"
)

var sessionBucket = []byte("session")

// Persist writes every unfinished task to the session bucket, replacing
// whatever was there. Entries are keyed by submission position, so bbolt's
// key order is the order they were submitted in.
func (m *Store) Persist() error {
	if m.db == nil {
		return nil
	}

	var pending []internal.DownloadRequest
	for _, id := range m.Keys() {
		d, err := m.Get(id)
		if err != nil || d.IsCompleted() {
			continue
		}
		pending = append(pending, internal.DownloadRequest{
			Id:       d.GetId(),
			URL:      d.GetUrl(),
			Filename: d.GetFilename(),
		})
	}

	return m.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(sessionBucket); err != nil && !errors.Is(err, bolt.ErrBucketNotFound) {
			return err
		}

		b, err := tx.CreateBucket(sessionBucket)
		if err != nil {
			return err
		}

		for i, req := range pending {
			v, err := json.Marshal(req)
			if err != nil {
				return err
			}
			if err := b.Put(sequenceKey(uint64(i)), v); err != nil {
				return err
			}
		}

		slog.Info("session persisted", slog.Int("pending", len(pending)))
		return nil
	})
}

func sequenceKey(n uint64) []byte {
	return binary.BigEndian.AppendUint64(nil, n)
}

// Restore hands every persisted request to submit and empties the session.
func (m *Store) Restore(submit func(req internal.DownloadRequest) error) error {
	if m.db == nil {
		return nil
	}

	var requests []internal.DownloadRequest

	err := m.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return nil
		}

		err := b.ForEach(func(k, v []byte) error {
			var req internal.DownloadRequest
			if err := json.Unmarshal(v, &req); err != nil {
				slog.Warn("skipping corrupted session entry", slog.Any("key", k))
				return nil
			}
			requests = append(requests, req)
			return nil
		})
		if err != nil {
			return err
		}

		if err := tx.DeleteBucket(sessionBucket); err != nil {
			return err
		}
		_, err = tx.CreateBucket(sessionBucket)
		return err
	})
	if err != nil {
		return err
	}

	for _, req := range requests {
		if err := submit(req); err != nil {
			slog.Error("failed to restore download",
				slog.String("url", req.URL),
				slog.Any("err", err),
			)
		}
	}

	return nil
}
