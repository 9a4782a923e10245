// Package archive keeps every raw message received from the loggers, so that
// data can be decoded again after a decoder fix or a lost database.
package archive

import (
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

// headerLength is the receive timestamp stored in front of each message
const headerLength = 8

// Entry is one archived message
type Entry struct {
	Seq      uint64
	Received time.Time
	Raw      []byte // complete message including the preamble
}

// Archive stores raw messages in a bbolt database with one bucket per
// station. Keys are big-endian sequence numbers, so iteration follows
// arrival order.
type Archive struct {
	DB *bbolt.DB
}

// Open opens or creates the archive file.
func Open(path string) (*Archive, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open archive %s: %w", path, err)
	}
	return &Archive{DB: db}, nil
}

// Close closes the database file.
func (a *Archive) Close() error {
	return a.DB.Close()
}

// Put appends a raw message to the station's bucket.
func (a *Archive) Put(station string, received time.Time, raw []byte) error {
	return a.DB.Update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(station))
		if err != nil {
			return fmt.Errorf("failed to create bucket %q: %w", station, err)
		}

		seq, err := b.NextSequence()
		if err != nil {
			return err
		}

		value := make([]byte, headerLength+len(raw))
		binary.BigEndian.PutUint64(value, uint64(received.UnixNano()))
		copy(value[headerLength:], raw)

		return b.Put(itob(seq), value)
	})
}

// ForEach calls fn for every message of a station in arrival order. The
// entry's Raw slice is a copy and may be retained. Iteration stops at the
// first error returned by fn.
func (a *Archive) ForEach(station string, fn func(Entry) error) error {
	return a.DB.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(station))
		if b == nil {
			return nil
		}

		return b.ForEach(func(k, v []byte) error {
			entry, err := decodeEntry(k, v)
			if err != nil {
				return fmt.Errorf("station %q: %w", station, err)
			}
			return fn(entry)
		})
	})
}

// Stations lists the stations that have archived messages.
func (a *Archive) Stations() ([]string, error) {
	var stations []string
	err := a.DB.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bbolt.Bucket) error {
			stations = append(stations, string(name))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return stations, nil
}

// Count returns the number of archived messages of a station.
func (a *Archive) Count(station string) (int, error) {
	var n int
	err := a.DB.View(func(tx *bbolt.Tx) error {
		if b := tx.Bucket([]byte(station)); b != nil {
			n = b.Stats().KeyN
		}
		return nil
	})
	return n, err
}

var errCorruptEntry = errors.New("corrupt archive entry")

func decodeEntry(k, v []byte) (Entry, error) {
	if len(k) != 8 || len(v) < headerLength {
		return Entry{}, errCorruptEntry
	}

	raw := make([]byte, len(v)-headerLength)
	copy(raw, v[headerLength:])

	return Entry{
		Seq:      binary.BigEndian.Uint64(k),
		Received: time.Unix(0, int64(binary.BigEndian.Uint64(v))),
		Raw:      raw,
	}, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
