// SPDX-FileCopyrightText: © 2026 Katzenpost Developers
// SPDX-License-Identifier: AGPL-3.0-only

// Package backoff persists server imposed retry deadlines so that a new
// process does not contact a rate limiting service early.
package backoff

import (
	"errors"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"
	bolt "go.etcd.io/bbolt"
	"gopkg.in/op/go-logging.v1"
)

const (
	metadataBucket  = "metadata"
	deadlinesBucket = "deadlines"
	versionKey      = "version"
	version         = 0
)

// ErrNotFound is returned by Entry for a name without a deadline.
var ErrNotFound = errors.New("backoff: no deadline recorded")

// Entry is one recorded deadline.
type Entry struct {
	Until    int64  `cbor:"until"`
	Reason   string `cbor:"reason"`
	Recorded int64  `cbor:"recorded"`
}

// UntilTime returns Until as a time.Time.
func (e *Entry) UntilTime() time.Time {
	return time.Unix(0, e.Until)
}

// Ledger is a bbolt backed store of retry deadlines keyed by service name.
type Ledger struct {
	db  *bolt.DB
	log *logging.Logger
	now func() time.Time
}

// New opens (or creates) the ledger stored in file f.
func New(f string, log *logging.Logger) (*Ledger, error) {
	db, err := bolt.Open(f, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, err
	}
	if err = db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists([]byte(metadataBucket))
		if err != nil {
			return err
		}
		if _, err = tx.CreateBucketIfNotExists([]byte(deadlinesBucket)); err != nil {
			return err
		}
		if b := bkt.Get([]byte(versionKey)); b != nil {
			if len(b) != 1 || b[0] != version {
				return fmt.Errorf("backoff: incompatible version: %x", b)
			}
			return nil
		}
		return bkt.Put([]byte(versionKey), []byte{version})
	}); err != nil {
		db.Close()
		return nil, err
	}
	return &Ledger{db: db, log: log, now: time.Now}, nil
}

// Entry returns the deadline recorded for name.
func (l *Ledger) Entry(name string) (*Entry, error) {
	var e *Entry
	err := l.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket([]byte(deadlinesBucket)).Get([]byte(name))
		if raw == nil {
			return ErrNotFound
		}
		e = new(Entry)
		_, err := cbor.UnmarshalFirst(raw, e)
		return err
	})
	if err != nil {
		return nil, err
	}
	return e, nil
}

// NotBefore returns the recorded deadline for name, or the zero time.
func (l *Ledger) NotBefore(name string) (time.Time, error) {
	e, err := l.Entry(name)
	switch {
	case errors.Is(err, ErrNotFound):
		return time.Time{}, nil
	case err != nil:
		return time.Time{}, err
	}
	return e.UntilTime(), nil
}

// Record stores until as the deadline for name.  An existing later deadline
// is kept.
func (l *Ledger) Record(name, reason string, until time.Time) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket([]byte(deadlinesBucket))
		if raw := bkt.Get([]byte(name)); raw != nil {
			var old Entry
			if _, err := cbor.UnmarshalFirst(raw, &old); err == nil && old.Until >= until.UnixNano() {
				return nil
			}
		}
		raw, err := cbor.Marshal(&Entry{
			Until:    until.UnixNano(),
			Reason:   reason,
			Recorded: l.now().UnixNano(),
		})
		if err != nil {
			return err
		}
		l.log.Debugf("Backing off %s until %v (%s)", name, until, reason)
		return bkt.Put([]byte(name), raw)
	})
}

// Clear forgets the deadline for name.
func (l *Ledger) Clear(name string) error {
	return l.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(deadlinesBucket)).Delete([]byte(name))
	})
}

// Close syncs and closes the database.
func (l *Ledger) Close() error {
	l.db.Sync()
	return l.db.Close()
}
