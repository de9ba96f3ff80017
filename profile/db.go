package profile

import (
	"fmt"

	"github.com/boltdb/bolt"
	"github.com/pkg/errors"
)

const (
	ProfileBucket = "profilebuilder.Profile"
)

// Store keeps exported profiles keyed by PayloadIdentifier so they can be
// listed and deployed again.
type Store interface {
	List() ([]Profile, error)
	Save(p *Profile) error
	ProfileById(id string) (*Profile, error)
	Delete(id string) error
}

type DB struct {
	*bolt.DB
}

func NewDB(db *bolt.DB) (*DB, error) {
	err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(ProfileBucket))
		return err
	})
	if err != nil {
		return nil, errors.Wrapf(err, "creating %s bucket", ProfileBucket)
	}
	datastore := &DB{
		DB: db,
	}
	return datastore, nil
}

func (db *DB) List() ([]Profile, error) {
	var list []Profile
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ProfileBucket))
		c := b.Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			list = append(list, Profile{
				Identifier:   string(k),
				Mobileconfig: copyBytes(v),
			})
		}
		return nil
	})
	return list, err
}

// Save stores the mobileconfig bytes under the profile identifier,
// replacing any earlier export.
func (db *DB) Save(p *Profile) error {
	err := p.Validate()
	if err != nil {
		return err
	}
	tx, err := db.DB.Begin(true)
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer tx.Rollback()
	bkt := tx.Bucket([]byte(ProfileBucket))
	if bkt == nil {
		return fmt.Errorf("bucket %q not found!", ProfileBucket)
	}
	if err := bkt.Put([]byte(p.Identifier), p.Mobileconfig); err != nil {
		return errors.Wrap(err, "put profile to boltdb")
	}
	return tx.Commit()
}

func (db *DB) ProfileById(id string) (*Profile, error) {
	var p Profile
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(ProfileBucket))
		v := b.Get([]byte(id))
		if v == nil {
			return &notFound{"Profile", fmt.Sprintf("id %s", id)}
		}
		p.Identifier = id
		p.Mobileconfig = copyBytes(v)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (db *DB) Delete(id string) error {
	if _, err := db.ProfileById(id); err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(ProfileBucket)).Delete([]byte(id))
	})
}

// bolt values are only valid for the life of the transaction.
func copyBytes(v []byte) []byte {
	out := make([]byte, len(v))
	copy(out, v)
	return out
}

type notFound struct {
	ResourceType string
	Message      string
}

func (e *notFound) Error() string {
	return fmt.Sprintf("not found: %s %s", e.ResourceType, e.Message)
}

func IsNotFound(err error) bool {
	if _, ok := errors.Cause(err).(*notFound); ok {
		return true
	}
	return false
}
