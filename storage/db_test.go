package storage

import (
	"bytes"
	"errors"
	"testing"
)

func TestMemDBRoundTrip(t *testing.T) {
	db := NewMemDB()

	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if ok, err := db.Has([]byte("missing")); err != nil || ok {
		t.Fatalf("unexpected Has result: %v %v", ok, err)
	}

	if err := db.Put([]byte("k"), []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("v1")) {
		t.Fatalf("unexpected value: %s", got)
	}

	if err := db.Put([]byte("k"), []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get after overwrite: %v", err)
	}
	if !bytes.Equal(got, []byte("v2")) {
		t.Fatalf("unexpected value after overwrite: %s", got)
	}
}

func TestMemDBCopiesBuffers(t *testing.T) {
	db := NewMemDB()
	key := []byte("k")
	value := []byte("original")
	if err := db.Put(key, value); err != nil {
		t.Fatalf("put: %v", err)
	}

	// Mutating the caller's buffer must not corrupt the stored value.
	value[0] = 'X'
	got, err := db.Get(key)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("original")) {
		t.Fatalf("stored value aliased caller buffer: %s", got)
	}

	// Mutating a returned buffer must not corrupt subsequent reads.
	got[0] = 'Y'
	again, err := db.Get(key)
	if err != nil {
		t.Fatalf("get again: %v", err)
	}
	if !bytes.Equal(again, []byte("original")) {
		t.Fatalf("read buffer aliased store: %s", again)
	}
}

func TestLevelDBRoundTrip(t *testing.T) {
	db, err := NewLevelDB(t.TempDir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer db.Close()

	if _, err := db.Get([]byte("missing")); !errors.Is(err, ErrKeyNotFound) {
		t.Fatalf("expected ErrKeyNotFound, got %v", err)
	}
	if err := db.Put([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := db.Get([]byte("k"))
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !bytes.Equal(got, []byte("v")) {
		t.Fatalf("unexpected value: %s", got)
	}
	if ok, err := db.Has([]byte("k")); err != nil || !ok {
		t.Fatalf("unexpected Has result: %v %v", ok, err)
	}
}
