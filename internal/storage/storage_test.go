package storage

import (
	"bytes"
	"errors"
	"path/filepath"
	"testing"
)

// newTestStorage creates an in-memory storage closed at test end.
func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	s, err := Open("db", Options{InMemory: true})
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}

	t.Cleanup(func() { s.Close() })

	return s
}

func TestSetAndGet(t *testing.T) {
	s := newTestStorage(t)

	key := []byte("factor/device")
	value := []byte(`{"label":"phone"}`)

	if err := s.Set(key, value); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := s.Get(key)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if !bytes.Equal(got, value) {
		t.Errorf("Get returned %q, want %q", got, value)
	}
}

func TestGetNonExistent(t *testing.T) {
	s := newTestStorage(t)

	got, err := s.Get([]byte("non-existent"))
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}

	if got != nil {
		t.Errorf("Get returned %q, want nil", got)
	}

	ok, err := s.Has([]byte("non-existent"))
	if err != nil || ok {
		t.Errorf("Has = %v, %v, want false, nil", ok, err)
	}
}

func TestApplyMixesSetsAndDeletes(t *testing.T) {
	s := newTestStorage(t)

	if err := s.Set([]byte("entity/old"), []byte("old")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	ops := []Op{
		Put([]byte("entity/a"), []byte("a")),
		Put([]byte("entity/b"), []byte("b")),
		Remove([]byte("entity/old")),
	}

	if err := s.Apply(ops); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	for _, op := range ops[:2] {
		got, err := s.Get(op.Key)
		if err != nil {
			t.Fatalf("Get failed for %q: %v", op.Key, err)
		}

		if !bytes.Equal(got, op.Value) {
			t.Errorf("Get(%q) = %q, want %q", op.Key, got, op.Value)
		}
	}

	if got, _ := s.Get([]byte("entity/old")); got != nil {
		t.Errorf("deleted key still present: %q", got)
	}
}

func TestIteratePrefixStaysInPrefix(t *testing.T) {
	s := newTestStorage(t)

	for _, k := range []string{"f/1", "f/2", "e/1", "g/1", "f/3"} {
		if err := s.Set([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	var keys []string
	err := s.IteratePrefix([]byte("f/"), func(key, _ []byte) error {
		keys = append(keys, string(key))
		return nil
	})
	if err != nil {
		t.Fatalf("IteratePrefix failed: %v", err)
	}

	want := []string{"f/1", "f/2", "f/3"}
	if len(keys) != len(want) {
		t.Fatalf("got keys %v, want %v", keys, want)
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Errorf("key %d = %q, want %q", i, keys[i], want[i])
		}
	}

	stop := errors.New("stop")
	calls := 0
	err = s.IteratePrefix([]byte("f/"), func(_, _ []byte) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) || calls != 1 {
		t.Errorf("iteration did not stop on error: err=%v calls=%d", err, calls)
	}
}

func TestDeletePrefix(t *testing.T) {
	s := newTestStorage(t)

	for _, k := range []string{"f/1", "f/2", "g/1"} {
		if err := s.Set([]byte(k), []byte(k)); err != nil {
			t.Fatalf("Set failed: %v", err)
		}
	}

	if err := s.DeletePrefix([]byte("f/")); err != nil {
		t.Fatalf("DeletePrefix failed: %v", err)
	}

	if got, _ := s.Get([]byte("f/1")); got != nil {
		t.Errorf("f/1 survived DeletePrefix")
	}
	if got, _ := s.Get([]byte("g/1")); got == nil {
		t.Errorf("g/1 was deleted")
	}

	if err := s.DeletePrefix([]byte{0xff, 0xff}); err == nil {
		t.Error("expected unbounded prefix to be refused")
	}
}

func TestPrefixUpperBound(t *testing.T) {
	cases := []struct {
		prefix []byte
		want   []byte
	}{
		{[]byte("a"), []byte("b")},
		{[]byte{0x01, 0xff}, []byte{0x02}},
		{[]byte{0xff}, nil},
	}

	for _, tc := range cases {
		got := prefixUpperBound(tc.prefix)
		if !bytes.Equal(got, tc.want) {
			t.Errorf("prefixUpperBound(%x) = %x, want %x", tc.prefix, got, tc.want)
		}
	}
}

func TestReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db")

	s, err := Open(path, Options{})
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}

	if err := s.Set([]byte("k"), []byte("v")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	s, err = Open(path, Options{})
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s.Close()

	got, err := s.Get([]byte("k"))
	if err != nil || !bytes.Equal(got, []byte("v")) {
		t.Errorf("Get after reopen = %q, %v", got, err)
	}
}
