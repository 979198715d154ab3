package credentials

import (
	"errors"
	"path/filepath"
	"testing"

	"pixshift/store"
)

func TestCredentialsLifecycle(t *testing.T) {
	if err := OpenDB(filepath.Join(t.TempDir(), "test_credentials.db")); err != nil {
		t.Fatalf("Failed to open DB: %v", err)
	}
	defer CloseDB()

	rec := Record{Type: "local", Values: map[string]string{"baseDir": "/srv/mirror"}}
	key, err := StoreCredentials(rec)
	if err != nil {
		t.Fatalf("StoreCredentials failed: %v", err)
	}
	if len(key) != 12 {
		t.Errorf("Expected 12 character key, got %q", key)
	}

	got, err := GetCredentials(key)
	if err != nil {
		t.Fatalf("GetCredentials failed: %v", err)
	}
	if got.Type != "local" || got.Values["baseDir"] != "/srv/mirror" {
		t.Errorf("Unexpected record %+v", got)
	}

	if err := DeleteCredentials(key); err != nil {
		t.Fatalf("DeleteCredentials failed: %v", err)
	}
	if _, err := GetCredentials(key); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		rec  Record
		ok   bool
	}{
		{"unknown type", Record{Type: "ftp"}, false},
		{"s3 missing bucket", Record{Type: "s3", Values: map[string]string{"accessKey": "a", "secretKey": "b", "region": "r"}}, false},
		{"s3 complete", Record{Type: "s3", Values: map[string]string{"accessKey": "a", "secretKey": "b", "region": "r", "bucket": "x"}}, true},
		{"sftp no auth", Record{Type: "sftp", Values: map[string]string{"host": "h", "user": "u"}}, false},
		{"sftp password", Record{Type: "sftp", Values: map[string]string{"host": "h", "user": "u", "password": "p"}}, true},
	}
	for _, tt := range tests {
		err := Validate(tt.rec)
		if (err == nil) != tt.ok {
			t.Errorf("%s: Validate error = %v, want ok=%v", tt.name, err, tt.ok)
		}
	}
}

func TestStoreWithoutDB(t *testing.T) {
	CloseDB()
	if _, err := StoreCredentials(Record{Type: "local", Values: map[string]string{"baseDir": "x"}}); err == nil {
		t.Error("Expected error when the store is not open")
	}
}
