package credentials

import (
	"errors"
	"fmt"

	"pixshift/logger"
	"pixshift/store"
	"pixshift/utils"
)

// Record is a stored set of credentials for one publish target type.
type Record struct {
	Type   string            `json:"type"`
	Values map[string]string `json:"values"`
}

// required lists the keys each target type needs.
var required = map[string][]string{
	"s3":    {"accessKey", "secretKey", "region", "bucket"},
	"gcs":   {"credentialsJSON", "bucket"},
	"sftp":  {"host", "user"},
	"local": {"baseDir"},
}

const keyPrefix = "cred/"

var db *store.DB

// OpenDB opens the Pebble DB for credentials at the specified path
func OpenDB(dbPath string) error {
	d, err := store.Open(dbPath)
	if err != nil {
		logger.Errorf("Failed to open credentials DB: %v", err)
		return err
	}
	db = d
	return nil
}

// CloseDB closes the DB
func CloseDB() error {
	if db != nil {
		err := db.Close()
		db = nil
		return err
	}
	return nil
}

// Validate checks that rec carries every key its target type needs.
func Validate(rec Record) error {
	keys, ok := required[rec.Type]
	if !ok {
		return fmt.Errorf("unknown target type: %s", rec.Type)
	}
	for _, k := range keys {
		if rec.Values[k] == "" {
			return fmt.Errorf("%s credentials missing %q", rec.Type, k)
		}
	}
	if rec.Type == "sftp" && rec.Values["password"] == "" && rec.Values["privateKey"] == "" {
		return errors.New("sftp credentials need a password or privateKey")
	}
	return nil
}

// StoreCredentials validates rec and stores it under a fresh random key.
func StoreCredentials(rec Record) (string, error) {
	if db == nil {
		return "", errors.New("credentials store is not open")
	}
	if err := Validate(rec); err != nil {
		return "", err
	}
	key, err := utils.GenerateRNS()
	if err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	if err := db.PutJSON(keyPrefix+key, rec); err != nil {
		return "", err
	}
	logger.Infof("Stored %s credentials under key %s", rec.Type, key)
	return key, nil
}

// GetCredentials returns the record stored under key.
func GetCredentials(key string) (Record, error) {
	if db == nil {
		return Record{}, errors.New("credentials store is not open")
	}
	var rec Record
	if err := db.GetJSON(keyPrefix+key, &rec); err != nil {
		return Record{}, fmt.Errorf("credentials %s: %w", key, err)
	}
	return rec, nil
}

// DeleteCredentials deletes the credentials for the given key
func DeleteCredentials(key string) error {
	if db == nil {
		return errors.New("credentials store is not open")
	}
	return db.Delete(keyPrefix + key)
}
