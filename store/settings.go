package store

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"pixshift/models"

	"github.com/go-playground/validator/v10"
)

const settingsPrefix = "settings/"

// Settings is a persisted conversion profile.
type Settings struct {
	TargetFormat       string         `json:"target_format" validate:"required"`
	Quality            map[string]int `json:"quality" validate:"dive,gte=0,lte=100"` // per target format
	AVIFSpeed          int            `json:"avif_speed" validate:"gte=0,lte=10"`
	PreserveExif       bool           `json:"preserve_exif"`
	PreserveTimestamps bool           `json:"preserve_timestamps"`
	OutputDir          string         `json:"output_dir" validate:"required"`
	RemoteFallbackDir  string         `json:"remote_fallback_dir"`
	CreateSubfolder    bool           `json:"create_subfolder"`
	SubfolderName      string         `json:"subfolder_name" validate:"excludesall=/\\"`
	Concurrency        uint           `json:"concurrency" validate:"lte=1024"`
}

// DefaultSettings returns the profile used before anything is saved.
func DefaultSettings() Settings {
	return Settings{
		TargetFormat: "webp",
		Quality: map[string]int{
			"webp": 80,
			"jpeg": 80,
			"png":  6,
			"avif": 80,
		},
		AVIFSpeed:          6,
		PreserveExif:       true,
		PreserveTimestamps: true,
		OutputDir:          models.UseSourceDir,
		CreateSubfolder:    false,
		SubfolderName:      "converted",
		Concurrency:        0,
	}
}

// QualityFor returns the stored quality for a target, defaulting to 80.
func (s Settings) QualityFor(target string) int {
	target = strings.ToLower(target)
	if target == "jpg" {
		target = "jpeg"
	}
	if q, ok := s.Quality[target]; ok {
		return q
	}
	return 80
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		return name
	})
	return v
}

// Validate rejects values a batch could not run with.
func (s Settings) Validate() error {
	s.TargetFormat = strings.TrimSpace(s.TargetFormat)
	err := validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		case "gte", "lte":
			msgs = append(msgs, fmt.Sprintf("%s out of allowed range: %v", e.Namespace(), e.Value()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s has an invalid value", e.Field()))
		}
	}
	return fmt.Errorf("invalid settings: %s", strings.Join(msgs, "; "))
}

// BatchRequest builds the request a batch run with these settings uses.
func (s Settings) BatchRequest() models.BatchRequest {
	return models.BatchRequest{
		TargetFormat:       s.TargetFormat,
		Quality:            uint8(s.QualityFor(s.TargetFormat)),
		Speed:              uint8(s.AVIFSpeed),
		PreserveExif:       s.PreserveExif,
		PreserveTimestamps: s.PreserveTimestamps,
		OutputDir:          s.OutputDir,
		Concurrency:        s.Concurrency,
		CreateSubfolder:    s.CreateSubfolder,
		SubfolderName:      s.SubfolderName,
		RemoteFallbackDir:  s.RemoteFallbackDir,
	}
}

// SettingsStore keeps named settings profiles.
type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

// Load returns the named profile, or the defaults when it was never saved.
func (s *SettingsStore) Load(profile string) (Settings, error) {
	st := DefaultSettings()
	err := s.db.GetJSON(settingsPrefix+profile, &st)
	if errors.Is(err, ErrNotFound) {
		return DefaultSettings(), nil
	}
	if err != nil {
		return DefaultSettings(), fmt.Errorf("load settings %q: %w", profile, err)
	}
	return st, nil
}

// Save validates and stores a profile.
func (s *SettingsStore) Save(profile string, st Settings) error {
	if err := st.Validate(); err != nil {
		return err
	}
	return s.db.PutJSON(settingsPrefix+profile, st)
}

// Reset drops a profile so the defaults apply again.
func (s *SettingsStore) Reset(profile string) error {
	return s.db.Delete(settingsPrefix + profile)
}

// Profiles lists saved profile names.
func (s *SettingsStore) Profiles() ([]string, error) {
	keys, err := s.db.Keys(settingsPrefix)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = strings.TrimPrefix(k, settingsPrefix)
	}
	return names, nil
}
