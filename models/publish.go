package models

// PublishTarget names one destination converted files are copied to after a batch.
type PublishTarget struct {
	Type           string `json:"type" yaml:"type"`                       // "s3", "gcs", "sftp" or "local"
	CredentialsKey string `json:"credentials_key" yaml:"credentials_key"` // key into the credentials store
	Prefix         string `json:"prefix,omitempty" yaml:"prefix"`         // folder or key prefix on the target
}

// PublishFailure records one file that could not be uploaded to one target.
type PublishFailure struct {
	Target string `json:"target"`
	File   string `json:"file"`
	Error  string `json:"error"`
}
