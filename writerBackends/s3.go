package writerbackends

import (
	"context"
	"fmt"
	"io"

	"pixshift/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// UploadToS3WithCreds uploads content to an S3 object. accessInfo needs
// accessKey, secretKey, region, bucket and key; endpoint is optional for
// S3-compatible stores.
func UploadToS3WithCreds(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	creds := credentials.NewStaticCredentialsProvider(accessInfo["accessKey"], accessInfo["secretKey"], "")
	key := accessInfo["key"]
	bucket := accessInfo["bucket"]
	if bucket == "" || key == "" {
		return fmt.Errorf("missing required accessInfo keys: bucket, key")
	}

	s3Client := s3.New(s3.Options{
		Region:      accessInfo["region"],
		Credentials: creds,
	}, func(o *s3.Options) {
		if endpoint := accessInfo["endpoint"]; endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	uploader := manager.NewUploader(s3Client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        reader,
		ContentType: aws.String(contentType(key)),
	})

	if err != nil {
		return fmt.Errorf("failed to upload object %s to bucket %s: %w", key, bucket, err)
	}

	logger.Infof("Successfully uploaded object '%s' to bucket '%s'", key, bucket)
	return nil
}
