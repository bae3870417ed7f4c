package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresignedURLUsesPathStyleEndpoint(t *testing.T) {
	client, err := NewS3Client(context.Background(), S3Options{
		Region:          "us-east-1",
		Endpoint:        "http://localhost:9000",
		AccessKeyID:     "minio",
		SecretAccessKey: "minio-secret",
	})
	require.NoError(t, err)

	url, err := client.GetPresignedURL(context.Background(), "certificates", "templates/certificate_template.pdf", 15*time.Minute)

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "http://localhost:9000/certificates/templates/certificate_template.pdf?"), url)
	assert.Contains(t, url, "X-Amz-Signature=")
	assert.Contains(t, url, "X-Amz-Expires=900")
}
