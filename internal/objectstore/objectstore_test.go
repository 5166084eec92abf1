//go:build s3_integration

package objectstore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Sentimentron/sentropy"
)

func TestS3StorePutGetRoundTrip(t *testing.T) {
	sentropy.Config.ObjectStore.Region = "us-east-1"
	sentropy.Config.ObjectStore.Endpoint = "http://localhost:9000"

	s, err := NewS3Store(context.Background())
	require.NoError(t, err)

	err = s.Put(context.Background(), "sentropy-test", "roundtrip.txt", []byte("hello"), "text/plain")
	require.NoError(t, err)

	data, err := s.Get(context.Background(), "sentropy-test", "roundtrip.txt")
	require.NoError(t, err)
	require.Equal(t, "hello", string(data))
}
