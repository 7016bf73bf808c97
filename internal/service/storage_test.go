package service_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/iliyamo/fishing-club-booking/internal/service"
)

type fakeUploader struct {
	key         string
	contentType string
	size        int
}

func (u *fakeUploader) Upload(_ context.Context, key, contentType string, body []byte) (string, error) {
	u.key, u.contentType, u.size = key, contentType, len(body)
	return "https://cdn.test/" + key, nil
}

// minimal PNG signature followed by padding
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 32)...)

func TestLogoStorage_StoresImages(t *testing.T) {
	up := &fakeUploader{}
	s := service.NewLogoStorageWith(up, 1024)

	url, err := s.StoreLogo(context.Background(), 7, bytes.NewReader(pngBytes))
	require.NoError(t, err)
	require.Equal(t, "image/png", up.contentType)
	require.True(t, strings.HasPrefix(up.key, "logos/7/"))
	require.True(t, strings.HasSuffix(up.key, ".png"))
	require.Equal(t, "https://cdn.test/"+up.key, url)
}

func TestLogoStorage_Rejects(t *testing.T) {
	up := &fakeUploader{}
	s := service.NewLogoStorageWith(up, 16)

	_, err := s.StoreLogo(context.Background(), 7, bytes.NewReader(nil))
	require.ErrorIs(t, err, service.ErrValidation)

	_, err = s.StoreLogo(context.Background(), 7, bytes.NewReader(pngBytes))
	require.ErrorIs(t, err, service.ErrValidation)

	_, err = s.StoreLogo(context.Background(), 7, strings.NewReader("plain text"))
	require.ErrorIs(t, err, service.ErrValidation)
	require.Empty(t, up.key)
}
