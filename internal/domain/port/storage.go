package port

import "context"

type MediaStorage interface {
	DownloadMedia(ctx context.Context, objectKey string, destPath string) error
}
