package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/mymmrac/telego"
)

const mediaMaxBytes int64 = 20 * 1024 * 1024

// resolveMedia downloads any photo attached to msg to a temp file and
// returns its local path. Other media kinds are not transcribed or
// downloaded; the agent loop only consumes image content.
func (c *Channel) resolveMedia(ctx context.Context, msg *telego.Message) []string {
	if len(msg.Photo) == 0 {
		return nil
	}

	photo := msg.Photo[len(msg.Photo)-1]
	path, err := c.downloadFile(ctx, photo.FileID, int64(photo.FileSize))
	if err != nil {
		slog.Warn("failed to download telegram photo", "file_id", photo.FileID, "error", err)
		return nil
	}
	return []string{path}
}

func (c *Channel) downloadFile(ctx context.Context, fileID string, size int64) (string, error) {
	file, err := c.bot.GetFile(ctx, &telego.GetFileParams{FileID: fileID})
	if err != nil {
		return "", fmt.Errorf("get file info: %w", err)
	}
	if file.FilePath == "" {
		return "", fmt.Errorf("empty file path for file_id %s", fileID)
	}
	if size > mediaMaxBytes {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", size, mediaMaxBytes)
	}

	url := fmt.Sprintf("https://api.telegram.org/file/bot%s/%s", c.config.Token, file.FilePath)
	resp, err := http.Get(url)
	if err != nil {
		return "", fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download file: status %d", resp.StatusCode)
	}

	out, err := os.CreateTemp("", "telegram-media-*"+filepath.Ext(file.FilePath))
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return out.Name(), nil
}
