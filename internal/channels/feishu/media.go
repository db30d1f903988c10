package feishu

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const mediaMaxBytes int = 20 * 1024 * 1024

// resolveMedia downloads the file attached to an image- or file-type
// message event to a temp file and returns its local path. Other message
// types carry nothing the agent loop can read as media.
func (c *Channel) resolveMedia(ctx context.Context, mc *messageContext, rawContent, messageType string) []string {
	switch messageType {
	case "image":
		var imgMsg struct {
			ImageKey string `json:"image_key"`
		}
		if err := json.Unmarshal([]byte(rawContent), &imgMsg); err != nil || imgMsg.ImageKey == "" {
			return nil
		}
		path, err := c.downloadImage(ctx, imgMsg.ImageKey)
		if err != nil {
			slog.Warn("failed to download feishu image", "image_key", imgMsg.ImageKey, "error", err)
			return nil
		}
		return []string{path}

	case "file":
		var fileMsg struct {
			FileKey string `json:"file_key"`
		}
		if err := json.Unmarshal([]byte(rawContent), &fileMsg); err != nil || fileMsg.FileKey == "" {
			return nil
		}
		path, err := c.downloadMessageFile(ctx, mc.MessageID, fileMsg.FileKey)
		if err != nil {
			slog.Warn("failed to download feishu file", "file_key", fileMsg.FileKey, "error", err)
			return nil
		}
		return []string{path}

	default:
		return nil
	}
}

func (c *Channel) downloadMessageFile(ctx context.Context, messageID, fileKey string) (string, error) {
	data, name, err := c.client.DownloadMessageResource(ctx, messageID, fileKey, "file")
	if err != nil {
		return "", fmt.Errorf("download message resource: %w", err)
	}
	if len(data) > mediaMaxBytes {
		return "", fmt.Errorf("file too large: %d bytes (max %d)", len(data), mediaMaxBytes)
	}

	ext := filepath.Ext(name)
	out, err := os.CreateTemp("", "feishu-media-*"+ext)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer out.Close()

	if _, err := out.Write(data); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return out.Name(), nil
}

func (c *Channel) downloadImage(ctx context.Context, imageKey string) (string, error) {
	data, err := c.client.DownloadImage(ctx, imageKey)
	if err != nil {
		return "", fmt.Errorf("download image: %w", err)
	}
	if len(data) > mediaMaxBytes {
		return "", fmt.Errorf("image too large: %d bytes (max %d)", len(data), mediaMaxBytes)
	}

	out, err := os.CreateTemp("", "feishu-media-*.png")
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}
	defer out.Close()

	if _, err := out.Write(data); err != nil {
		return "", fmt.Errorf("write temp file: %w", err)
	}
	return out.Name(), nil
}

// sendImage uploads a local image file and sends it as an image message.
func (c *Channel) sendImage(ctx context.Context, receiveIDType, chatID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	imageKey, err := c.client.UploadImage(ctx, f)
	if err != nil {
		return fmt.Errorf("upload image: %w", err)
	}

	content, err := json.Marshal(map[string]string{"image_key": imageKey})
	if err != nil {
		return fmt.Errorf("marshal image content: %w", err)
	}
	if _, err := c.client.SendMessage(ctx, receiveIDType, chatID, "image", string(content)); err != nil {
		return fmt.Errorf("send image: %w", err)
	}
	return nil
}

// sendFile uploads a local file and sends it as a file message.
func (c *Channel) sendFile(ctx context.Context, receiveIDType, chatID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	fileKey, err := c.client.UploadFile(ctx, f, filepath.Base(path), "stream", 0)
	if err != nil {
		return fmt.Errorf("upload file: %w", err)
	}

	content, err := json.Marshal(map[string]string{"file_key": fileKey})
	if err != nil {
		return fmt.Errorf("marshal file content: %w", err)
	}
	if _, err := c.client.SendMessage(ctx, receiveIDType, chatID, "file", string(content)); err != nil {
		return fmt.Errorf("send file: %w", err)
	}
	return nil
}
