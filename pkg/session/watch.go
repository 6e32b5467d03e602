package session

import (
	"context"

	"github.com/SmileSnow819/natours/pkg/filewatcher"
)

var _ filewatcher.ChangeListener = (*Manager)(nil)

// OnFileChange reloads the session after another process rewrote the
// credentials file.
func (m *Manager) OnFileChange(event filewatcher.ChangeEvent) {
	if event.Error != nil {
		m.logger.Warn("credentials watcher error", "error", event.Error)
		return
	}
	if err := m.Reload(context.Background()); err != nil {
		m.logger.Warn("failed to reload session", "path", event.Path, "error", err)
	}
}
