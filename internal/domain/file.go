package domain

import (
	"io"
	"time"
)

// FileRecord — авторитетное состояние квоты одного загруженного файла.
// Version не сериализуется: это версия записи в хранилище, по ней делается
// условная запись (compare-and-swap).
type FileRecord struct {
	ID          string     `json:"id"`
	LinkID      string     `json:"link_id"`
	Name        string     `json:"name"`
	ContentType string     `json:"content_type"`
	SizeBytes   int64      `json:"size_bytes"`
	Locator     string     `json:"locator"`
	Limit       int        `json:"limit"`
	Downloaded  int        `json:"downloaded"`
	Expiry      *time.Time `json:"expiry,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`

	Version int64 `json:"-"`
}

// Expired сообщает, истёк ли срок действия файла на момент now.
func (f *FileRecord) Expired(now time.Time) bool {
	return f.Expiry != nil && !now.Before(*f.Expiry)
}

// Remaining возвращает оставшееся количество скачиваний.
func (f *FileRecord) Remaining() int {
	if f.Downloaded >= f.Limit {
		return 0
	}
	return f.Limit - f.Downloaded
}

// State возвращает состояние файла с точки зрения шлюза выдачи.
func (f *FileRecord) State(now time.Time) FileState {
	switch {
	case f.Expired(now):
		return FileStateExpired
	case f.Downloaded >= f.Limit:
		return FileStateExhausted
	default:
		return FileStateActive
	}
}

type FileState string

const (
	FileStateActive    FileState = "active"
	FileStateExhausted FileState = "exhausted"
	FileStateExpired   FileState = "expired"
)

// Upload — один файл из пакета загрузки
type Upload struct {
	Name        string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Grant — результат успешного погашения
type Grant struct {
	URL        string     `json:"url"`
	Remaining  int        `json:"remaining_downloads"`
	Downloaded int        `json:"downloaded"`
	Limit      int        `json:"limit"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}
