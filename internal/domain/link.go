package domain

import "time"

// FileMirror — облегчённая копия файла внутри ссылки.
// Downloaded здесь только кэш счётчика из FileRecord.
type FileMirror struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Locator    string `json:"locator"`
	Downloaded int    `json:"downloaded"`
}

// LinkRecord — манифест ссылки с денормализованными счётчиками файлов
type LinkRecord struct {
	ID        string       `json:"id"`
	Files     []FileMirror `json:"files"`
	Limit     int          `json:"limit"`
	Expiry    *time.Time   `json:"expiry,omitempty"`
	CreatedAt time.Time    `json:"created_at"`

	Version int64 `json:"-"`
}

// Mirror возвращает индекс зеркала файла или -1
func (l *LinkRecord) Mirror(fileID string) int {
	for i := range l.Files {
		if l.Files[i].ID == fileID {
			return i
		}
	}
	return -1
}

// ManifestFile — файл в ответе на разрешение ссылки
type ManifestFile struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Downloaded int    `json:"downloaded"`
	Limit      int    `json:"limit"`
	Remaining  int    `json:"remaining"`
}

// Manifest — содержимое ссылки. Счётчики берутся из зеркал и могут
// отставать от FileRecord не более чем на один цикл сверки.
type Manifest struct {
	LinkID    string         `json:"link_id"`
	Files     []ManifestFile `json:"files"`
	Limit     int            `json:"limit"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
}
