package repository

import (
	"context"
	"errors"
)

// Виды записей в хранилище
const (
	KindFile = "file"
	KindLink = "link"
)

var (
	ErrAlreadyExists   = errors.New("record already exists")
	ErrRecordNotFound  = errors.New("record not found")
	ErrVersionConflict = errors.New("record version conflict")
)

// RecordStore — хранилище документов с атомарностью в пределах одной записи.
// Межзаписных транзакций нет: вся координация идёт через ConditionalReplace.
type RecordStore interface {
	// Create сохраняет новую запись и возвращает её версию.
	Create(ctx context.Context, kind, id string, body []byte) (int64, error)
	// Read возвращает тело записи и текущую версию.
	Read(ctx context.Context, kind, id string) ([]byte, int64, error)
	// ConditionalReplace заменяет запись, только если её версия равна expected.
	ConditionalReplace(ctx context.Context, kind, id string, body []byte, expected int64) (int64, error)
	// ListIDs возвращает идентификаторы всех записей указанного вида.
	ListIDs(ctx context.Context, kind string) ([]string, error)
}
