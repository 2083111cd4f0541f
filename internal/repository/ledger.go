package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quotadrop/internal/domain"
)

// Ledger — единственный владелец FileRecord и LinkRecord.
// Остальные компоненты меняют записи только через него.
type Ledger struct {
	store RecordStore
}

func NewLedger(store RecordStore) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) CreateFile(ctx context.Context, file *domain.FileRecord) error {
	body, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode file %s: %w", file.ID, err)
	}

	version, err := l.store.Create(ctx, KindFile, file.ID, body)
	if err != nil {
		return err
	}
	file.Version = version
	return nil
}

// GetFile возвращает запись файла вместе с версией.
// Отсутствующая запись даёт domain.ErrNotFound.
func (l *Ledger) GetFile(ctx context.Context, id string) (*domain.FileRecord, error) {
	body, version, err := l.store.Read(ctx, KindFile, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil, err
	}

	var file domain.FileRecord
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, fmt.Errorf("failed to decode file %s: %w", id, err)
	}
	file.Version = version
	return &file, nil
}

// ReplaceFile записывает файл при условии, что версия в хранилище
// всё ещё равна file.Version. При успехе file.Version обновляется.
func (l *Ledger) ReplaceFile(ctx context.Context, file *domain.FileRecord) error {
	body, err := json.Marshal(file)
	if err != nil {
		return fmt.Errorf("failed to encode file %s: %w", file.ID, err)
	}

	version, err := l.store.ConditionalReplace(ctx, KindFile, file.ID, body, file.Version)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrNotFound, file.ID)
		}
		return err
	}
	file.Version = version
	return nil
}

func (l *Ledger) CreateLink(ctx context.Context, link *domain.LinkRecord) error {
	body, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to encode link %s: %w", link.ID, err)
	}

	version, err := l.store.Create(ctx, KindLink, link.ID, body)
	if err != nil {
		return err
	}
	link.Version = version
	return nil
}

func (l *Ledger) GetLink(ctx context.Context, id string) (*domain.LinkRecord, error) {
	body, version, err := l.store.Read(ctx, KindLink, id)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrLinkNotFound, id)
		}
		return nil, err
	}

	var link domain.LinkRecord
	if err := json.Unmarshal(body, &link); err != nil {
		return nil, fmt.Errorf("failed to decode link %s: %w", id, err)
	}
	link.Version = version
	return &link, nil
}

func (l *Ledger) ReplaceLink(ctx context.Context, link *domain.LinkRecord) error {
	body, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("failed to encode link %s: %w", link.ID, err)
	}

	version, err := l.store.ConditionalReplace(ctx, KindLink, link.ID, body, link.Version)
	if err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return fmt.Errorf("%w: %s", domain.ErrLinkNotFound, link.ID)
		}
		return err
	}
	link.Version = version
	return nil
}

func (l *Ledger) ListLinkIDs(ctx context.Context) ([]string, error) {
	return l.store.ListIDs(ctx, KindLink)
}
