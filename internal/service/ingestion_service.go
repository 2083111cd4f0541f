package service

import (
	"context"
	"fmt"
	"io"
	"log"
	"path"
	"time"

	"github.com/google/uuid"

	"quotadrop/internal/domain"
	"quotadrop/internal/repository"
)

// ArtifactStore хранит байты файлов и подписывает ссылки на них
type ArtifactStore interface {
	URLSigner
	Put(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

type UploadOptions struct {
	Limit int
	// TTL <= 0 означает файл без срока действия
	TTL time.Duration
}

type IngestionService struct {
	ledger    *repository.Ledger
	artifacts ArtifactStore
	clock     Clock
}

func NewIngestionService(ledger *repository.Ledger, artifacts ArtifactStore, clock Clock) *IngestionService {
	return &IngestionService{
		ledger:    ledger,
		artifacts: artifacts,
		clock:     clock,
	}
}

// Upload сохраняет пакет файлов под одной новой ссылкой.
// Сначала создаются FileRecord, затем LinkRecord. Откат не выполняется:
// при сбое на середине созданные файлы остаются сиротами и
// возвращается *domain.IngestionIncompleteError.
func (s *IngestionService) Upload(ctx context.Context, uploads []domain.Upload, opts UploadOptions) (*domain.LinkRecord, error) {
	if len(uploads) == 0 {
		return nil, domain.ErrEmptyUpload
	}
	if opts.Limit < 0 {
		return nil, domain.ErrInvalidLimit
	}

	now := s.clock.Now()
	var expiry *time.Time
	if opts.TTL > 0 {
		t := now.Add(opts.TTL)
		expiry = &t
	}

	link := &domain.LinkRecord{
		ID:        uuid.NewString(),
		Files:     make([]domain.FileMirror, 0, len(uploads)),
		Limit:     opts.Limit,
		Expiry:    expiry,
		CreatedAt: now,
	}

	created := make([]string, 0, len(uploads))
	incomplete := func(name string, err error) error {
		uploadsTotal.WithLabelValues("incomplete").Inc()
		log.Printf("[Upload] Link %s incomplete at %q after %d files: %v", link.ID, name, len(created), err)
		return &domain.IngestionIncompleteError{
			LinkID:  link.ID,
			Created: created,
			Failed:  name,
			Err:     err,
		}
	}

	for _, up := range uploads {
		fileID := uuid.NewString()
		key := path.Join("links", link.ID, fileID, path.Base(up.Name))

		locator, err := s.artifacts.Put(ctx, key, up.Body, up.ContentType)
		if err != nil {
			return nil, incomplete(up.Name, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err))
		}

		file := &domain.FileRecord{
			ID:          fileID,
			LinkID:      link.ID,
			Name:        up.Name,
			ContentType: up.ContentType,
			SizeBytes:   up.Size,
			Locator:     locator,
			Limit:       opts.Limit,
			Downloaded:  0,
			Expiry:      expiry,
			CreatedAt:   now,
		}
		if err := s.ledger.CreateFile(ctx, file); err != nil {
			return nil, incomplete(up.Name, err)
		}
		created = append(created, fileID)

		link.Files = append(link.Files, domain.FileMirror{
			ID:      fileID,
			Name:    up.Name,
			Locator: locator,
		})
	}

	if err := s.ledger.CreateLink(ctx, link); err != nil {
		return nil, incomplete("", err)
	}

	uploadsTotal.WithLabelValues("ok").Inc()
	log.Printf("[Upload] Created link %s with %d files, limit %d", link.ID, len(link.Files), link.Limit)
	return link, nil
}
