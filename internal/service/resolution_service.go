package service

import (
	"context"

	"quotadrop/internal/domain"
	"quotadrop/internal/repository"
)

type ResolutionService struct {
	ledger *repository.Ledger
}

func NewResolutionService(ledger *repository.Ledger) *ResolutionService {
	return &ResolutionService{ledger: ledger}
}

// Resolve возвращает манифест ссылки, ничего не изменяя.
// Счётчики берутся из зеркал и могут отставать на один цикл сверки.
func (s *ResolutionService) Resolve(ctx context.Context, linkID string) (*domain.Manifest, error) {
	link, err := s.ledger.GetLink(ctx, linkID)
	if err != nil {
		return nil, err
	}

	manifest := &domain.Manifest{
		LinkID:    link.ID,
		Files:     make([]domain.ManifestFile, 0, len(link.Files)),
		Limit:     link.Limit,
		ExpiresAt: link.Expiry,
	}
	for _, m := range link.Files {
		remaining := link.Limit - m.Downloaded
		if remaining < 0 {
			remaining = 0
		}
		manifest.Files = append(manifest.Files, domain.ManifestFile{
			ID:         m.ID,
			Name:       m.Name,
			Downloaded: m.Downloaded,
			Limit:      link.Limit,
			Remaining:  remaining,
		})
	}

	return manifest, nil
}
