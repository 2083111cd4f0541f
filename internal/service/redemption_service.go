package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"quotadrop/internal/domain"
	"quotadrop/internal/repository"
)

const (
	DefaultMaxAttempts    = 5
	DefaultMirrorAttempts = 3
)

type RedemptionService struct {
	ledger         *repository.Ledger
	urls           *URLCache
	clock          Clock
	maxAttempts    int
	mirrorAttempts int
}

func NewRedemptionService(
	ledger *repository.Ledger,
	urls *URLCache,
	clock Clock,
	maxAttempts int,
	mirrorAttempts int,
) *RedemptionService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if mirrorAttempts <= 0 {
		mirrorAttempts = DefaultMirrorAttempts
	}
	return &RedemptionService{
		ledger:         ledger,
		urls:           urls,
		clock:          clock,
		maxAttempts:    maxAttempts,
		mirrorAttempts: mirrorAttempts,
	}
}

// Redeem выдаёт ровно одно скачивание файла fileID по ссылке linkID
// или возвращает причину отказа: domain.ErrNotFound, domain.ErrExpired,
// domain.ErrQuotaExceeded, domain.ErrContention.
//
// Счётчик увеличивается условной записью по версии FileRecord. Проигравший
// гонку перечитывает запись и заново проверяет условия, поэтому два
// параллельных погашения никогда не увидят одно и то же значение downloaded.
func (s *RedemptionService) Redeem(ctx context.Context, linkID, fileID string) (*domain.Grant, error) {
	file, err := s.claim(ctx, linkID, fileID)
	if err != nil {
		s.observe(linkID, fileID, err)
		return nil, err
	}
	redemptionsTotal.WithLabelValues("granted").Inc()

	// Погашение уже зафиксировано и не отменяется вместе с запросом
	s.updateMirror(context.WithoutCancel(ctx), linkID, file)

	url, err := s.urls.URL(ctx, file.Locator)
	if err != nil {
		log.Printf("[Redeem] File %s redeemed (%d/%d) but URL signing failed: %v",
			file.ID, file.Downloaded, file.Limit, err)
		return nil, fmt.Errorf("%w: failed to sign url for %s: %v", domain.ErrStoreUnavailable, file.ID, err)
	}

	return &domain.Grant{
		URL:        url,
		Remaining:  file.Remaining(),
		Downloaded: file.Downloaded,
		Limit:      file.Limit,
		ExpiresAt:  file.Expiry,
	}, nil
}

// claim выполняет цикл чтение → проверка → условная запись
func (s *RedemptionService) claim(ctx context.Context, linkID, fileID string) (*domain.FileRecord, error) {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		file, err := s.ledger.GetFile(ctx, fileID)
		if err != nil {
			return nil, err
		}
		if err := s.check(file, linkID); err != nil {
			return nil, err
		}

		file.Downloaded++
		err = s.ledger.ReplaceFile(ctx, file)
		if err == nil {
			return file, nil
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			return nil, err
		}

		redemptionConflictsTotal.Inc()
	}

	return nil, fmt.Errorf("%w: file %s after %d attempts", domain.ErrContention, fileID, s.maxAttempts)
}

// check проверяет условия выдачи в фиксированном порядке:
// принадлежность ссылке, срок действия, остаток квоты
func (s *RedemptionService) check(file *domain.FileRecord, linkID string) error {
	if file.LinkID != linkID {
		return fmt.Errorf("%w: %s in link %s", domain.ErrNotFound, file.ID, linkID)
	}
	if file.Expired(s.clock.Now()) {
		return fmt.Errorf("%w: %s", domain.ErrExpired, file.ID)
	}
	if file.Downloaded >= file.Limit {
		return fmt.Errorf("%w: %s (%d/%d)", domain.ErrQuotaExceeded, file.ID, file.Downloaded, file.Limit)
	}
	return nil
}

// updateMirror поднимает зеркальный счётчик файла в ссылке до file.Downloaded.
// Ошибки не возвращаются: авторитетный счётчик уже записан.
func (s *RedemptionService) updateMirror(ctx context.Context, linkID string, file *domain.FileRecord) {
	for attempt := 1; attempt <= s.mirrorAttempts; attempt++ {
		link, err := s.ledger.GetLink(ctx, linkID)
		if err != nil {
			mirrorUpdateFailuresTotal.Inc()
			log.Printf("[Redeem] Mirror of %s skipped, link %s unreadable: %v", file.ID, linkID, err)
			return
		}

		i := link.Mirror(file.ID)
		if i < 0 {
			mirrorUpdateFailuresTotal.Inc()
			log.Printf("[Redeem] Link %s has no mirror for file %s", linkID, file.ID)
			return
		}
		if link.Files[i].Downloaded >= file.Downloaded {
			return
		}

		link.Files[i].Downloaded = file.Downloaded
		err = s.ledger.ReplaceLink(ctx, link)
		if err == nil {
			return
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			mirrorUpdateFailuresTotal.Inc()
			log.Printf("[Redeem] Mirror of %s in link %s not written: %v", file.ID, linkID, err)
			return
		}
	}

	mirrorUpdateFailuresTotal.Inc()
	log.Printf("[Redeem] Mirror of %s in link %s gave up after %d attempts", file.ID, linkID, s.mirrorAttempts)
}

// observe учитывает отказ. Отказы по условиям и конкуренция — ожидаемые
// исходы, в лог они попадают без пометки об ошибке.
func (s *RedemptionService) observe(linkID, fileID string, err error) {
	var outcome string
	switch {
	case errors.Is(err, domain.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, domain.ErrExpired):
		outcome = "expired"
	case errors.Is(err, domain.ErrQuotaExceeded):
		outcome = "quota_exceeded"
	case errors.Is(err, domain.ErrContention):
		outcome = "contention"
	default:
		redemptionsTotal.WithLabelValues("error").Inc()
		log.Printf("[Redeem] Error redeeming %s/%s: %v", linkID, fileID, err)
		return
	}

	redemptionsTotal.WithLabelValues(outcome).Inc()
	log.Printf("[Redeem] Refused %s/%s: %s", linkID, fileID, outcome)
}
