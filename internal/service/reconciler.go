// reconciler.go — фоновая сверка зеркальных счётчиков ссылок.
//
// Для каждой ссылки перечитываются все FileRecord, и зеркала, отставшие
// от авторитетного downloaded, поднимаются до него. Зеркало никогда не
// уменьшается. Запись ссылки идёт той же условной записью, что и в шлюзе.
package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"quotadrop/internal/domain"
	"quotadrop/internal/repository"
)

// ReconcileIssue — ссылка, которую не удалось полностью сверить
type ReconcileIssue struct {
	LinkID string
	FileID string
	Err    error
}

type ReconcileResult struct {
	LinksScanned   int
	LinksUpdated   int
	MirrorsUpdated int
	Conflicts      int
	Issues         []ReconcileIssue
	Duration       time.Duration
}

type Reconciler struct {
	ledger   *repository.Ledger
	interval time.Duration
	attempts int

	mu        sync.Mutex // защита от параллельного запуска
	inProcess bool
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewReconciler(ledger *repository.Ledger, interval time.Duration, attempts int) *Reconciler {
	if attempts <= 0 {
		attempts = DefaultMirrorAttempts
	}
	return &Reconciler{
		ledger:   ledger,
		interval: interval,
		attempts: attempts,
	}
}

// Start запускает сверку по тикеру до отмены ctx или вызова Stop.
func (r *Reconciler) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.done = make(chan struct{})

	go r.run(ctx)
	log.Printf("[Reconciler] Started, interval %s", r.interval)
}

func (r *Reconciler) Stop() {
	if r.cancel == nil {
		return
	}
	r.cancel()
	<-r.done
	log.Println("[Reconciler] Stopped")
}

func (r *Reconciler) run(ctx context.Context) {
	defer close(r.done)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if result, skipped := r.RunOnce(ctx); !skipped && len(result.Issues) > 0 {
				log.Printf("[Reconciler] Run finished with %d issues", len(result.Issues))
			}
		}
	}
}

// RunOnce выполняет один проход сверки.
// Если проход уже идёт, возвращает nil, true.
func (r *Reconciler) RunOnce(ctx context.Context) (*ReconcileResult, bool) {
	r.mu.Lock()
	if r.inProcess {
		r.mu.Unlock()
		return nil, true
	}
	r.inProcess = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.inProcess = false
		r.mu.Unlock()
	}()

	start := time.Now()
	result := &ReconcileResult{}
	reconcileRunsTotal.Inc()

	ids, err := r.ledger.ListLinkIDs(ctx)
	if err != nil {
		result.Issues = append(result.Issues, ReconcileIssue{Err: err})
		log.Printf("[Reconciler] Failed to list links: %v", err)
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		result.LinksScanned++
		r.reconcileLink(ctx, id, result)
	}

	result.Duration = time.Since(start)
	reconcileDurationSeconds.Observe(result.Duration.Seconds())
	reconcileMirrorsUpdatedTotal.Add(float64(result.MirrorsUpdated))

	if result.MirrorsUpdated > 0 {
		log.Printf("[Reconciler] Raised %d mirrors in %d links (scanned %d, conflicts %d) in %s",
			result.MirrorsUpdated, result.LinksUpdated, result.LinksScanned, result.Conflicts, result.Duration)
	}
	return result, false
}

func (r *Reconciler) reconcileLink(ctx context.Context, linkID string, result *ReconcileResult) {
	for attempt := 1; attempt <= r.attempts; attempt++ {
		link, err := r.ledger.GetLink(ctx, linkID)
		if err != nil {
			result.Issues = append(result.Issues, ReconcileIssue{LinkID: linkID, Err: err})
			return
		}

		raised := 0
		for i := range link.Files {
			mirror := &link.Files[i]
			file, err := r.ledger.GetFile(ctx, mirror.ID)
			if err != nil {
				// Повторяем проблему только один раз за проход
				if attempt == 1 {
					result.Issues = append(result.Issues, ReconcileIssue{LinkID: linkID, FileID: mirror.ID, Err: err})
				}
				continue
			}
			if file.Downloaded > mirror.Downloaded {
				mirror.Downloaded = file.Downloaded
				raised++
			}
		}

		if raised == 0 {
			return
		}

		err = r.ledger.ReplaceLink(ctx, link)
		if err == nil {
			result.LinksUpdated++
			result.MirrorsUpdated += raised
			return
		}
		if !errors.Is(err, repository.ErrVersionConflict) {
			result.Issues = append(result.Issues, ReconcileIssue{LinkID: linkID, Err: err})
			return
		}
		result.Conflicts++
	}

	result.Issues = append(result.Issues, ReconcileIssue{LinkID: linkID, Err: domain.ErrContention})
}
