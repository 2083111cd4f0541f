package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("file not found")
	ErrLinkNotFound     = errors.New("link not found")
	ErrExpired          = errors.New("file expired")
	ErrQuotaExceeded    = errors.New("download limit reached")
	ErrContention       = errors.New("too many concurrent redemptions, retry later")
	ErrStoreUnavailable = errors.New("store unavailable")

	ErrIngestionIncomplete = errors.New("ingestion incomplete")
	ErrInvalidLimit        = errors.New("limit must not be negative")
	ErrEmptyUpload         = errors.New("no files to upload")
)

// IngestionIncompleteError возвращается, когда пакет загрузки оборвался на середине.
// Уже созданные FileRecord остаются в хранилище без владеющей ссылки.
type IngestionIncompleteError struct {
	LinkID  string
	Created []string
	Failed  string
	Err     error
}

func (e *IngestionIncompleteError) Error() string {
	return fmt.Sprintf("ingestion of link %s incomplete at %q (created: [%s]): %v",
		e.LinkID, e.Failed, strings.Join(e.Created, ", "), e.Err)
}

func (e *IngestionIncompleteError) Unwrap() []error {
	return []error{ErrIngestionIncomplete, e.Err}
}
