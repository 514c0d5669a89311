package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"eventpass/internal/dto"
)

const inlineTimeout = 30 * time.Second

// Inline delivers jobs on a goroutine in the same process. It is used when no
// broker is configured.
type Inline struct {
	h   Handler
	log *zerolog.Logger
	wg  sync.WaitGroup
}

func NewInline(h Handler, log *zerolog.Logger) *Inline {
	return &Inline{h: h, log: log}
}

func (q *Inline) Enqueue(ctx context.Context, job dto.MailJob) error {
	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), inlineTimeout)
		defer cancel()
		if err := q.h.Handle(cctx, job); err != nil {
			q.log.Warn().Err(err).Str("kind", job.Kind).Str("registration_id", job.RegistrationID).
				Msg("mail job failed")
		}
	}()
	return nil
}

// Wait blocks until every enqueued job has finished.
func (q *Inline) Wait() {
	q.wg.Wait()
}
