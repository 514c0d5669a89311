package consumerWorker

import (
	"context"
	"encoding/json"

	"github.com/wb-go/wbf/zlog"

	"eventpass/internal/dto"
	"eventpass/internal/notify"
)

type consumer interface {
	Consume(handler func([]byte) error) error
}

// Reader drains the mail queue and hands every job to the dispatcher.
type Reader struct {
	RMQ     consumer
	handler notify.Handler
	done    chan struct{}
	cancel  context.CancelFunc
	ctx     context.Context
}

func NewReader(rmq consumer, handler notify.Handler) *Reader {
	return &Reader{
		RMQ:     rmq,
		handler: handler,
		done:    make(chan struct{}),
		ctx:     context.Background(),
	}
}

func (r *Reader) Start(ctx context.Context) {
	cctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.ctx = cctx

	zlog.Logger.Info().Msg("mail reader started")

	go func() {
		defer close(r.done)

		if err := r.RMQ.Consume(r.handle); err != nil {
			zlog.Logger.Error().Err(err).Msg("Failed to start consuming")
			return
		}

		<-cctx.Done()
		zlog.Logger.Info().Msg("mail reader stopped by context")
	}()
}

// handle always acknowledges: a job is delivered at most once, and a
// malformed body would fail again on every redelivery.
func (r *Reader) handle(body []byte) error {
	var job dto.MailJob
	if err := json.Unmarshal(body, &job); err != nil {
		zlog.Logger.Error().
			Err(err).
			Msgf("Failed to unmarshal message: %s", string(body))
		return nil
	}

	zlog.Logger.Info().
		Str("kind", job.Kind).
		Str("registration_id", job.RegistrationID).
		Msg("mail job received")

	if err := r.handler.Handle(r.ctx, job); err != nil {
		zlog.Logger.Warn().
			Err(err).
			Str("kind", job.Kind).
			Str("registration_id", job.RegistrationID).
			Msg("mail job failed, dropping")
		return nil
	}

	zlog.Logger.Info().
		Str("kind", job.Kind).
		Str("registration_id", job.RegistrationID).
		Msg("mail job delivered")
	return nil
}

func (r *Reader) Stop() {
	if r.cancel != nil {
		r.cancel()
		<-r.done
	}
}
