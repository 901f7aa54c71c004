// Package jobs запускает фоновые задачи: активацию турниров по времени начала
// и сверку балансов кошельков.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Task - периодическая задача. Ошибка логируется, следующий запуск происходит по расписанию.
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	sched  gocron.Scheduler
	logger *slog.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

// NewScheduler регистрирует задачи. Задачи с нулевым интервалом пропускаются.
func NewScheduler(logger *slog.Logger, tasks ...Task) (*Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, logger: logger, ctx: ctx, cancel: cancel}

	for _, task := range tasks {
		if task.Interval <= 0 || task.Run == nil {
			logger.Info("scheduled job disabled", slog.String("job", task.Name))
			continue
		}
		_, err := sched.NewJob(
			gocron.DurationJob(task.Interval),
			gocron.NewTask(s.wrap(task)),
			gocron.WithName(task.Name),
			gocron.WithSingletonMode(gocron.LimitModeReschedule),
			gocron.WithStartAt(gocron.WithStartImmediately()),
		)
		if err != nil {
			cancel()
			return nil, fmt.Errorf("failed to schedule job %s: %w", task.Name, err)
		}
		logger.Info("scheduled job registered", slog.String("job", task.Name), slog.Duration("interval", task.Interval))
	}
	return s, nil
}

func (s *Scheduler) wrap(task Task) func() {
	return func() {
		started := time.Now()
		if err := task.Run(s.ctx); err != nil {
			s.logger.Error("scheduled job failed", slog.String("job", task.Name), slog.Any("error", err))
			return
		}
		s.logger.Debug("scheduled job finished", slog.String("job", task.Name), slog.Duration("took", time.Since(started)))
	}
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

// Shutdown отменяет контекст выполняющихся задач и ждет их завершения.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.sched.Shutdown()
}
