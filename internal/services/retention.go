package services

import (
	"context"
	"sync"
	"time"

	"taskchat/internal/repository"
	"taskchat/pkg/logger"
)

// RetentionWorker periodically hard-deletes old tombstoned messages.
// Pinned messages are never swept.
type RetentionWorker struct {
	messageRepo repository.MessageRepository
	maxAge      time.Duration
	interval    time.Duration
	log         *logger.Logger
	stopChan    chan struct{}
	wg          sync.WaitGroup
}

func NewRetentionWorker(messageRepo repository.MessageRepository, maxAge time.Duration, log *logger.Logger) *RetentionWorker {
	return &RetentionWorker{
		messageRepo: messageRepo,
		maxAge:      maxAge,
		interval:    time.Hour,
		log:         log,
		stopChan:    make(chan struct{}),
	}
}

// Start begins the sweep loop
func (w *RetentionWorker) Start() {
	w.wg.Add(1)
	go w.run()
}

// Stop gracefully shuts down
func (w *RetentionWorker) Stop() {
	close(w.stopChan)
	w.wg.Wait()
}

func (w *RetentionWorker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *RetentionWorker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cutoff := time.Now().Add(-w.maxAge)
	removed, err := w.messageRepo.SweepTombstones(ctx, cutoff)
	if err != nil {
		w.log.Errorf("retention: sweep failed: %v", err)
		return
	}
	if removed > 0 {
		w.log.Infof("retention: removed %d tombstoned messages older than %s", removed, cutoff.Format(time.RFC3339))
	}
}
