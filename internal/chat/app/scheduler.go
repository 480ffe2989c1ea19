package app

import (
	"sync/atomic"
	"time"

	"chat_server/pkg/logger"
)

// Scheduler 固定頻率的背景 sweep
// 上一輪還沒跑完時跳過該次 tick（skip 不排隊），不會卡住 request 處理
type Scheduler struct {
	name     string
	interval time.Duration
	task     func()
	running  int32
	stop     chan struct{}
}

// NewScheduler create a fixed-rate background task
func NewScheduler(name string, interval time.Duration, task func()) *Scheduler {
	return &Scheduler{
		name:     name,
		interval: interval,
		task:     task,
		stop:     make(chan struct{}),
	}
}

// Start 啟動背景 goroutine
func (s *Scheduler) Start() {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
					logger.Log.Warn(s.name + " sweep still running, tick skipped")
					continue
				}
				go func() {
					defer atomic.StoreInt32(&s.running, 0)
					s.task()
				}()
			case <-s.stop:
				return
			}
		}
	}()
}

// Stop 停止排程，正在跑的那一輪會跑完
func (s *Scheduler) Stop() {
	close(s.stop)
}
